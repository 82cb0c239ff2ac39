// internal/app/features/auditlog/list.go
package auditlog

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/therapytrack/internal/app/store/audit"
	"github.com/dalemusser/therapytrack/internal/app/system/normalize"
	"github.com/dalemusser/therapytrack/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

// listItem represents a single audit event row.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	OwnerID       string            `json:"owner_id,omitempty"`
	FolderID      string            `json:"folder_id,omitempty"`
	CreationID    string            `json:"creation_id,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Items      []listItem `json:"items"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	Total      int64      `json:"total"`
	HasPrev    bool       `json:"has_prev"`
	HasNext    bool       `json:"has_next"`
}

// ServeList handles GET /audit with optional folder, owner, category,
// event_type, start_date, end_date (YYYY-MM-DD) and page filters.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter := audit.QueryFilter{
		Category:  normalize.QueryParam(query.Get(r, "category")),
		EventType: normalize.QueryParam(query.Get(r, "event_type")),
		Limit:     pageSize,
	}

	var ok bool
	if filter.FolderID, ok = optionalID(r, "folder"); !ok {
		writeError(w, http.StatusBadRequest, "folder must be a valid id")
		return
	}
	if filter.OwnerID, ok = optionalID(r, "owner"); !ok {
		writeError(w, http.StatusBadRequest, "owner must be a valid id")
		return
	}

	if v := normalize.QueryParam(query.Get(r, "start_date")); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.StartTime = &t
		}
	}
	if v := normalize.QueryParam(query.Get(r, "end_date")); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			// End of day
			endOfDay := t.Add(24*time.Hour - time.Second)
			filter.EndTime = &endOfDay
		}
	}

	page := 1
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		page = p
	}
	filter.Offset = int64((page - 1) * pageSize)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query audit events")
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to count audit events")
		return
	}

	items := toItems(events)

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items:      items,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	})
}

type failedResponse struct {
	Since time.Time  `json:"since"`
	Items []listItem `json:"items"`
}

// ServeFailed handles GET /audit/failed. It lists creations that did not
// finish cleanly (failed, deferred compensation, failed repair) since the
// optional since date (YYYY-MM-DD, default the last 24 hours).
func (h *Handler) ServeFailed(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-24 * time.Hour)
	if v := normalize.QueryParam(query.Get(r, "since")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be YYYY-MM-DD")
			return
		}
		since = t
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit failed creations")
	defer cancel()

	events, err := h.Events.GetFailedCreations(ctx, since, pageSize)
	if err != nil {
		h.Log.Error("failed to query failed creations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query audit events")
		return
	}
	writeJSON(w, http.StatusOK, failedResponse{Since: since, Items: toItems(events)})
}

func toItems(events []audit.Event) []listItem {
	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			CreationID:    e.CreationID,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.OwnerID != nil {
			item.OwnerID = e.OwnerID.Hex()
		}
		if e.FolderID != nil {
			item.FolderID = e.FolderID.Hex()
		}
		items = append(items, item)
	}
	return items
}

// optionalID parses an ObjectID query parameter. A missing parameter yields
// nil and true.
func optionalID(r *http.Request, name string) (*primitive.ObjectID, bool) {
	v := normalize.QueryParam(query.Get(r, name))
	if v == "" {
		return nil, true
	}
	oid, err := primitive.ObjectIDFromHex(v)
	if err != nil {
		return nil, false
	}
	return &oid, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]map[string]string{"error": {"message": msg}})
}
