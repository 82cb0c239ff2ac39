package folders

import (
	"net/http"

	"github.com/dalemusser/therapytrack/internal/app/system/normalize"
	"github.com/dalemusser/therapytrack/internal/app/system/scheduling"
	"github.com/dalemusser/therapytrack/internal/app/system/timeouts"
	"github.com/dalemusser/therapytrack/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type listResponse struct {
	Folders    []models.Folder `json:"folders"`
	HasPrev    bool            `json:"has_prev"`
	HasNext    bool            `json:"has_next"`
	PrevCursor string          `json:"prev_cursor,omitempty"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ServeList handles GET /folders?owner=<id>[&active=true][&after=|&before=<cursor>].
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	owner, err := primitive.ObjectIDFromHex(normalize.QueryParam(query.Get(r, "owner")))
	if err != nil {
		writeError(w, http.StatusBadRequest, string(scheduling.KindValidation), "owner must be a valid id")
		return
	}
	activeOnly := normalize.Bool(query.Get(r, "active"))
	before := normalize.QueryParam(query.Get(r, "before"))
	after := normalize.QueryParam(query.Get(r, "after"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list folders")
	defer cancel()

	page, err := h.Folders.ListByOwnerPage(ctx, owner, activeOnly, before, after)
	if err != nil {
		h.Log.Error("list folders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, string(scheduling.KindPersistence), "failed to list folders")
		return
	}

	resp := listResponse{
		Folders: page.Folders,
		HasPrev: page.HasPrev,
		HasNext: page.HasNext,
	}
	if resp.Folders == nil {
		resp.Folders = []models.Folder{}
	}
	if page.HasPrev {
		resp.PrevCursor = page.PrevCursor
	}
	if page.HasNext {
		resp.NextCursor = page.NextCursor
	}
	writeJSON(w, http.StatusOK, resp)
}
