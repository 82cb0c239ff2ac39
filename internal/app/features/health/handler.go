package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/therapytrack/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger checks database connectivity. *mongo.Client implements it.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// IncompleteCounter reports folders waiting for repair.
// *folderstore.Store implements it.
type IncompleteCounter interface {
	CountIncomplete(ctx context.Context) (int64, error)
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client     Pinger
	Incomplete IncompleteCounter // optional
	Log        *zap.Logger
}

// NewHandler constructs a health Handler.
func NewHandler(client Pinger, incomplete IncompleteCounter, logger *zap.Logger) *Handler {
	return &Handler{
		Client:     client,
		Incomplete: incomplete,
		Log:        logger,
	}
}

type healthResponse struct {
	Status            string `json:"status"`
	Database          string `json:"database"`
	Message           string `json:"message,omitempty"`
	Error             string `json:"error,omitempty"`
	IncompleteFolders *int64 `json:"incomplete_folders,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "incomplete_folders":0 }
//
// On DB failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
//
// Incomplete folders do not fail the check; the reconciler repairs them.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if h.Incomplete != nil {
		if n, err := h.Incomplete.CountIncomplete(ctx); err == nil {
			resp.IncompleteFolders = &n
		} else {
			h.Log.Warn("health-check: count incomplete folders failed", zap.Error(err))
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
