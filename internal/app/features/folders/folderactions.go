package folders

import (
	"errors"
	"net/http"

	"github.com/dalemusser/therapytrack/internal/app/system/activation"
	"github.com/dalemusser/therapytrack/internal/app/system/limits"
	"github.com/dalemusser/therapytrack/internal/app/system/scheduling"
	"github.com/dalemusser/therapytrack/internal/app/system/timeouts"
	"github.com/dalemusser/therapytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type activateResponse struct {
	Folder     models.Folder     `json:"folder"`
	Activation activation.Result `json:"activation"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// HandleActivate handles POST /folders/{id}/activate. It makes the folder
// its owner's only active folder; siblings that could not be deactivated are
// reported as warnings.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "activate folder")
	defer cancel()

	f, err := h.Folders.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		writeError(w, http.StatusNotFound, string(scheduling.KindNotFound), "folder not found")
		return
	}
	if err != nil {
		h.Log.Error("load folder", zap.Error(err))
		writeError(w, http.StatusInternalServerError, string(scheduling.KindPersistence), "failed to load folder")
		return
	}
	if f.Status == models.FolderIncomplete || f.Status == models.FolderCreating {
		writeError(w, http.StatusConflict, string(scheduling.KindConflict), f.Status+" folders cannot be activated")
		return
	}

	res, err := h.Activator.SetActive(ctx, f.OwnerID, f.ID)
	if err != nil {
		h.Log.Error("activate folder", zap.String("folder_id", f.ID.Hex()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, string(scheduling.KindPersistence), "failed to activate folder")
		return
	}
	f.IsActive = true
	writeJSON(w, http.StatusOK, activateResponse{Folder: f, Activation: res, Warnings: res.Warnings()})
}

// ServeMilestones handles GET /folders/{id}/milestones.
func (h *Handler) ServeMilestones(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "folder milestones")
	defer cancel()

	view, err := h.Scheduler.Milestones(ctx, id)
	if err != nil {
		h.writeServiceError(w, "folder milestones", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleRepair handles POST /folders/{id}/repair.
func (h *Handler) HandleRepair(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "repair folder")
	defer cancel()

	res, err := h.Scheduler.Repair(ctx, id)
	if err != nil {
		h.writeServiceError(w, "repair folder", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ServeSessions handles GET /folders/{id}/sessions, in ordinal order.
func (h *Handler) ServeSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list sessions")
	defer cancel()

	sessions, err := h.Sessions.ListByFolder(ctx, id)
	if err != nil {
		h.Log.Error("list sessions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, string(scheduling.KindPersistence), "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []models.TherapySession{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

type statusRequest struct {
	Status string `json:"status"`
}

// HandleSessionStatus handles POST /sessions/{id}/status.
func (h *Handler) HandleSessionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}
	var in statusRequest
	if err := decodeJSON(w, r, limits.MaxStatusRequestSize, &in); err != nil {
		writeError(w, http.StatusBadRequest, string(scheduling.KindValidation), "invalid JSON body: "+err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "set session status")
	defer cancel()

	ts, err := h.Scheduler.SetSessionStatus(ctx, id, in.Status)
	if err != nil {
		h.writeServiceError(w, "set session status", err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}
