// internal/app/features/folders/routes.go
package folders

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted under /folders.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)

	r.Post("/{id}/activate", h.HandleActivate)
	r.Get("/{id}/milestones", h.ServeMilestones)
	r.Post("/{id}/repair", h.HandleRepair)
	r.Get("/{id}/sessions", h.ServeSessions)

	return r
}

// SessionRoutes returns the router mounted under /sessions.
func SessionRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/{id}/status", h.HandleSessionStatus)
	return r
}
