package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/boardservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *boardservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Full board state for an initial client load.
	r.Get("/board", h.Board)

	// Sections.
	r.Get("/sections", h.ListSections)
	r.Post("/sections", h.CreateSection)
	r.Get("/sections/{id}", h.GetSection)
	r.Patch("/sections/{id}", h.UpdateSection)
	r.Delete("/sections/{id}", h.DeleteSection)
	r.Post("/sections/{id}/collapse", h.ToggleCollapse)

	// Tasks.
	r.Get("/tasks", h.ListTasks)
	r.Post("/tasks", h.CreateTask)
	r.Get("/tasks/{id}", h.GetTask)
	r.Patch("/tasks/{id}", h.PatchTask)
	r.Delete("/tasks/{id}", h.DeleteTask)
	r.Post("/tasks/{id}/move", h.MoveTask)

	// Containment resolution (drag-end from the rendering layer).
	r.Post("/resolve", h.Resolve)

	// Undo/redo.
	r.Get("/history", h.History)
	r.Post("/history/undo", h.Undo)
	r.Post("/history/redo", h.Redo)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
