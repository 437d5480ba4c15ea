package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/boardservice"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/snapshot"
)

// Handler holds API route handlers.
type Handler struct {
	svc *boardservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *boardservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var cloneErr *snapshot.CloneError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrTypeImmutable):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("section type cannot be changed after creation"))
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.As(err, &cloneErr):
		// A failed snapshot blocks the action outright: losing undo
		// coverage invisibly is worse than a rejected action.
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Board handles GET /api/board.
func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.Tasks()
	if err != nil {
		writeServiceError(w, "board", err)
		return
	}
	undo, redo := h.svc.HistoryDepth()
	writeJSON(w, http.StatusOK, BoardResponse{
		Sections: h.svc.Sections(),
		Tasks:    tasks,
		History: HistoryStatus{
			CanUndo: h.svc.CanUndo(), CanRedo: h.svc.CanRedo(),
			UndoDepth: undo, RedoDepth: redo,
		},
	})
}

// ListSections handles GET /api/sections.
func (h *Handler) ListSections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sections": h.svc.Sections()})
}

// CreateSection handles POST /api/sections.
func (h *Handler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req CreateSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	sec, err := h.svc.CreateSection(req)
	if err != nil {
		writeServiceError(w, "create section", err)
		return
	}
	writeJSON(w, http.StatusCreated, sec)
}

// GetSection handles GET /api/sections/{id}.
func (h *Handler) GetSection(w http.ResponseWriter, r *http.Request) {
	sec, err := h.svc.Section(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "get section", err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

// UpdateSection handles PATCH /api/sections/{id}.
func (h *Handler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	var req UpdateSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	sec, err := h.svc.UpdateSection(chi.URLParam(r, "id"), req.Type, req.SectionPatch)
	if err != nil {
		writeServiceError(w, "update section", err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

// DeleteSection handles DELETE /api/sections/{id}.
func (h *Handler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSection(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "delete section", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleCollapse handles POST /api/sections/{id}/collapse.
func (h *Handler) ToggleCollapse(w http.ResponseWriter, r *http.Request) {
	sec, err := h.svc.ToggleCollapse(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "toggle collapse", err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

// ListTasks handles GET /api/tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, _ *http.Request) {
	tasks, err := h.svc.Tasks()
	if err != nil {
		writeServiceError(w, "list tasks", err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// CreateTask handles POST /api/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	task, err := h.svc.CreateTask(models.Task{
		Title:          req.Title,
		Priority:       req.Priority,
		Status:         req.Status,
		ProjectID:      req.ProjectID,
		CanvasPosition: req.CanvasPosition,
		Meta:           req.Meta,
	})
	if err != nil {
		writeServiceError(w, "create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// GetTask handles GET /api/tasks/{id}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.Task(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "get task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// PatchTask handles PATCH /api/tasks/{id}.
func (h *Handler) PatchTask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var patch models.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	task, err := h.svc.EditTask(chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, "patch task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTask(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveTask handles POST /api/tasks/{id}/move — the drag-end endpoint.
func (h *Handler) MoveTask(w http.ResponseWriter, r *http.Request) {
	var req MoveTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	task, sectionID, err := h.svc.MoveTask(chi.URLParam(r, "id"), models.Point{X: req.X, Y: req.Y})
	if err != nil {
		writeServiceError(w, "move task", err)
		return
	}
	writeJSON(w, http.StatusOK, MoveTaskResponse{Task: task, SectionID: sectionID})
}

// Resolve handles POST /api/resolve.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.TaskID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("task_id is required"))
		return
	}
	sectionID, err := h.svc.ResolveContainment(req.TaskID, req.Position)
	if err != nil {
		writeServiceError(w, "resolve containment", err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{SectionID: sectionID})
}

// History handles GET /api/history.
func (h *Handler) History(w http.ResponseWriter, _ *http.Request) {
	undo, redo := h.svc.HistoryDepth()
	writeJSON(w, http.StatusOK, HistoryStatus{
		CanUndo: h.svc.CanUndo(), CanRedo: h.svc.CanRedo(),
		UndoDepth: undo, RedoDepth: redo,
	})
}

// Undo handles POST /api/history/undo. An empty stack is a no-op 200,
// not an error; the response flags tell the client what remains.
func (h *Handler) Undo(w http.ResponseWriter, _ *http.Request) {
	applied, err := h.svc.Undo()
	if err != nil {
		writeServiceError(w, "undo", err)
		return
	}
	h.historyResult(w, applied)
}

// Redo handles POST /api/history/redo.
func (h *Handler) Redo(w http.ResponseWriter, _ *http.Request) {
	applied, err := h.svc.Redo()
	if err != nil {
		writeServiceError(w, "redo", err)
		return
	}
	h.historyResult(w, applied)
}

func (h *Handler) historyResult(w http.ResponseWriter, applied bool) {
	undo, redo := h.svc.HistoryDepth()
	writeJSON(w, http.StatusOK, map[string]any{
		"applied": applied,
		"history": HistoryStatus{
			CanUndo: h.svc.CanUndo(), CanRedo: h.svc.CanRedo(),
			UndoDepth: undo, RedoDepth: redo,
		},
	})
}
