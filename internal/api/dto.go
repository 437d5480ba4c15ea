package api

import (
	"github.com/starford/dagaz/internal/boardservice"
	"github.com/starford/dagaz/internal/models"
)

// CreateSectionRequest is the request body for creating a section
// (aliased from the domain layer's factory input).
type CreateSectionRequest = boardservice.CreateSectionInput

// UpdateSectionRequest is the request body for patching a section.
// Type is accepted only so the handler can reject attempts to change it.
type UpdateSectionRequest struct {
	Type *models.SectionType `json:"type,omitempty"`
	boardservice.SectionPatch
}

// CreateTaskRequest is the request body for creating a task.
type CreateTaskRequest struct {
	Title          string         `json:"title"`
	Priority       string         `json:"priority,omitempty"`
	Status         string         `json:"status,omitempty"`
	ProjectID      string         `json:"project_id,omitempty"`
	CanvasPosition *models.Point  `json:"canvas_position,omitempty"`
	Meta           map[string]any `json:"meta,omitempty"`
}

// MoveTaskRequest carries the drag-end drop position.
type MoveTaskRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MoveTaskResponse reports where the task ended up.
type MoveTaskResponse struct {
	Task      *models.Task `json:"task"`
	SectionID string       `json:"section_id,omitempty"`
}

// ResolveRequest asks which section contains a task at a position.
type ResolveRequest struct {
	TaskID   string        `json:"task_id"`
	Position *models.Point `json:"position"`
}

// ResolveResponse carries the winning section, empty when none.
type ResolveResponse struct {
	SectionID string `json:"section_id,omitempty"`
}

// HistoryStatus mirrors the undo/redo availability flags.
type HistoryStatus struct {
	CanUndo   bool `json:"can_undo"`
	CanRedo   bool `json:"can_redo"`
	UndoDepth int  `json:"undo_depth"`
	RedoDepth int  `json:"redo_depth"`
}

// BoardResponse is the full board state for an initial client load.
type BoardResponse struct {
	Sections []models.Section `json:"sections"`
	Tasks    []models.Task    `json:"tasks"`
	History  HistoryStatus    `json:"history"`
}
