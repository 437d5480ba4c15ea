// Package models defines the domain types for Dagaz.
package models

import "time"

// Point is an absolute position on the canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle on the canvas.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the rectangle's surface area.
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Contains reports whether p lies inside the rectangle (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Task represents one task on the board. Tasks without a CanvasPosition
// live in the inbox and never take part in containment evaluation.
type Task struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Priority       string         `json:"priority,omitempty"`
	Status         string         `json:"status,omitempty"`
	ProjectID      string         `json:"project_id,omitempty"`
	DueDate        *time.Time     `json:"due_date,omitempty"`
	ParentTaskID   string         `json:"parent_task_id,omitempty"`
	Subtasks       []string       `json:"subtasks,omitempty"`
	CanvasPosition *Point         `json:"canvas_position,omitempty"`
	Meta           map[string]any `json:"meta,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TaskPatch is a partial task update. Nil fields are left untouched.
// It is the only channel through which the board mutates tasks.
type TaskPatch struct {
	Title         *string        `json:"title,omitempty"`
	Priority      *string        `json:"priority,omitempty"`
	Status        *string        `json:"status,omitempty"`
	ProjectID     *string        `json:"project_id,omitempty"`
	DueDate       *time.Time     `json:"due_date,omitempty"`
	Position      *Point         `json:"position,omitempty"`
	ClearPosition bool           `json:"clear_position,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
}

// SectionType determines a section's auto-collect predicate.
type SectionType string

// Section types. Smart types carry a PropertyValue; custom sections
// have purely geometric membership.
const (
	SectionPriority SectionType = "priority"
	SectionStatus   SectionType = "status"
	SectionProject  SectionType = "project"
	SectionTimeline SectionType = "timeline"
	SectionCustom   SectionType = "custom"
)

// Smart reports whether the type carries an auto-collect predicate.
func (t SectionType) Smart() bool {
	switch t {
	case SectionPriority, SectionStatus, SectionProject, SectionTimeline:
		return true
	}
	return false
}

// Valid reports whether the type is one of the known section types.
func (t SectionType) Valid() bool {
	return t.Smart() || t == SectionCustom
}

// TimelineDayFormat is the layout of a timeline section's PropertyValue.
const TimelineDayFormat = "2006-01-02"

// Section is a spatial region on the canvas. Type is fixed at creation.
// While IsCollapsed is true, CollapsedWidth/CollapsedHeight hold the
// pre-collapse dimensions so expand can restore them exactly.
type Section struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Type            SectionType `json:"type"`
	PropertyValue   string      `json:"property_value,omitempty"`
	Position        Rect        `json:"position"`
	CollapsedWidth  float64     `json:"collapsed_width,omitempty"`
	CollapsedHeight float64     `json:"collapsed_height,omitempty"`
	IsCollapsed     bool        `json:"is_collapsed"`
	AutoCollect     bool        `json:"auto_collect"`
	Color           string      `json:"color,omitempty"`
	Layout          string      `json:"layout,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// TaskPlacement records where one task sat when its section collapsed.
type TaskPlacement struct {
	TaskID   string `json:"task_id"`
	Absolute Point  `json:"absolute"`
	Relative Point  `json:"relative"`
}

// CollapseSnapshot preserves a section's child layout and dimensions
// across a collapse/expand cycle. Created when a section collapses,
// consumed when it expands, discarded if the section is deleted first.
type CollapseSnapshot struct {
	SectionID      string          `json:"section_id"`
	Placements     []TaskPlacement `json:"placements"`
	OriginalWidth  float64         `json:"original_width"`
	OriginalHeight float64         `json:"original_height"`
}
