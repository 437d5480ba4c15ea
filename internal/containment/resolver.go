// Package containment decides which section a task belongs to and what
// property mutation that membership implies.
//
// Geometric containment is position-in-rectangle; when several sections
// overlap the smallest area wins (most specific match), ties going to
// the most recently created section. Logical matching is independent of
// geometry and powers smart sections: a priority section with value
// "high" matches any task whose priority is "high" wherever it sits.
package containment

import (
	"time"

	"github.com/starford/dagaz/internal/models"
)

// ContainingSection returns the section whose bounds contain pos, or
// nil when no section does. sections may be in any order.
func ContainingSection(pos models.Point, sections []models.Section) *models.Section {
	var best *models.Section
	for i := range sections {
		sec := &sections[i]
		if !sec.Position.Contains(pos) {
			continue
		}
		if best == nil || smaller(sec, best) {
			best = sec
		}
	}
	return best
}

// smaller reports whether a beats b under the tie-break rule.
func smaller(a, b *models.Section) bool {
	if a.Position.Area() != b.Position.Area() {
		return a.Position.Area() < b.Position.Area()
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// TasksIn returns the tasks whose canvas position lies inside sec,
// regardless of overlapping sections. Inbox tasks (no position) are
// never contained.
func TasksIn(sec models.Section, tasks []models.Task) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if t.CanvasPosition == nil {
			continue
		}
		if sec.Position.Contains(*t.CanvasPosition) {
			out = append(out, t)
		}
	}
	return out
}

// Matches reports whether task logically matches a smart section's
// predicate, independent of where the task sits on the canvas. Custom
// sections match nothing logically.
func Matches(task models.Task, sec models.Section) bool {
	switch sec.Type {
	case models.SectionPriority:
		return task.Priority == sec.PropertyValue
	case models.SectionStatus:
		return task.Status == sec.PropertyValue
	case models.SectionProject:
		return task.ProjectID == sec.PropertyValue
	case models.SectionTimeline:
		if task.DueDate == nil {
			return false
		}
		return task.DueDate.Format(models.TimelineDayFormat) == sec.PropertyValue
	}
	return false
}

// AutoCollectPatch returns the property patch that dropping a task into
// sec implies, and whether sec assigns anything at all. Assignment is
// one-way: dragging a task back out never reverts the property.
func AutoCollectPatch(sec models.Section) (models.TaskPatch, bool) {
	if !sec.AutoCollect || !sec.Type.Smart() {
		return models.TaskPatch{}, false
	}
	v := sec.PropertyValue
	switch sec.Type {
	case models.SectionPriority:
		return models.TaskPatch{Priority: &v}, true
	case models.SectionStatus:
		return models.TaskPatch{Status: &v}, true
	case models.SectionProject:
		return models.TaskPatch{ProjectID: &v}, true
	case models.SectionTimeline:
		day, err := time.Parse(models.TimelineDayFormat, v)
		if err != nil {
			return models.TaskPatch{}, false
		}
		return models.TaskPatch{DueDate: &day}, true
	}
	return models.TaskPatch{}, false
}

// RelativeTo converts an absolute canvas point to coordinates relative
// to the section's origin.
func RelativeTo(sec models.Section, abs models.Point) models.Point {
	return models.Point{X: abs.X - sec.Position.X, Y: abs.Y - sec.Position.Y}
}
