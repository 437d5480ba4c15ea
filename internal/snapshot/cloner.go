// Package snapshot produces independent deep copies of task collections
// for history storage. A stored snapshot must never share mutable state
// with the live collection, otherwise later edits would silently rewrite
// history entries.
package snapshot

import (
	"fmt"
	"reflect"
	"time"

	"github.com/starford/dagaz/internal/models"
)

// Policy selects how much of each task a clone preserves.
type Policy int

const (
	// Deep copies every field with full fidelity. Required for
	// undo/redo snapshots.
	Deep Policy = iota
	// Selective copies only the identity/position/status allow-list.
	// Cheaper, but not safe for full-state restore.
	Selective
)

// CloneError reports a value that could not be cloned. The clone fails
// loudly instead of truncating: a partial snapshot would corrupt the
// restore invariant without any visible symptom.
type CloneError struct {
	Path   string
	Reason string
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("snapshot: cannot clone %s: %s", e.Path, e.Reason)
}

// Tasks returns an independent copy of ts under the given policy.
func Tasks(ts []models.Task, policy Policy) ([]models.Task, error) {
	out := make([]models.Task, len(ts))
	for i, t := range ts {
		c, err := task(t, policy)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func task(t models.Task, policy Policy) (models.Task, error) {
	c := models.Task{
		ID:        t.ID,
		Title:     t.Title,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.CanvasPosition != nil {
		p := *t.CanvasPosition
		c.CanvasPosition = &p
	}
	if policy == Selective {
		return c, nil
	}

	c.Priority = t.Priority
	c.ProjectID = t.ProjectID
	c.ParentTaskID = t.ParentTaskID
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.Subtasks != nil {
		c.Subtasks = append([]string(nil), t.Subtasks...)
	}
	if t.Meta != nil {
		m, err := cloneValue(t.Meta, fmt.Sprintf("task %s meta", t.ID), map[uintptr]struct{}{})
		if err != nil {
			return models.Task{}, err
		}
		c.Meta = m.(map[string]any)
	}
	return c, nil
}

// cloneValue deep-copies the free-form values a client may attach to a
// task's meta map. It handles the JSON-ish container set plus time.Time,
// tracks visited containers to detect cycles, and rejects anything it
// does not recognise.
func cloneValue(v any, path string, seen map[uintptr]struct{}) (any, error) {
	switch val := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val, nil
	case time.Time:
		return val, nil
	case map[string]any:
		ptr := reflect.ValueOf(val).Pointer()
		if _, ok := seen[ptr]; ok {
			return nil, &CloneError{Path: path, Reason: "cyclic reference"}
		}
		seen[ptr] = struct{}{}
		defer delete(seen, ptr)

		out := make(map[string]any, len(val))
		for k, elem := range val {
			c, err := cloneValue(elem, path+"."+k, seen)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		ptr := reflect.ValueOf(val).Pointer()
		if _, ok := seen[ptr]; ok {
			return nil, &CloneError{Path: path, Reason: "cyclic reference"}
		}
		seen[ptr] = struct{}{}
		defer delete(seen, ptr)

		out := make([]any, len(val))
		for i, elem := range val {
			c, err := cloneValue(elem, fmt.Sprintf("%s[%d]", path, i), seen)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case []string:
		return append([]string(nil), val...), nil
	default:
		return nil, &CloneError{
			Path:   path,
			Reason: fmt.Sprintf("unsupported type %T", v),
		}
	}
}
