// Package history maintains the bounded undo/redo stacks of cloned
// task-collection snapshots.
//
// Every undo-stack entry is the state captured *before* one committed
// mutation, so undoing pops the most recent entry and hands it back for
// write-back while the pre-undo live state moves onto the redo stack.
// Callers must complete SaveState before applying the mutation it
// guards; snapshotting after the fact would make undo a no-op.
package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/snapshot"
)

// DefaultCapacity bounds the undo stack when no capacity is configured.
const DefaultCapacity = 50

// Entry is one recorded snapshot of the task collection.
type Entry struct {
	ID          string
	Timestamp   time.Time
	Description string
	// Checkpoint entries survive eviction longer than ordinary ones.
	Checkpoint bool
	Tasks      []models.Task
}

// Manager owns the undo and redo stacks. It is not safe for concurrent
// use; the board service serializes access.
type Manager struct {
	capacity int
	undo     []*Entry
	redo     []*Entry
}

// NewManager creates a manager keeping at most capacity undo entries.
// Non-positive capacity falls back to DefaultCapacity.
func NewManager(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{capacity: capacity}
}

// SaveState clones current and pushes it as a new undo entry, clearing
// the redo stack (a new commit invalidates the redone branch). On clone
// failure nothing is pushed and the caller must abort its mutation.
func (m *Manager) SaveState(current []models.Task, description string) error {
	return m.save(current, description, false)
}

// SaveCheckpoint is SaveState with the entry tagged as a checkpoint.
func (m *Manager) SaveCheckpoint(current []models.Task, description string) error {
	return m.save(current, description, true)
}

func (m *Manager) save(current []models.Task, description string, checkpoint bool) error {
	tasks, err := snapshot.Tasks(current, snapshot.Deep)
	if err != nil {
		return fmt.Errorf("history: save state: %w", err)
	}
	m.push(&Entry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Description: description,
		Checkpoint:  checkpoint,
		Tasks:       tasks,
	})
	m.redo = m.redo[:0]
	return nil
}

// push appends e, evicting when over capacity. Eviction prefers the
// oldest non-checkpoint entry; if every entry is a checkpoint the
// oldest goes regardless.
func (m *Manager) push(e *Entry) {
	m.undo = append(m.undo, e)
	if len(m.undo) <= m.capacity {
		return
	}
	// The entry just pushed is never the victim: evict the oldest
	// non-checkpoint among the older entries, falling back to the
	// oldest overall when all of them are checkpoints.
	victim := 0
	for i, entry := range m.undo[:len(m.undo)-1] {
		if !entry.Checkpoint {
			victim = i
			break
		}
	}
	m.undo = append(m.undo[:victim], m.undo[victim+1:]...)
}

// Undo pops the most recent pre-mutation snapshot and returns a clone
// of it for write-back. The live state passed in is cloned onto the
// redo stack so a following Redo restores it exactly. Returns
// (nil, false, nil) when there is nothing to undo.
func (m *Manager) Undo(current []models.Task) ([]models.Task, bool, error) {
	if len(m.undo) == 0 {
		return nil, false, nil
	}
	live, err := snapshot.Tasks(current, snapshot.Deep)
	if err != nil {
		return nil, false, fmt.Errorf("history: undo: %w", err)
	}
	last := m.undo[len(m.undo)-1]
	restored, err := snapshot.Tasks(last.Tasks, snapshot.Deep)
	if err != nil {
		return nil, false, fmt.Errorf("history: undo: %w", err)
	}
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, &Entry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Description: last.Description,
		Checkpoint:  last.Checkpoint,
		Tasks:       live,
	})
	return restored, true, nil
}

// Redo re-applies the most recently undone state. Symmetric with Undo.
func (m *Manager) Redo(current []models.Task) ([]models.Task, bool, error) {
	if len(m.redo) == 0 {
		return nil, false, nil
	}
	live, err := snapshot.Tasks(current, snapshot.Deep)
	if err != nil {
		return nil, false, fmt.Errorf("history: redo: %w", err)
	}
	last := m.redo[len(m.redo)-1]
	restored, err := snapshot.Tasks(last.Tasks, snapshot.Deep)
	if err != nil {
		return nil, false, fmt.Errorf("history: redo: %w", err)
	}
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, &Entry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Description: last.Description,
		Checkpoint:  last.Checkpoint,
		Tasks:       live,
	})
	return restored, true, nil
}

// CanUndo reports whether an undo would restore anything.
func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }

// CanRedo reports whether a redo would restore anything.
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// Depth returns the undo and redo stack sizes.
func (m *Manager) Depth() (undo, redo int) {
	return len(m.undo), len(m.redo)
}

// Reset drops both stacks. Used when the board is reloaded wholesale.
func (m *Manager) Reset() {
	m.undo = m.undo[:0]
	m.redo = m.redo[:0]
}
