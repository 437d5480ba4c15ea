// Package boardservice coordinates the section registry, collapse
// state, containment resolution, and undo history behind one explicit
// service object. It is constructed once at startup and passed to
// consumers; all mutations are serialized on a single mutex, matching
// the one-event-at-a-time model of the canvas UI.
//
// The ordering rule every mutating path follows: capture a history
// snapshot first, apply the mutation second. A failed snapshot aborts
// the mutation entirely so undo can never silently stop covering an
// applied change.
package boardservice

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/dagaz/internal/collapse"
	"github.com/starford/dagaz/internal/containment"
	"github.com/starford/dagaz/internal/history"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/store"
)

// EventFunc receives board change notifications (for SSE fan-out).
// kind is e.g. "task.moved", "section.collapsed", "history.changed".
type EventFunc func(kind, id string)

// Service is the board engine facade.
type Service struct {
	mu sync.Mutex

	tasks    store.TaskStore
	sections store.SectionStore
	collapse *collapse.Store
	history  *history.Manager
	logger   *slog.Logger
	notify   EventFunc

	// collapsedHeight is the compact header-only height a collapsed
	// section shrinks to.
	collapsedHeight float64

	// registry is the in-memory section set, loaded at construction
	// and kept in lockstep with the section store.
	registry map[string]models.Section
}

// Options tunes service construction.
type Options struct {
	HistoryCapacity int
	CollapsedHeight float64
	Notify          EventFunc
}

// DefaultCollapsedHeight is the header-only height of a collapsed section.
const DefaultCollapsedHeight = 48

// NewService loads sections and any persisted collapse snapshots and
// returns a ready service. The history stacks always start empty.
func NewService(tasks store.TaskStore, sections store.SectionStore, logger *slog.Logger, opts Options) (*Service, error) {
	if opts.CollapsedHeight <= 0 {
		opts.CollapsedHeight = DefaultCollapsedHeight
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		tasks:           tasks,
		sections:        sections,
		collapse:        collapse.NewStore(sections),
		history:         history.NewManager(opts.HistoryCapacity),
		logger:          logger,
		notify:          opts.Notify,
		collapsedHeight: opts.CollapsedHeight,
		registry:        make(map[string]models.Section),
	}

	secs, err := sections.AllSections()
	if err != nil {
		return nil, fmt.Errorf("boardservice: load sections: %w", err)
	}
	for _, sec := range secs {
		s.registry[sec.ID] = sec
	}

	snaps, err := sections.AllCollapseSnapshots()
	if err != nil {
		return nil, fmt.Errorf("boardservice: load collapse snapshots: %w", err)
	}
	s.collapse.Load(snaps)

	return s, nil
}

func (s *Service) emit(kind, id string) {
	if s.notify != nil {
		s.notify(kind, id)
	}
}

// Tasks returns the current task collection.
func (s *Service) Tasks() ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.AllTasks()
}

// Task returns one task by id.
func (s *Service) Task(id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.GetTask(id)
}

// CreateTask records a history snapshot, then creates the task. A
// missing ID is filled with a fresh UUID.
func (s *Service) CreateTask(t models.Task) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	if err := s.saveStateLocked("create task " + t.ID); err != nil {
		return nil, err
	}
	if err := s.tasks.CreateTask(t); err != nil {
		return nil, err
	}
	s.emit("task.created", t.ID)
	return &t, nil
}

// EditTask records a history snapshot, then applies the patch.
func (s *Service) EditTask(id string, patch models.TaskPatch) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveStateLocked("edit task " + id); err != nil {
		return nil, err
	}
	t, err := s.tasks.PatchTask(id, patch)
	if err != nil {
		return nil, err
	}
	s.emit("task.updated", id)
	return t, nil
}

// DeleteTask records a history snapshot, deletes the task, and prunes
// any collapse-snapshot placements that referenced it.
func (s *Service) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveStateLocked("delete task " + id); err != nil {
		return err
	}
	if err := s.tasks.DeleteTask(id); err != nil {
		return err
	}
	pruned, err := s.collapse.PruneTask(id)
	if err != nil {
		s.logger.Warn("collapse snapshot prune failed",
			slog.String("task", id), slog.String("error", err.Error()))
	}
	for _, sectionID := range pruned {
		s.logger.Debug("pruned stale placement",
			slog.String("task", id), slog.String("section", sectionID))
	}
	s.emit("task.deleted", id)
	return nil
}

// ImportTasks creates a batch of tasks under a single history snapshot,
// so one import is one undo step. Imported tasks land in the inbox
// unless they carry a position. Returns the number created.
func (s *Service) ImportTasks(ts []models.Task) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ts) == 0 {
		return 0, nil
	}
	if err := s.saveStateLocked(fmt.Sprintf("import %d tasks", len(ts))); err != nil {
		return 0, err
	}
	created := 0
	for _, t := range ts {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = now
		if err := s.tasks.CreateTask(t); err != nil {
			return created, fmt.Errorf("boardservice: import task %q: %w", t.Title, err)
		}
		created++
		s.emit("task.created", t.ID)
	}
	return created, nil
}

// MoveTask is the drag-end entrypoint: snapshot, move the task to pos,
// then resolve containment and apply any auto-collect assignment. The
// returned section id is empty when the task landed outside every
// section.
func (s *Service) MoveTask(id string, pos models.Point) (*models.Task, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.tasks.GetTask(id); err != nil {
		return nil, "", err
	}
	if err := s.saveStateLocked("move task " + id); err != nil {
		return nil, "", err
	}

	t, err := s.tasks.PatchTask(id, models.TaskPatch{Position: &pos})
	if err != nil {
		return nil, "", err
	}
	sectionID, t, err := s.resolveLocked(t, pos)
	if err != nil {
		return nil, "", err
	}
	s.emit("task.moved", id)
	return t, sectionID, nil
}

// ResolveContainment determines which section contains pos and applies
// the auto-collect assignment to the task when the section asks for it.
// A nil pos is the explicit inbox no-op path: nothing is evaluated.
func (s *Service) ResolveContainment(taskID string, pos *models.Point) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos == nil {
		return "", nil
	}
	t, err := s.tasks.GetTask(taskID)
	if err != nil {
		return "", err
	}
	sectionID, _, err := s.resolveLocked(t, *pos)
	return sectionID, err
}

// PeekContainment is the read-only variant used on drag-move: it never
// patches the task.
func (s *Service) PeekContainment(pos models.Point) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sec := containment.ContainingSection(pos, s.sectionList()); sec != nil {
		return sec.ID
	}
	return ""
}

// resolveLocked applies the auto-collect side effect for a task at pos.
// Dragging out of all smart sections reverts nothing; assignment is
// one-way.
func (s *Service) resolveLocked(t *models.Task, pos models.Point) (string, *models.Task, error) {
	sec := containment.ContainingSection(pos, s.sectionList())
	if sec == nil {
		return "", t, nil
	}
	patch, ok := containment.AutoCollectPatch(*sec)
	if !ok {
		return sec.ID, t, nil
	}
	patched, err := s.tasks.PatchTask(t.ID, patch)
	if err != nil {
		return "", nil, fmt.Errorf("boardservice: auto-collect %s into %s: %w", t.ID, sec.ID, err)
	}
	s.logger.Debug("auto-collect applied",
		slog.String("task", t.ID),
		slog.String("section", sec.ID),
		slog.String("type", string(sec.Type)),
		slog.String("value", sec.PropertyValue))
	return sec.ID, patched, nil
}

// SaveState captures an undo snapshot of the current task collection.
// Callers wrap their own mutations with it when they bypass the
// service-level task operations.
func (s *Service) SaveState(description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveStateLocked(description)
}

func (s *Service) saveStateLocked(description string) error {
	current, err := s.tasks.AllTasks()
	if err != nil {
		return fmt.Errorf("boardservice: read tasks for snapshot: %w", err)
	}
	if err := s.history.SaveState(current, description); err != nil {
		return err
	}
	s.emit("history.changed", "")
	return nil
}

// Undo restores the task collection to the snapshot taken before the
// most recent committed mutation. Returns false when there is nothing
// to undo.
func (s *Service) Undo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replay(s.history.Undo)
}

// Redo re-applies the most recently undone mutation.
func (s *Service) Redo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replay(s.history.Redo)
}

func (s *Service) replay(step func([]models.Task) ([]models.Task, bool, error)) (bool, error) {
	current, err := s.tasks.AllTasks()
	if err != nil {
		return false, fmt.Errorf("boardservice: read tasks for replay: %w", err)
	}
	restored, ok, err := step(current)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := s.tasks.ReplaceTasks(restored); err != nil {
		return false, fmt.Errorf("boardservice: write back restored tasks: %w", err)
	}
	s.emit("history.changed", "")
	return true, nil
}

// CanUndo reports whether an undo is available.
func (s *Service) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether a redo is available.
func (s *Service) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// HistoryDepth returns the undo and redo stack sizes.
func (s *Service) HistoryDepth() (undo, redo int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Depth()
}
