package boardservice

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/containment"
	"github.com/starford/dagaz/internal/models"
)

// CreateSectionInput is the section factory request. PropertyValue is
// required for smart types and forbidden for custom sections.
type CreateSectionInput struct {
	Name          string             `json:"name"`
	Type          models.SectionType `json:"type"`
	PropertyValue string             `json:"property_value"`
	Position      models.Rect        `json:"position"`
	AutoCollect   bool               `json:"auto_collect"`
	Color         string             `json:"color"`
	Layout        string             `json:"layout"`
}

// Validate checks the factory invariants.
func (in CreateSectionInput) Validate() error {
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required),
	); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	// ozzo resolves field pointers against the struct passed to
	// ValidateStruct, so the nested rect is validated on its own.
	if err := validation.ValidateStruct(&in.Position,
		validation.Field(&in.Position.Width, validation.Required, validation.Min(1.0)),
		validation.Field(&in.Position.Height, validation.Required, validation.Min(1.0)),
	); err != nil {
		return fmt.Errorf("%w: position: %v", apperr.ErrValidation, err)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown section type %q", apperr.ErrValidation, in.Type)
	}
	if in.Type.Smart() && in.PropertyValue == "" {
		return fmt.Errorf("%w: %s sections require a property value", apperr.ErrValidation, in.Type)
	}
	if !in.Type.Smart() && in.PropertyValue != "" {
		return fmt.Errorf("%w: custom sections carry no property value", apperr.ErrValidation)
	}
	if in.Type == models.SectionTimeline {
		if _, err := time.Parse(models.TimelineDayFormat, in.PropertyValue); err != nil {
			return fmt.Errorf("%w: timeline value must be a %s date", apperr.ErrValidation, models.TimelineDayFormat)
		}
	}
	return nil
}

// SectionPatch is a partial section update. Type is deliberately absent:
// it is immutable after creation.
type SectionPatch struct {
	Name          *string      `json:"name,omitempty"`
	PropertyValue *string      `json:"property_value,omitempty"`
	Position      *models.Rect `json:"position,omitempty"`
	AutoCollect   *bool        `json:"auto_collect,omitempty"`
	Color         *string      `json:"color,omitempty"`
	Layout        *string      `json:"layout,omitempty"`
}

// Sections returns all sections ordered by creation time.
func (s *Service) Sections() []models.Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sectionList()
}

func (s *Service) sectionList() []models.Section {
	out := make([]models.Section, 0, len(s.registry))
	for _, sec := range s.registry {
		out = append(out, sec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Section returns one section by id.
func (s *Service) Section(id string) (*models.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, ok := s.registry[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &sec, nil
}

// CreateSection builds and persists a new section from the factory input.
func (s *Service) CreateSection(in CreateSectionInput) (*models.Section, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sec := models.Section{
		ID:            uuid.NewString(),
		Name:          in.Name,
		Type:          in.Type,
		PropertyValue: in.PropertyValue,
		Position:      in.Position,
		AutoCollect:   in.AutoCollect && in.Type.Smart(),
		Color:         in.Color,
		Layout:        in.Layout,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.sections.UpsertSection(sec); err != nil {
		return nil, err
	}
	s.registry[sec.ID] = sec
	s.emit("section.created", sec.ID)
	return &sec, nil
}

// UpdateSection merges patch into the section. Attempting to change the
// type is rejected with apperr.ErrTypeImmutable before any field is
// touched; the type anchors the section's predicate semantics.
func (s *Service) UpdateSection(id string, typ *models.SectionType, patch SectionPatch) (*models.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.registry[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if typ != nil && *typ != sec.Type {
		return nil, apperr.ErrTypeImmutable
	}
	if patch.Name != nil {
		sec.Name = *patch.Name
	}
	if patch.PropertyValue != nil {
		if !sec.Type.Smart() {
			return nil, fmt.Errorf("%w: custom sections carry no property value", apperr.ErrValidation)
		}
		sec.PropertyValue = *patch.PropertyValue
	}
	if patch.Position != nil {
		sec.Position = *patch.Position
	}
	if patch.AutoCollect != nil {
		sec.AutoCollect = *patch.AutoCollect && sec.Type.Smart()
	}
	if patch.Color != nil {
		sec.Color = *patch.Color
	}
	if patch.Layout != nil {
		sec.Layout = *patch.Layout
	}

	if err := s.sections.UpsertSection(sec); err != nil {
		return nil, err
	}
	s.registry[id] = sec
	s.emit("section.updated", id)
	return &sec, nil
}

// DeleteSection removes a section. Contained tasks are never deleted:
// an expanded section leaves them exactly where they are, and a
// collapsed one first restores their positions from its snapshot so
// nothing is lost with it.
func (s *Service) DeleteSection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.registry[id]
	if !ok {
		return apperr.ErrNotFound
	}

	if sec.IsCollapsed {
		// Restoring hidden children mutates the task collection, so it
		// gets its own undo step.
		if err := s.saveStateLocked("delete collapsed section " + id); err != nil {
			return err
		}
		snap, found, err := s.collapse.Consume(id)
		if err != nil {
			return err
		}
		if found {
			s.restorePlacements(snap)
		}
	}
	// Belt and braces: a snapshot without the collapsed flag would
	// otherwise leak forever.
	if err := s.collapse.Discard(id); err != nil {
		return err
	}

	if err := s.sections.DeleteSection(id); err != nil {
		return err
	}
	delete(s.registry, id)
	s.emit("section.deleted", id)
	return nil
}

// ToggleCollapse flips a section between expanded and collapsed.
//
// Collapsing records every contained task's absolute and
// section-relative position plus the section's dimensions into a
// collapse snapshot, shrinks the section to its header height, and
// clears the children's canvas positions (hidden, not deleted).
// Expanding restores dimensions and every recorded position, skipping
// tasks deleted in the meantime, then deletes the snapshot.
func (s *Service) ToggleCollapse(id string) (*models.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.registry[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	// Both directions rewrite child positions, so each toggle is one
	// undo step over the task collection (the section flag itself is
	// outside the history).
	if sec.IsCollapsed {
		if err := s.saveStateLocked("expand section " + id); err != nil {
			return nil, err
		}
		return s.expandLocked(sec)
	}
	if err := s.saveStateLocked("collapse section " + id); err != nil {
		return nil, err
	}
	return s.collapseLocked(sec)
}

func (s *Service) collapseLocked(sec models.Section) (*models.Section, error) {
	all, err := s.tasks.AllTasks()
	if err != nil {
		return nil, fmt.Errorf("boardservice: collapse %s: %w", sec.ID, err)
	}
	contained := containment.TasksIn(sec, all)

	snap := models.CollapseSnapshot{
		SectionID:      sec.ID,
		OriginalWidth:  sec.Position.Width,
		OriginalHeight: sec.Position.Height,
		Placements:     make([]models.TaskPlacement, 0, len(contained)),
	}
	for _, t := range contained {
		snap.Placements = append(snap.Placements, models.TaskPlacement{
			TaskID:   t.ID,
			Absolute: *t.CanvasPosition,
			Relative: containment.RelativeTo(sec, *t.CanvasPosition),
		})
	}
	if err := s.collapse.Save(snap); err != nil {
		return nil, fmt.Errorf("boardservice: save collapse snapshot: %w", err)
	}

	sec.CollapsedWidth = sec.Position.Width
	sec.CollapsedHeight = sec.Position.Height
	sec.Position.Height = s.collapsedHeight
	sec.IsCollapsed = true
	if err := s.sections.UpsertSection(sec); err != nil {
		return nil, err
	}
	s.registry[sec.ID] = sec

	// Hide the children: no position means not rendered, same as inbox.
	for _, t := range contained {
		if _, err := s.tasks.PatchTask(t.ID, models.TaskPatch{ClearPosition: true}); err != nil {
			return nil, fmt.Errorf("boardservice: hide task %s: %w", t.ID, err)
		}
	}

	s.emit("section.collapsed", sec.ID)
	return &sec, nil
}

func (s *Service) expandLocked(sec models.Section) (*models.Section, error) {
	sec.Position.Width = sec.CollapsedWidth
	sec.Position.Height = sec.CollapsedHeight
	sec.CollapsedWidth = 0
	sec.CollapsedHeight = 0
	sec.IsCollapsed = false
	if err := s.sections.UpsertSection(sec); err != nil {
		return nil, err
	}
	s.registry[sec.ID] = sec

	snap, found, err := s.collapse.Consume(sec.ID)
	if err != nil {
		return nil, err
	}
	if found {
		s.restorePlacements(snap)
	}

	s.emit("section.expanded", sec.ID)
	return &sec, nil
}

// restorePlacements re-applies recorded absolute positions. Tasks that
// vanished while the section was collapsed are skipped with a warning;
// blocking over a stale reference would be worse than a best-effort skip.
func (s *Service) restorePlacements(snap models.CollapseSnapshot) {
	for _, p := range snap.Placements {
		pos := p.Absolute
		if _, err := s.tasks.PatchTask(p.TaskID, models.TaskPatch{Position: &pos}); err != nil {
			s.logger.Warn("orphaned collapse placement skipped",
				slog.String("section", snap.SectionID),
				slog.String("task", p.TaskID),
				slog.String("error", err.Error()))
		}
	}
}

// CollapseSnapshots exposes the active snapshot count, mainly for
// diagnostics and tests.
func (s *Service) CollapseSnapshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collapse.Len()
}
