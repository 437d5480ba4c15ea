package collapse

import (
	"testing"

	"github.com/starford/dagaz/internal/models"
)

type recordingPersister struct {
	saved   []string
	deleted []string
}

func (p *recordingPersister) SaveCollapseSnapshot(snap models.CollapseSnapshot) error {
	p.saved = append(p.saved, snap.SectionID)
	return nil
}

func (p *recordingPersister) DeleteCollapseSnapshot(sectionID string) error {
	p.deleted = append(p.deleted, sectionID)
	return nil
}

func snap(sectionID string) models.CollapseSnapshot {
	return models.CollapseSnapshot{
		SectionID:      sectionID,
		OriginalWidth:  200,
		OriginalHeight: 150,
		Placements: []models.TaskPlacement{
			{TaskID: "t1", Absolute: models.Point{X: 50, Y: 50}, Relative: models.Point{X: 10, Y: 10}},
		},
	}
}

func TestSaveConsumeRoundTrip(t *testing.T) {
	s := NewStore(nil)
	if err := s.Save(snap("s1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !s.Has("s1") {
		t.Fatal("snapshot missing after save")
	}

	got, ok, err := s.Consume("s1")
	if err != nil || !ok {
		t.Fatalf("Consume: ok=%v err=%v", ok, err)
	}
	if got.OriginalWidth != 200 || len(got.Placements) != 1 {
		t.Errorf("snapshot content = %+v", got)
	}
	// Consume is read + delete.
	if _, ok, _ := s.Consume("s1"); ok {
		t.Error("second consume should find nothing")
	}
}

func TestConsumeMissing(t *testing.T) {
	s := NewStore(nil)
	if _, ok, err := s.Consume("ghost"); ok || err != nil {
		t.Errorf("missing consume: ok=%v err=%v", ok, err)
	}
}

func TestDiscard(t *testing.T) {
	p := &recordingPersister{}
	s := NewStore(p)
	_ = s.Save(snap("s1"))
	if err := s.Discard("s1"); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if s.Has("s1") || s.Len() != 0 {
		t.Error("snapshot leaked after discard")
	}
	if len(p.deleted) != 1 || p.deleted[0] != "s1" {
		t.Errorf("persister deletes = %v", p.deleted)
	}
	// Discarding a missing snapshot is a no-op, not an error.
	if err := s.Discard("s1"); err != nil {
		t.Errorf("repeat discard: %v", err)
	}
}

func TestLoadSeedsFromPersistence(t *testing.T) {
	s := NewStore(nil)
	s.Load([]models.CollapseSnapshot{snap("s1"), snap("s2")})
	if s.Len() != 2 || !s.Has("s2") {
		t.Errorf("load: len=%d", s.Len())
	}
}
