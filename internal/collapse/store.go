// Package collapse keeps the per-section snapshots that let a collapsed
// section restore its exact pre-collapse layout. The store is decoupled
// from any UI lifecycle: save on collapse, consume on expand, discard
// when a collapsed section is deleted.
package collapse

import "github.com/starford/dagaz/internal/models"

// Persister is the optional durability hook. Active snapshots are
// persisted so a collapsed section survives a restart; the in-memory
// map stays authoritative within a process.
type Persister interface {
	SaveCollapseSnapshot(snap models.CollapseSnapshot) error
	DeleteCollapseSnapshot(sectionID string) error
}

// Store maps sectionID -> collapse snapshot. Operations are synchronous
// and atomic under the board service's serialization; the store itself
// holds no lock.
type Store struct {
	snaps     map[string]models.CollapseSnapshot
	persister Persister
}

// NewStore creates an empty store. persister may be nil.
func NewStore(persister Persister) *Store {
	return &Store{
		snaps:     make(map[string]models.CollapseSnapshot),
		persister: persister,
	}
}

// Load seeds the store with snapshots restored from persistence.
func (s *Store) Load(snaps []models.CollapseSnapshot) {
	for _, snap := range snaps {
		s.snaps[snap.SectionID] = snap
	}
}

// Save records the snapshot for its section, replacing any previous one.
func (s *Store) Save(snap models.CollapseSnapshot) error {
	s.snaps[snap.SectionID] = snap
	if s.persister != nil {
		return s.persister.SaveCollapseSnapshot(snap)
	}
	return nil
}

// Consume returns the snapshot for sectionID and removes it. The second
// return is false when no snapshot exists.
func (s *Store) Consume(sectionID string) (models.CollapseSnapshot, bool, error) {
	snap, ok := s.snaps[sectionID]
	if !ok {
		return models.CollapseSnapshot{}, false, nil
	}
	delete(s.snaps, sectionID)
	if s.persister != nil {
		if err := s.persister.DeleteCollapseSnapshot(sectionID); err != nil {
			return snap, true, err
		}
	}
	return snap, true, nil
}

// Discard drops the snapshot for sectionID without restoring it. Used
// when a section is deleted while collapsed so the snapshot does not leak.
func (s *Store) Discard(sectionID string) error {
	if _, ok := s.snaps[sectionID]; !ok {
		return nil
	}
	delete(s.snaps, sectionID)
	if s.persister != nil {
		return s.persister.DeleteCollapseSnapshot(sectionID)
	}
	return nil
}

// PruneTask removes every placement referencing taskID across all
// active snapshots. Called when a task is deleted so stale references
// do not linger until expand time. Returns the affected section ids.
func (s *Store) PruneTask(taskID string) ([]string, error) {
	var pruned []string
	for id, snap := range s.snaps {
		kept := snap.Placements[:0]
		for _, p := range snap.Placements {
			if p.TaskID != taskID {
				kept = append(kept, p)
			}
		}
		if len(kept) == len(snap.Placements) {
			continue
		}
		snap.Placements = kept
		s.snaps[id] = snap
		pruned = append(pruned, id)
		if s.persister != nil {
			if err := s.persister.SaveCollapseSnapshot(snap); err != nil {
				return pruned, err
			}
		}
	}
	return pruned, nil
}

// Has reports whether a snapshot exists for sectionID.
func (s *Store) Has(sectionID string) bool {
	_, ok := s.snaps[sectionID]
	return ok
}

// Len returns the number of active snapshots.
func (s *Store) Len() int { return len(s.snaps) }
