package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/starford/dagaz/internal/models"
)

const sectionColumns = `id, name, type, property_value, x, y, width, height,
	collapsed_width, collapsed_height, is_collapsed, auto_collect, color, layout, created_at`

// AllSections returns every section ordered by creation time.
func (db *DB) AllSections() ([]models.Section, error) {
	rows, err := db.conn.Query(`SELECT ` + sectionColumns + ` FROM sections ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("store: all sections: %w", err)
	}
	defer rows.Close()

	var out []models.Section
	for rows.Next() {
		var s models.Section
		var typ string
		err := rows.Scan(&s.ID, &s.Name, &typ, &s.PropertyValue,
			&s.Position.X, &s.Position.Y, &s.Position.Width, &s.Position.Height,
			&s.CollapsedWidth, &s.CollapsedHeight, &s.IsCollapsed, &s.AutoCollect,
			&s.Color, &s.Layout, &s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("store: scan section: %w", err)
		}
		s.Type = models.SectionType(typ)
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpsertSection inserts or replaces a section record.
func (db *DB) UpsertSection(sec models.Section) error {
	_, err := db.conn.Exec(`
		INSERT INTO sections (`+sectionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name             = excluded.name,
			property_value   = excluded.property_value,
			x                = excluded.x,
			y                = excluded.y,
			width            = excluded.width,
			height           = excluded.height,
			collapsed_width  = excluded.collapsed_width,
			collapsed_height = excluded.collapsed_height,
			is_collapsed     = excluded.is_collapsed,
			auto_collect     = excluded.auto_collect,
			color            = excluded.color,
			layout           = excluded.layout
	`, sec.ID, sec.Name, string(sec.Type), sec.PropertyValue,
		sec.Position.X, sec.Position.Y, sec.Position.Width, sec.Position.Height,
		sec.CollapsedWidth, sec.CollapsedHeight, sec.IsCollapsed, sec.AutoCollect,
		sec.Color, sec.Layout, sec.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert section %s: %w", sec.ID, err)
	}
	return nil
}

// DeleteSection removes a section and any collapse snapshot it owns.
func (db *DB) DeleteSection(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM collapse_snapshots WHERE section_id = ?`, id)
	if _, err := tx.Exec(`DELETE FROM sections WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete section %s: %w", id, err)
	}
	return tx.Commit()
}

// AllCollapseSnapshots returns the active snapshots, used to restore
// in-progress collapsed state after a reload.
func (db *DB) AllCollapseSnapshots() ([]models.CollapseSnapshot, error) {
	rows, err := db.conn.Query(`SELECT section_id, placements, original_width, original_height FROM collapse_snapshots`)
	if err != nil {
		return nil, fmt.Errorf("store: all snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.CollapseSnapshot
	for rows.Next() {
		var snap models.CollapseSnapshot
		var placements string
		if err := rows.Scan(&snap.SectionID, &placements, &snap.OriginalWidth, &snap.OriginalHeight); err != nil {
			return nil, fmt.Errorf("store: scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(placements), &snap.Placements); err != nil {
			return nil, fmt.Errorf("store: decode placements for %s: %w", snap.SectionID, err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// SaveCollapseSnapshot persists (or replaces) a section's snapshot.
func (db *DB) SaveCollapseSnapshot(snap models.CollapseSnapshot) error {
	placements, err := json.Marshal(snap.Placements)
	if err != nil {
		return fmt.Errorf("store: encode placements: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO collapse_snapshots (section_id, placements, original_width, original_height)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(section_id) DO UPDATE SET
			placements      = excluded.placements,
			original_width  = excluded.original_width,
			original_height = excluded.original_height
	`, snap.SectionID, string(placements), snap.OriginalWidth, snap.OriginalHeight)
	if err != nil {
		return fmt.Errorf("store: save snapshot %s: %w", snap.SectionID, err)
	}
	return nil
}

// DeleteCollapseSnapshot removes the snapshot for a section, if any.
func (db *DB) DeleteCollapseSnapshot(sectionID string) error {
	if _, err := db.conn.Exec(`DELETE FROM collapse_snapshots WHERE section_id = ?`, sectionID); err != nil {
		return fmt.Errorf("store: delete snapshot %s: %w", sectionID, err)
	}
	return nil
}

// sectionExists reports whether a section row exists. Used in tests.
func (db *DB) sectionExists(id string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`SELECT 1 FROM sections WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
