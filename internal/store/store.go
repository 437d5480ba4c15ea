// Package store provides SQLite-backed persistence for tasks, sections,
// and active collapse snapshots. History stacks are deliberately not
// persisted; they reset on every fresh load.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/dagaz/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tasks (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL DEFAULT '',
	priority       TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT '',
	project_id     TEXT NOT NULL DEFAULT '',
	due_date       DATETIME,
	parent_task_id TEXT NOT NULL DEFAULT '',
	subtasks       TEXT NOT NULL DEFAULT '[]',
	pos_x          REAL,
	pos_y          REAL,
	meta           TEXT NOT NULL DEFAULT '{}',
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sections (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	type             TEXT NOT NULL,
	property_value   TEXT NOT NULL DEFAULT '',
	x                REAL NOT NULL DEFAULT 0,
	y                REAL NOT NULL DEFAULT 0,
	width            REAL NOT NULL DEFAULT 0,
	height           REAL NOT NULL DEFAULT 0,
	collapsed_width  REAL NOT NULL DEFAULT 0,
	collapsed_height REAL NOT NULL DEFAULT 0,
	is_collapsed     INTEGER NOT NULL DEFAULT 0,
	auto_collect     INTEGER NOT NULL DEFAULT 0,
	color            TEXT NOT NULL DEFAULT '',
	layout           TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS collapse_snapshots (
	section_id      TEXT PRIMARY KEY,
	placements      TEXT NOT NULL DEFAULT '[]',
	original_width  REAL NOT NULL DEFAULT 0,
	original_height REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tasks_status   ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_project  ON tasks(project_id);
`

// DB wraps a sql.DB with board-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// TaskStore is the task-collection contract the board engine consumes.
// PatchTask is the only mutation channel into individual tasks;
// ReplaceTasks exists solely for undo/redo write-back.
type TaskStore interface {
	AllTasks() ([]models.Task, error)
	GetTask(id string) (*models.Task, error)
	CreateTask(t models.Task) error
	PatchTask(id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(id string) error
	ReplaceTasks(ts []models.Task) error
}

// SectionStore persists sections and their active collapse snapshots
// in the flat record layout the persistence layer expects.
type SectionStore interface {
	AllSections() ([]models.Section, error)
	UpsertSection(sec models.Section) error
	DeleteSection(id string) error
	AllCollapseSnapshots() ([]models.CollapseSnapshot, error)
	SaveCollapseSnapshot(snap models.CollapseSnapshot) error
	DeleteCollapseSnapshot(sectionID string) error
}

// Verify *DB satisfies both contracts at compile time.
var (
	_ TaskStore    = (*DB)(nil)
	_ SectionStore = (*DB)(nil)
)
