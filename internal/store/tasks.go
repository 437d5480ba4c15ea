package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

const taskColumns = `id, title, priority, status, project_id, due_date,
	parent_task_id, subtasks, pos_x, pos_y, meta, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var (
		t        models.Task
		due      sql.NullTime
		subtasks string
		posX     sql.NullFloat64
		posY     sql.NullFloat64
		meta     string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Priority, &t.Status, &t.ProjectID, &due,
		&t.ParentTaskID, &subtasks, &posX, &posY, &meta, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	if posX.Valid && posY.Valid {
		t.CanvasPosition = &models.Point{X: posX.Float64, Y: posY.Float64}
	}
	if err := json.Unmarshal([]byte(subtasks), &t.Subtasks); err != nil {
		return nil, fmt.Errorf("store: decode subtasks for %s: %w", t.ID, err)
	}
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &t.Meta); err != nil {
			return nil, fmt.Errorf("store: decode meta for %s: %w", t.ID, err)
		}
	}
	return &t, nil
}

func taskArgs(t models.Task) ([]any, error) {
	subtasks, err := json.Marshal(t.Subtasks)
	if err != nil {
		return nil, fmt.Errorf("store: encode subtasks: %w", err)
	}
	if t.Subtasks == nil {
		subtasks = []byte("[]")
	}
	meta := []byte("{}")
	if t.Meta != nil {
		meta, err = json.Marshal(t.Meta)
		if err != nil {
			return nil, fmt.Errorf("store: encode meta: %w", err)
		}
	}
	var due any
	if t.DueDate != nil {
		due = *t.DueDate
	}
	var posX, posY any
	if t.CanvasPosition != nil {
		posX = t.CanvasPosition.X
		posY = t.CanvasPosition.Y
	}
	return []any{t.ID, t.Title, t.Priority, t.Status, t.ProjectID, due,
		t.ParentTaskID, string(subtasks), posX, posY, string(meta),
		t.CreatedAt, t.UpdatedAt}, nil
}

const insertTaskSQL = `
	INSERT INTO tasks (` + taskColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title          = excluded.title,
		priority       = excluded.priority,
		status         = excluded.status,
		project_id     = excluded.project_id,
		due_date       = excluded.due_date,
		parent_task_id = excluded.parent_task_id,
		subtasks       = excluded.subtasks,
		pos_x          = excluded.pos_x,
		pos_y          = excluded.pos_y,
		meta           = excluded.meta,
		updated_at     = excluded.updated_at
`

// AllTasks returns every task ordered by creation time.
func (db *DB) AllTasks() ([]models.Task, error) {
	rows, err := db.conn.Query(`SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("store: all tasks: %w", err)
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// GetTask returns the task with the given id, or apperr.ErrNotFound.
func (db *DB) GetTask(id string) (*models.Task, error) {
	t, err := scanTask(db.conn.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get task %s: %w", id, err)
	}
	return t, nil
}

// CreateTask inserts a new task. The id must not already exist.
func (db *DB) CreateTask(t models.Task) error {
	if _, err := db.GetTask(t.ID); err == nil {
		return apperr.ErrAlreadyExists
	}
	args, err := taskArgs(t)
	if err != nil {
		return err
	}
	if _, err := db.conn.Exec(insertTaskSQL, args...); err != nil {
		return fmt.Errorf("store: create task: %w", err)
	}
	return nil
}

// PatchTask applies a partial update to the task and returns the
// updated record. Nil patch fields leave the stored value untouched.
func (db *DB) PatchTask(id string, patch models.TaskPatch) (*models.Task, error) {
	t, err := db.GetTask(id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.ProjectID != nil {
		t.ProjectID = *patch.ProjectID
	}
	if patch.DueDate != nil {
		d := *patch.DueDate
		t.DueDate = &d
	}
	if patch.ClearPosition {
		t.CanvasPosition = nil
	} else if patch.Position != nil {
		p := *patch.Position
		t.CanvasPosition = &p
	}
	if patch.Meta != nil {
		t.Meta = patch.Meta
	}
	t.UpdatedAt = time.Now().UTC()

	args, err := taskArgs(*t)
	if err != nil {
		return nil, err
	}
	if _, err := db.conn.Exec(insertTaskSQL, args...); err != nil {
		return nil, fmt.Errorf("store: patch task %s: %w", id, err)
	}
	return t, nil
}

// DeleteTask removes the task with the given id.
func (db *DB) DeleteTask(id string) error {
	res, err := db.conn.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ReplaceTasks swaps the whole task collection atomically. Used by
// undo/redo write-back, where the restored snapshot is authoritative.
func (db *DB) ReplaceTasks(ts []models.Task) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM tasks`); err != nil {
		return fmt.Errorf("store: clear tasks: %w", err)
	}
	stmt, err := tx.Prepare(insertTaskSQL)
	if err != nil {
		return fmt.Errorf("store: prepare task insert: %w", err)
	}
	defer stmt.Close()
	for _, t := range ts {
		args, err := taskArgs(t)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("store: insert task %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}
