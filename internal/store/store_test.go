package store

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "dagaz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTask(id, title string) models.Task {
	now := time.Now().UTC().Truncate(time.Second)
	return models.Task{ID: id, Title: title, Status: "planned", CreatedAt: now, UpdatedAt: now}
}

func TestTaskCreateGetRoundTrip(t *testing.T) {
	db := testDB(t)
	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	task := newTask("t1", "Plan sprint")
	task.Priority = "high"
	task.DueDate = &due
	task.Subtasks = []string{"t2"}
	task.CanvasPosition = &models.Point{X: 50, Y: 60}
	task.Meta = map[string]any{"labels": []any{"focus"}}

	if err := db.CreateTask(task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	got, err := db.GetTask("t1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Title != "Plan sprint" || got.Priority != "high" {
		t.Errorf("task = %+v", got)
	}
	if got.CanvasPosition == nil || got.CanvasPosition.X != 50 || got.CanvasPosition.Y != 60 {
		t.Errorf("position = %+v", got.CanvasPosition)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("due = %v", got.DueDate)
	}
	if len(got.Subtasks) != 1 || got.Subtasks[0] != "t2" {
		t.Errorf("subtasks = %v", got.Subtasks)
	}
}

func TestCreateDuplicateTask(t *testing.T) {
	db := testDB(t)
	_ = db.CreateTask(newTask("t1", "a"))
	if err := db.CreateTask(newTask("t1", "b")); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create = %v, want ErrAlreadyExists", err)
	}
}

func TestPatchTask(t *testing.T) {
	db := testDB(t)
	_ = db.CreateTask(newTask("t1", "a"))

	status := "done"
	pos := models.Point{X: 10, Y: 20}
	got, err := db.PatchTask("t1", models.TaskPatch{Status: &status, Position: &pos})
	if err != nil {
		t.Fatalf("PatchTask: %v", err)
	}
	if got.Status != "done" || got.CanvasPosition == nil || got.CanvasPosition.Y != 20 {
		t.Errorf("patched = %+v", got)
	}
	// Untouched fields survive.
	if got.Title != "a" {
		t.Errorf("title clobbered: %q", got.Title)
	}

	// Clearing the position sends the task back to the inbox.
	got, err = db.PatchTask("t1", models.TaskPatch{ClearPosition: true})
	if err != nil {
		t.Fatalf("PatchTask clear: %v", err)
	}
	if got.CanvasPosition != nil {
		t.Errorf("position should be cleared, got %+v", got.CanvasPosition)
	}
}

func TestPatchMissingTask(t *testing.T) {
	db := testDB(t)
	if _, err := db.PatchTask("ghost", models.TaskPatch{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReplaceTasks(t *testing.T) {
	db := testDB(t)
	_ = db.CreateTask(newTask("t1", "a"))
	_ = db.CreateTask(newTask("t2", "b"))

	if err := db.ReplaceTasks([]models.Task{newTask("t3", "restored")}); err != nil {
		t.Fatalf("ReplaceTasks: %v", err)
	}
	all, err := db.AllTasks()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].ID != "t3" {
		t.Errorf("tasks after replace = %+v", all)
	}
}

func TestDeleteTask(t *testing.T) {
	db := testDB(t)
	_ = db.CreateTask(newTask("t1", "a"))
	if err := db.DeleteTask("t1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := db.DeleteTask("t1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestSectionRoundTrip(t *testing.T) {
	db := testDB(t)
	sec := models.Section{
		ID:            "s1",
		Name:          "Done",
		Type:          models.SectionStatus,
		PropertyValue: "done",
		Position:      models.Rect{X: 0, Y: 0, Width: 200, Height: 200},
		AutoCollect:   true,
		Color:         "#22c55e",
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	if err := db.UpsertSection(sec); err != nil {
		t.Fatalf("UpsertSection: %v", err)
	}

	sec.IsCollapsed = true
	sec.CollapsedWidth = 200
	sec.CollapsedHeight = 200
	sec.Position.Height = 48
	if err := db.UpsertSection(sec); err != nil {
		t.Fatalf("UpsertSection update: %v", err)
	}

	all, err := db.AllSections()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("sections = %d", len(all))
	}
	got := all[0]
	if !got.IsCollapsed || got.CollapsedHeight != 200 || got.Position.Height != 48 {
		t.Errorf("section = %+v", got)
	}
	if got.Type != models.SectionStatus || got.PropertyValue != "done" {
		t.Errorf("predicate fields = %v %q", got.Type, got.PropertyValue)
	}
}

func TestCollapseSnapshotPersistence(t *testing.T) {
	db := testDB(t)
	snap := models.CollapseSnapshot{
		SectionID:      "s1",
		OriginalWidth:  200,
		OriginalHeight: 200,
		Placements: []models.TaskPlacement{
			{TaskID: "t1", Absolute: models.Point{X: 50, Y: 50}, Relative: models.Point{X: 50, Y: 50}},
		},
	}
	if err := db.SaveCollapseSnapshot(snap); err != nil {
		t.Fatalf("SaveCollapseSnapshot: %v", err)
	}
	all, err := db.AllCollapseSnapshots()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Placements[0].TaskID != "t1" {
		t.Errorf("snapshots = %+v", all)
	}

	if err := db.DeleteCollapseSnapshot("s1"); err != nil {
		t.Fatal(err)
	}
	all, _ = db.AllCollapseSnapshots()
	if len(all) != 0 {
		t.Errorf("snapshot leaked: %+v", all)
	}
}

func TestDeleteSectionPrunesSnapshot(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertSection(models.Section{ID: "s1", Type: models.SectionCustom, CreatedAt: time.Now()})
	_ = db.SaveCollapseSnapshot(models.CollapseSnapshot{SectionID: "s1"})

	if err := db.DeleteSection("s1"); err != nil {
		t.Fatalf("DeleteSection: %v", err)
	}
	ok, err := db.sectionExists("s1")
	if err != nil || ok {
		t.Errorf("section still present: ok=%v err=%v", ok, err)
	}
	snaps, _ := db.AllCollapseSnapshots()
	if len(snaps) != 0 {
		t.Errorf("orphaned snapshot survived: %+v", snaps)
	}
}
