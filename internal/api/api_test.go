package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/dagaz/internal/boardservice"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/testutil"
)

// testEnv sets up a temp SQLite store, board service, and router.
// An empty authToken means auth disabled.
func testEnv(t *testing.T, authToken string) (*boardservice.Service, http.Handler) {
	t.Helper()
	db := testutil.TestDB(t)
	svc, err := boardservice.NewService(db, db, nil, boardservice.Options{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetSection(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/sections", map[string]any{
		"name":           "Done",
		"type":           "status",
		"property_value": "done",
		"position":       map[string]float64{"x": 0, "y": 0, "width": 200, "height": 200},
		"auto_collect":   true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var sec models.Section
	_ = json.Unmarshal(w.Body.Bytes(), &sec)
	if sec.ID == "" || sec.Type != models.SectionStatus {
		t.Errorf("section = %+v", sec)
	}

	w = do(t, router, http.MethodGet, "/sections/"+sec.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
}

func TestCreateSectionValidationError(t *testing.T) {
	_, router := testEnv(t, "")
	// Smart section without a property value.
	w := do(t, router, http.MethodPost, "/sections", map[string]any{
		"name":     "Nameless predicate",
		"type":     "priority",
		"position": map[string]float64{"width": 100, "height": 100},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestTypeChangeRejected(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/sections", map[string]any{
		"name": "Pen", "type": "custom",
		"position": map[string]float64{"width": 100, "height": 100},
	})
	var sec models.Section
	_ = json.Unmarshal(w.Body.Bytes(), &sec)

	w = do(t, router, http.MethodPatch, "/sections/"+sec.ID, map[string]any{"type": "status"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("type change status = %d, want 422: %s", w.Code, w.Body.String())
	}
}

func TestMoveTaskAutoCollects(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/sections", map[string]any{
		"name": "Done", "type": "status", "property_value": "done",
		"position":     map[string]float64{"x": 0, "y": 0, "width": 200, "height": 200},
		"auto_collect": true,
	})
	w := do(t, router, http.MethodPost, "/tasks", map[string]any{"title": "Ship", "status": "planned"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create task = %d", w.Code)
	}
	var task models.Task
	_ = json.Unmarshal(w.Body.Bytes(), &task)

	w = do(t, router, http.MethodPost, "/tasks/"+task.ID+"/move", map[string]float64{"x": 50, "y": 50})
	if w.Code != http.StatusOK {
		t.Fatalf("move = %d: %s", w.Code, w.Body.String())
	}
	var resp MoveTaskResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.SectionID == "" || resp.Task.Status != "done" {
		t.Errorf("move response = %+v", resp)
	}
}

func TestUndoRedoEndpoints(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/tasks", map[string]any{"title": "a"})
	do(t, router, http.MethodPost, "/tasks", map[string]any{"title": "b"})

	w := do(t, router, http.MethodPost, "/history/undo", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("undo = %d", w.Code)
	}
	var resp struct {
		Applied bool          `json:"applied"`
		History HistoryStatus `json:"history"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Applied || !resp.History.CanRedo {
		t.Errorf("undo resp = %+v", resp)
	}

	w = do(t, router, http.MethodGet, "/tasks", nil)
	var list struct {
		Tasks []models.Task `json:"tasks"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Tasks) != 1 || list.Tasks[0].Title != "a" {
		t.Errorf("tasks after undo = %+v", list.Tasks)
	}

	w = do(t, router, http.MethodPost, "/history/redo", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Applied {
		t.Errorf("redo resp = %+v", resp)
	}

	// Empty redo stack is a no-op 200 with applied=false.
	w = do(t, router, http.MethodPost, "/history/redo", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Applied {
		t.Errorf("exhausted redo: code=%d resp=%+v", w.Code, resp)
	}
}

func TestResolveEndpoint(t *testing.T) {
	svc, router := testEnv(t, "")
	sec, err := svc.CreateSection(boardservice.CreateSectionInput{
		Name: "Done", Type: models.SectionStatus, PropertyValue: "done",
		Position: models.Rect{Width: 200, Height: 200}, AutoCollect: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	task, err := svc.CreateTask(models.Task{Title: "t", Status: "planned"})
	if err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodPost, "/resolve", map[string]any{
		"task_id":  task.ID,
		"position": map[string]float64{"x": 10, "y": 10},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("resolve = %d: %s", w.Code, w.Body.String())
	}
	var resp ResolveResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.SectionID != sec.ID {
		t.Errorf("resolved = %q, want %q", resp.SectionID, sec.ID)
	}

	// Inbox task (null position) resolves to nothing. The omitted
	// section id must not inherit the previous response's value.
	w = do(t, router, http.MethodPost, "/resolve", map[string]any{"task_id": task.ID})
	resp = ResolveResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.SectionID != "" {
		t.Errorf("inbox resolve: code=%d resp=%+v", w.Code, resp)
	}
}

func TestCollapseEndpoint(t *testing.T) {
	svc, router := testEnv(t, "")
	sec, _ := svc.CreateSection(boardservice.CreateSectionInput{
		Name: "Pen", Type: models.SectionCustom,
		Position: models.Rect{Width: 300, Height: 300},
	})

	w := do(t, router, http.MethodPost, "/sections/"+sec.ID+"/collapse", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("collapse = %d", w.Code)
	}
	var got models.Section
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if !got.IsCollapsed {
		t.Errorf("section = %+v", got)
	}

	w = do(t, router, http.MethodPost, "/sections/"+sec.ID+"/collapse", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.IsCollapsed || got.Position.Height != 300 {
		t.Errorf("expanded section = %+v", got)
	}
}

func TestAuthRequired(t *testing.T) {
	_, router := testEnv(t, "sekret")

	w := do(t, router, http.MethodGet, "/board", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/board", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated = %d, want 200", rec.Code)
	}
}

func TestNotFoundPaths(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/tasks/ghost", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing task = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/sections/ghost", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing section = %d", w.Code)
	}
}
