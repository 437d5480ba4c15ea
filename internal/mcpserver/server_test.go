package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/dagaz/internal/boardservice"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/testutil"
)

func testServer(t *testing.T) (*Server, *boardservice.Service) {
	t.Helper()
	db := testutil.TestDB(t)
	svc, err := boardservice.NewService(db, db, nil, boardservice.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper; invoke the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error
	switch name {
	case "board_overview":
		result, err = srv.boardOverview(ctx, req)
	case "list_sections":
		result, err = srv.listSections(ctx, req)
	case "create_section":
		result, err = srv.createSection(ctx, req)
	case "move_task":
		result, err = srv.moveTask(ctx, req)
	case "undo_board":
		result, err = srv.undoBoard(ctx, req)
	case "redo_board":
		result, err = srv.redoBoard(ctx, req)
	case "get_section_contract":
		result, err = srv.getSectionContract(ctx, req)
	default:
		t.Fatalf("unknown tool %q", name)
	}
	if err != nil {
		t.Fatalf("tool %s returned transport error: %v", name, err)
	}
	return result
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T", res.Content[0])
	}
	return tc.Text
}

func TestCreateSectionTool(t *testing.T) {
	srv, svc := testServer(t)

	res := callTool(t, srv, "create_section", map[string]interface{}{
		"name": "Done", "type": "status", "property_value": "done",
		"x": 0.0, "y": 0.0, "width": 200.0, "height": 200.0,
		"auto_collect": true,
	})
	if res.IsError {
		t.Fatalf("create_section error: %s", textOf(t, res))
	}
	if len(svc.Sections()) != 1 {
		t.Fatalf("sections = %d", len(svc.Sections()))
	}
}

func TestCreateSectionToolValidation(t *testing.T) {
	srv, _ := testServer(t)
	res := callTool(t, srv, "create_section", map[string]interface{}{
		"name": "Bad", "type": "priority",
		"x": 0.0, "y": 0.0, "width": 100.0, "height": 100.0,
	})
	if !res.IsError {
		t.Error("smart section without property_value should fail")
	}
}

func TestMoveTaskToolAutoCollects(t *testing.T) {
	srv, svc := testServer(t)
	if _, err := svc.CreateSection(boardservice.CreateSectionInput{
		Name: "Done", Type: models.SectionStatus, PropertyValue: "done",
		Position: models.Rect{Width: 200, Height: 200}, AutoCollect: true,
	}); err != nil {
		t.Fatal(err)
	}
	task, err := svc.CreateTask(models.Task{Title: "Ship", Status: "planned"})
	if err != nil {
		t.Fatal(err)
	}

	res := callTool(t, srv, "move_task", map[string]interface{}{
		"task_id": task.ID, "x": 50.0, "y": 50.0,
	})
	if res.IsError {
		t.Fatalf("move_task error: %s", textOf(t, res))
	}
	got, _ := svc.Task(task.ID)
	if got.Status != "done" {
		t.Errorf("status = %q", got.Status)
	}

	// Undo through the tool restores the pre-move state.
	res = callTool(t, srv, "undo_board", nil)
	if textOf(t, res) != "undone" {
		t.Errorf("undo result = %q", textOf(t, res))
	}
	got, _ = svc.Task(task.ID)
	if got.Status != "planned" || got.CanvasPosition != nil {
		t.Errorf("after undo: %+v", got)
	}
}

func TestUndoToolEmptyStack(t *testing.T) {
	srv, _ := testServer(t)
	res := callTool(t, srv, "undo_board", nil)
	if textOf(t, res) != "nothing to undo" {
		t.Errorf("result = %q", textOf(t, res))
	}
	res = callTool(t, srv, "redo_board", nil)
	if textOf(t, res) != "nothing to redo" {
		t.Errorf("result = %q", textOf(t, res))
	}
}

func TestBoardOverview(t *testing.T) {
	srv, svc := testServer(t)
	_, _ = svc.CreateSection(boardservice.CreateSectionInput{
		Name: "Urgent", Type: models.SectionPriority, PropertyValue: "high",
		Position: models.Rect{Width: 100, Height: 100},
	})
	_, _ = svc.CreateTask(models.Task{Title: "inbox task"})

	text := textOf(t, callTool(t, srv, "board_overview", nil))
	if !strings.Contains(text, "1 tasks (1 in inbox)") {
		t.Errorf("overview = %q", text)
	}
	if !strings.Contains(text, "Urgent (priority=high, expanded)") {
		t.Errorf("overview = %q", text)
	}
}

func TestSectionContractTool(t *testing.T) {
	srv, _ := testServer(t)
	text := textOf(t, callTool(t, srv, "get_section_contract", nil))
	if !strings.Contains(text, "one-way") {
		t.Errorf("contract missing auto-collect rule: %q", text[:80])
	}
}
