// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Dagaz board tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dagaz/internal/boardservice"
	"github.com/starford/dagaz/internal/models"
)

// Server wraps the MCP server with board tools.
type Server struct {
	mcp *server.MCPServer
	svc *boardservice.Service
}

// New creates a new MCP server with all board tools registered.
func New(svc *boardservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Dagaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("board_overview",
		mcp.WithDescription("Summarize the board: sections with their predicates and task counts, inbox size, undo/redo availability."),
	), s.boardOverview)

	s.mcp.AddTool(mcp.NewTool("list_sections",
		mcp.WithDescription("List all canvas sections with geometry, type, and collapse state as JSON."),
	), s.listSections)

	s.mcp.AddTool(mcp.NewTool("create_section",
		mcp.WithDescription("Create a canvas section. Smart types (priority, status, project, timeline) "+
			"require a property_value and auto-assign it to tasks dropped inside when auto_collect is set. "+
			"Read the section contract first via the get_section_contract tool."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("type", mcp.Required(), mcp.Description("One of: priority, status, project, timeline, custom")),
		mcp.WithString("property_value", mcp.Description("Value the section assigns (required for smart types; timeline uses YYYY-MM-DD)")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Left edge on the canvas")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Top edge on the canvas")),
		mcp.WithNumber("width", mcp.Required(), mcp.Description("Section width")),
		mcp.WithNumber("height", mcp.Required(), mcp.Description("Section height")),
		mcp.WithBoolean("auto_collect", mcp.Description("Auto-assign the property to tasks dropped inside")),
	), s.createSection)

	s.mcp.AddTool(mcp.NewTool("move_task",
		mcp.WithDescription("Move a task to a canvas position. Dropping it inside an auto-collect smart "+
			"section assigns that section's property; the move is undoable."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("ID of the task to move")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Drop position X")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Drop position Y")),
	), s.moveTask)

	s.mcp.AddTool(mcp.NewTool("undo_board",
		mcp.WithDescription("Undo the most recent board mutation (task create/edit/delete/move)."),
	), s.undoBoard)

	s.mcp.AddTool(mcp.NewTool("redo_board",
		mcp.WithDescription("Re-apply the most recently undone board mutation."),
	), s.redoBoard)

	s.mcp.AddTool(mcp.NewTool("get_section_contract",
		mcp.WithDescription("Returns the canonical section semantics contract. "+
			"Call this before creating sections to pick the right type and property value."),
	), s.getSectionContract)

	// Resource: section semantics contract.
	s.mcp.AddResource(
		mcp.NewResource("dagaz://section-semantics", "Section Semantics Contract",
			mcp.WithResourceDescription("Canonical behavior of smart and custom canvas sections."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSectionContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) boardOverview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks, err := s.svc.Tasks()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var b strings.Builder
	inbox := 0
	for _, t := range tasks {
		if t.CanvasPosition == nil {
			inbox++
		}
	}
	fmt.Fprintf(&b, "%d tasks (%d in inbox), %d sections\n", len(tasks), inbox, len(s.svc.Sections()))
	for _, sec := range s.svc.Sections() {
		state := "expanded"
		if sec.IsCollapsed {
			state = "collapsed"
		}
		pred := "manual"
		if sec.Type.Smart() {
			pred = fmt.Sprintf("%s=%s", sec.Type, sec.PropertyValue)
		}
		fmt.Fprintf(&b, "- %s (%s, %s)\n", sec.Name, pred, state)
	}
	fmt.Fprintf(&b, "undo available: %v, redo available: %v\n", s.svc.CanUndo(), s.svc.CanRedo())
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) listSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.svc.Sections(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, err := req.RequireFloat("x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, err := req.RequireFloat("y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	width, err := req.RequireFloat("width")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	height, err := req.RequireFloat("height")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sec, err := s.svc.CreateSection(boardservice.CreateSectionInput{
		Name:          name,
		Type:          models.SectionType(typ),
		PropertyValue: req.GetString("property_value", ""),
		Position:      models.Rect{X: x, Y: y, Width: width, Height: height},
		AutoCollect:   req.GetBool("auto_collect", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created section %s (%s)", sec.ID, sec.Name)), nil
}

func (s *Server) moveTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, err := req.RequireFloat("x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, err := req.RequireFloat("y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	task, sectionID, err := s.svc.MoveTask(taskID, models.Point{X: x, Y: y})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if sectionID == "" {
		return mcp.NewToolResultText(fmt.Sprintf("moved %q to (%.0f, %.0f), outside all sections", task.Title, x, y)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved %q to (%.0f, %.0f) into section %s", task.Title, x, y, sectionID)), nil
}

func (s *Server) undoBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	applied, err := s.svc.Undo()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !applied {
		return mcp.NewToolResultText("nothing to undo"), nil
	}
	return mcp.NewToolResultText("undone"), nil
}

func (s *Server) redoBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	applied, err := s.svc.Redo()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !applied {
		return mcp.NewToolResultText("nothing to redo"), nil
	}
	return mcp.NewToolResultText("redone"), nil
}

func (s *Server) getSectionContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SectionSemanticsContract), nil
}

func (s *Server) readSectionContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "dagaz://section-semantics",
			MIMEType: "text/markdown",
			Text:     SectionSemanticsContract,
		},
	}, nil
}
