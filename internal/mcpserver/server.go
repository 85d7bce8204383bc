// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Ansuz prompt tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/runeberg/ansuz/internal/commands"
	"github.com/runeberg/ansuz/internal/models"
	"github.com/runeberg/ansuz/internal/storage"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp      *server.MCPServer
	store    storage.Provider
	commands *commands.Registry
}

// New creates a new MCP server with all Ansuz tools registered.
func New(store storage.Provider, cmds *commands.Registry) *Server {
	s := &Server{store: store, commands: cmds}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_prompts",
		mcp.WithDescription("List the prompt commands bound from configuration, with their ids and display names."),
	), s.listPrompts)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("run_prompt",
		mcp.WithDescription("Run a configured prompt against a note. The streamed completion is written "+
			"into the note; the result reports what was written. Pass selection_start/selection_end "+
			"(byte offsets) to replace a range, otherwise output is appended. See the "+
			"ansuz://prompt-guide resource for how prompts treat selections and embeds."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("Id of the prompt to run (see list_prompts)")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the target note")),
		mcp.WithNumber("selection_start", mcp.Description("Optional selection start as a byte offset")),
		mcp.WithNumber("selection_end", mcp.Description("Optional selection end as a byte offset")),
	), s.runPrompt)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all vault files or files in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_prompt_guide",
		mcp.WithDescription("Returns the guide describing prompt definitions, selection modes and attachment embeds."),
	), s.getPromptGuide)

	// Resource: prompt authoring guide.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://prompt-guide", "Prompt Guide",
			mcp.WithResourceDescription("How prompt definitions, selection modes and attachment embeds behave."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPromptGuideResource,
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

func (s *Server) listPrompts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cmds := s.commands.List()
	if len(cmds) == 0 {
		return mcp.NewToolResultText("no prompts configured"), nil
	}
	out, _ := json.MarshalIndent(cmds, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// runPromptResult is the JSON payload returned by the run_prompt tool.
type runPromptResult struct {
	RunID    string   `json:"run_id"`
	Path     string   `json:"path"`
	Written  int      `json:"written"`
	Checksum string   `json:"checksum"`
	Notices  []string `json:"notices,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// collectingObserver gathers notices for the tool result. Deltas land in the
// note itself, so they are not duplicated here.
type collectingObserver struct {
	notices []string
}

func (c *collectingObserver) Delta(string) {}

func (c *collectingObserver) Notice(message string) {
	c.notices = append(c.notices, message)
}

func (s *Server) runPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	promptID, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cmd, ok := s.commands.Lookup(promptID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown prompt: %s", promptID)), nil
	}

	var span *models.Span
	if start, startErr := req.RequireInt("selection_start"); startErr == nil {
		if end, endErr := req.RequireInt("selection_end"); endErr == nil {
			span = &models.Span{Start: start, End: end}
		}
	}

	obs := &collectingObserver{}
	res, runErr := cmd.Run(ctx, path, span, obs)
	if res == nil {
		if runErr != nil {
			return mcp.NewToolResultError(runErr.Error()), nil
		}
		return mcp.NewToolResultError("run produced no result"), nil
	}

	out := runPromptResult{
		RunID:    res.RunID,
		Path:     res.Path,
		Written:  res.Written,
		Checksum: res.Checksum,
		Notices:  obs.notices,
	}
	if runErr != nil {
		out.Error = runErr.Error()
	}
	buf, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(buf)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getPromptGuide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PromptGuide), nil
}

func (s *Server) readPromptGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://prompt-guide",
			MIMEType: "text/markdown",
			Text:     PromptGuide,
		},
	}, nil
}
