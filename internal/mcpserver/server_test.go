package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/runeberg/ansuz/internal/commands"
	"github.com/runeberg/ansuz/internal/index"
	"github.com/runeberg/ansuz/internal/llm"
	"github.com/runeberg/ansuz/internal/models"
	"github.com/runeberg/ansuz/internal/promptservice"
	"github.com/runeberg/ansuz/internal/storage"
)

func testServer(t *testing.T) (*Server, storage.Provider, *llm.Mock) {
	t.Helper()

	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	mock := &llm.Mock{ProviderName: "anthropic", Deltas: []string{"Hello", ", world"}}
	providers := llm.NewRegistry("anthropic", mock)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := promptservice.NewService(store, db, providers, promptservice.Defaults{Model: "claude-sonnet-4-5", MaxTokens: 100}, logger)

	cmds := commands.NewRegistry()
	defs := []models.PromptDefinition{
		{ID: "summarize", Name: "Summarize note", Prompt: "Summarize.", SelectionMode: models.ModeWholeNote},
		{ID: "rewrite", Name: "Rewrite selection", Prompt: "Rewrite.", SelectionMode: models.ModeSelectionInstruction},
	}
	for _, def := range defs {
		def := def
		cmds.Register(def.ID, def.Name, func(ctx context.Context, path string, span *models.Span, obs promptservice.Observer) (*promptservice.RunResult, error) {
			return svc.RunOnNote(ctx, def, path, span, obs)
		})
	}

	srv := New(store, cmds)
	return srv, store, mock
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_prompts":
		result, err = srv.listPrompts(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "run_prompt":
		result, err = srv.runPrompt(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "get_prompt_guide":
		result, err = srv.getPromptGuide(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListPromptTools(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "list_prompts", map[string]interface{}{})
	var cmds []commands.Command
	if err := json.Unmarshal([]byte(resultText(r)), &cmds); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cmds) != 2 || cmds[0].ID != "summarize" || cmds[1].ID != "rewrite" {
		t.Errorf("prompts = %v", cmds)
	}
}

func TestReadNoteTool(t *testing.T) {
	srv, store, _ := testServer(t)
	_ = store.Write("test.md", []byte("# Test\nHello"))

	r := callTool(t, srv, "read_note", map[string]interface{}{"path": "test.md"})
	if text := resultText(r); text != "# Test\nHello" {
		t.Errorf("read result = %q", text)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestRunPromptTool(t *testing.T) {
	srv, store, _ := testServer(t)
	_ = store.Write("draft.md", []byte("body text"))

	r := callTool(t, srv, "run_prompt", map[string]interface{}{
		"prompt": "summarize",
		"path":   "draft.md",
	})
	if r.IsError {
		t.Fatalf("run failed: %s", resultText(r))
	}

	var res runPromptResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.RunID == "" || res.Written != len("Hello, world") || res.Error != "" {
		t.Errorf("result = %+v", res)
	}

	onDisk, err := store.Read("draft.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(onDisk) != "body textHello, world" {
		t.Errorf("disk = %q", onDisk)
	}
}

func TestRunPromptWithSelection(t *testing.T) {
	srv, store, _ := testServer(t)
	_ = store.Write("draft.md", []byte("keep OLD keep"))

	// JSON numbers arrive as float64.
	r := callTool(t, srv, "run_prompt", map[string]interface{}{
		"prompt":          "rewrite",
		"path":            "draft.md",
		"selection_start": float64(5),
		"selection_end":   float64(8),
	})
	if r.IsError {
		t.Fatalf("run failed: %s", resultText(r))
	}

	onDisk, _ := store.Read("draft.md")
	if string(onDisk) != "keep Hello, world keep" {
		t.Errorf("disk = %q", onDisk)
	}
}

func TestRunPromptUnknown(t *testing.T) {
	srv, store, _ := testServer(t)
	_ = store.Write("draft.md", []byte("body"))

	r := callTool(t, srv, "run_prompt", map[string]interface{}{
		"prompt": "nope",
		"path":   "draft.md",
	})
	if !r.IsError {
		t.Error("expected error for unknown prompt")
	}
	if text := resultText(r); !strings.Contains(text, "unknown prompt") {
		t.Errorf("error text = %q", text)
	}
}

func TestRunPromptMissingNote(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "run_prompt", map[string]interface{}{
		"prompt": "summarize",
		"path":   "absent.md",
	})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestRunPromptProviderError(t *testing.T) {
	srv, store, mock := testServer(t)
	_ = store.Write("draft.md", []byte("body"))
	mock.Deltas = []string{"partial"}
	mock.Err = &llm.ProviderError{Provider: "anthropic", Status: 529, Message: "overloaded"}

	r := callTool(t, srv, "run_prompt", map[string]interface{}{
		"prompt": "summarize",
		"path":   "draft.md",
	})
	if r.IsError {
		t.Fatalf("partial run should not be a tool error: %s", resultText(r))
	}

	var res runPromptResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Written != len("partial") || res.Error == "" {
		t.Errorf("result = %+v", res)
	}
	if len(res.Notices) == 0 || !strings.Contains(res.Notices[0], "overloaded") {
		t.Errorf("notices = %v", res.Notices)
	}

	onDisk, _ := store.Read("draft.md")
	if string(onDisk) != "bodypartial" {
		t.Errorf("disk = %q, want partial kept", onDisk)
	}
}

func TestListNotesTool(t *testing.T) {
	srv, store, _ := testServer(t)
	_ = store.Write("a.md", []byte("a"))
	_ = store.Write("b.md", []byte("b"))

	r := callTool(t, srv, "list_notes", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "a.md") || !strings.Contains(text, "b.md") {
		t.Errorf("list = %q", text)
	}
}

func TestPromptGuideTool(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "get_prompt_guide", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "selection-instruction") || !strings.Contains(text, "![[") {
		t.Errorf("guide missing expected sections: %q", text[:80])
	}
}
