package promptservice

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/runeberg/ansuz/internal/apperr"
	"github.com/runeberg/ansuz/internal/checksum"
	"github.com/runeberg/ansuz/internal/editor"
	"github.com/runeberg/ansuz/internal/index"
	"github.com/runeberg/ansuz/internal/llm"
	"github.com/runeberg/ansuz/internal/models"
	"github.com/runeberg/ansuz/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingObserver struct {
	deltas  []string
	notices []string
}

func (r *recordingObserver) Delta(text string)     { r.deltas = append(r.deltas, text) }
func (r *recordingObserver) Notice(message string) { r.notices = append(r.notices, message) }

type testEnv struct {
	svc   *Service
	store *storage.FS
	db    *index.DB
	mock  *llm.Mock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock := &llm.Mock{ProviderName: "anthropic", Deltas: []string{"one", " two"}}
	reg := llm.NewRegistry("anthropic", mock)
	defaults := Defaults{Model: "claude-sonnet-4-5", MaxTokens: 700, Flags: []string{"pdfs-2024-09-25"}}
	return &testEnv{
		svc:   NewService(store, db, reg, defaults, quietLogger()),
		store: store,
		db:    db,
		mock:  mock,
	}
}

func indexFile(t *testing.T, env *testEnv, path string, data []byte) {
	t.Helper()
	if err := env.store.Write(path, data); err != nil {
		t.Fatalf("Write(%s): %v", path, err)
	}
	err := env.db.UpsertFile(index.FileRow{Path: path, Checksum: checksum.Sum(data), UpdatedAt: time.Now()})
	if err != nil {
		t.Fatalf("UpsertFile(%s): %v", path, err)
	}
}

func TestExecute_StreamsIntoEditor(t *testing.T) {
	env := newTestEnv(t)
	buf := editor.NewBuffer("replace ME now")
	buf.Select(8, 10)
	obs := &recordingObserver{}

	def := models.PromptDefinition{ID: "rewrite", Prompt: "Rewrite the selection.", SelectionMode: models.ModeWholeNote}
	if err := env.svc.Execute(context.Background(), def, buf, obs); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if got := buf.Value(); got != "replace one two now" {
		t.Errorf("buffer = %q, want %q", got, "replace one two now")
	}
	if len(obs.deltas) != 2 || obs.deltas[0] != "one" || obs.deltas[1] != " two" {
		t.Errorf("deltas = %v", obs.deltas)
	}
	if len(obs.notices) != 0 {
		t.Errorf("notices = %v", obs.notices)
	}

	req := env.mock.LastRequest()
	if req.System != "Rewrite the selection." {
		t.Errorf("system = %q", req.System)
	}
	if req.Model != "claude-sonnet-4-5" {
		t.Errorf("model = %q, want default", req.Model)
	}
	if req.MaxTokens != 700 {
		t.Errorf("max tokens = %d", req.MaxTokens)
	}
	if len(req.Flags) != 1 || req.Flags[0] != "pdfs-2024-09-25" {
		t.Errorf("flags = %v", req.Flags)
	}
	if len(req.Payload) != 1 || req.Payload[0].Kind != llm.BlockText {
		t.Fatalf("payload = %+v", req.Payload)
	}
	want := "<title></title>\n<tags></tags>\n<note>replace ME now</note>"
	if req.Payload[0].Text != want {
		t.Errorf("text block = %q, want %q", req.Payload[0].Text, want)
	}
}

func TestExecute_PromptModelOverridesDefault(t *testing.T) {
	env := newTestEnv(t)
	buf := editor.NewBuffer("body")

	def := models.PromptDefinition{ID: "p", Prompt: "sys", SelectionMode: models.ModeWholeNote, Model: "claude-haiku-4-5"}
	if err := env.svc.Execute(context.Background(), def, buf, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := env.mock.LastRequest().Model; got != "claude-haiku-4-5" {
		t.Errorf("model = %q", got)
	}
}

func TestExecute_AttachmentsFollowTextBlock(t *testing.T) {
	env := newTestEnv(t)
	img := []byte{0x89, 'P', 'N', 'G'}
	indexFile(t, env, "assets/chart.png", img)
	pdf := []byte("%PDF-1.4")
	indexFile(t, env, "scan.pdf", pdf)

	buf := editor.NewBuffer("see ![[chart.png]] and ![[scan.pdf]]")
	def := models.PromptDefinition{ID: "p", Prompt: "sys", SelectionMode: models.ModeWholeNote}
	if err := env.svc.Execute(context.Background(), def, buf, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	req := env.mock.LastRequest()
	if len(req.Payload) != 3 {
		t.Fatalf("payload blocks = %d, want 3", len(req.Payload))
	}
	if req.Payload[0].Kind != llm.BlockText {
		t.Errorf("payload[0] = %v, want text", req.Payload[0].Kind)
	}
	if req.Payload[1].Kind != llm.BlockImage || req.Payload[1].MediaType != "image/png" {
		t.Errorf("payload[1] = %+v", req.Payload[1])
	}
	if req.Payload[1].Data != base64.StdEncoding.EncodeToString(img) {
		t.Errorf("image data = %q", req.Payload[1].Data)
	}
	if req.Payload[2].Kind != llm.BlockDocument || req.Payload[2].MediaType != "application/pdf" {
		t.Errorf("payload[2] = %+v", req.Payload[2])
	}
}

func TestExecute_MissingEmbedWarnsAndContinues(t *testing.T) {
	env := newTestEnv(t)
	buf := editor.NewBuffer("see ![[nowhere.png]]")
	obs := &recordingObserver{}

	def := models.PromptDefinition{ID: "p", Prompt: "sys", SelectionMode: models.ModeWholeNote}
	if err := env.svc.Execute(context.Background(), def, buf, obs); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(obs.notices) != 1 || obs.notices[0] != "File not found: nowhere.png" {
		t.Errorf("notices = %v", obs.notices)
	}
	if got := len(env.mock.LastRequest().Payload); got != 1 {
		t.Errorf("payload blocks = %d, want text only", got)
	}
}

func TestExecute_ProviderErrorKeepsPartialOutput(t *testing.T) {
	env := newTestEnv(t)
	env.mock.Deltas = []string{"partial"}
	env.mock.Err = &llm.ProviderError{Provider: "anthropic", Status: 529, Message: "overloaded"}

	buf := editor.NewBuffer("keep DELETE keep")
	buf.Select(5, 11)
	obs := &recordingObserver{}

	def := models.PromptDefinition{ID: "p", Prompt: "sys", SelectionMode: models.ModeWholeNote}
	err := env.svc.Execute(context.Background(), def, buf, obs)
	if err == nil {
		t.Fatal("expected provider error")
	}
	if got := buf.Value(); got != "keep partial keep" {
		t.Errorf("buffer = %q, want partial output kept", got)
	}
	if len(obs.notices) != 1 || !strings.Contains(obs.notices[0], "overloaded") {
		t.Errorf("notices = %v", obs.notices)
	}
}

// A call that fails before yielding any event must still consume the
// selection: the document shows the deletion and exactly one notification.
func TestExecute_PreflightFailureConsumesSelection(t *testing.T) {
	env := newTestEnv(t)
	env.mock.CallErr = &llm.ProviderError{Provider: "anthropic", Message: "api key not configured"}

	buf := editor.NewBuffer("keep DELETE keep")
	buf.Select(5, 11)
	obs := &recordingObserver{}

	def := models.PromptDefinition{ID: "p", Prompt: "sys", SelectionMode: models.ModeWholeNote}
	err := env.svc.Execute(context.Background(), def, buf, obs)
	if err == nil {
		t.Fatal("expected provider error")
	}
	if got := buf.Value(); got != "keep  keep" {
		t.Errorf("buffer = %q, want selection deleted with no insert", got)
	}
	if len(obs.notices) != 1 {
		t.Errorf("notices = %v, want exactly one", obs.notices)
	}
}

func TestRunOnNote_WritesBack(t *testing.T) {
	env := newTestEnv(t)
	indexFile(t, env, "draft.md", []byte("before ME after"))

	def := models.PromptDefinition{ID: "p", Prompt: "sys", SelectionMode: models.ModeWholeNote}
	res, err := env.svc.RunOnNote(context.Background(), def, "draft.md", &models.Span{Start: 7, End: 9}, nil)
	if err != nil {
		t.Fatalf("RunOnNote() error = %v", err)
	}

	want := "before one two after"
	if res.Content != want {
		t.Errorf("content = %q, want %q", res.Content, want)
	}
	if res.Written != len("one two") {
		t.Errorf("written = %d", res.Written)
	}
	if res.RunID == "" {
		t.Error("run id empty")
	}
	onDisk, err := env.store.Read("draft.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(onDisk) != want {
		t.Errorf("disk = %q, want %q", onDisk, want)
	}
	if res.Checksum != checksum.Sum(onDisk) {
		t.Errorf("checksum = %q", res.Checksum)
	}

	// The index must already see the new state.
	sums, err := env.db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if sums["draft.md"] != res.Checksum {
		t.Errorf("indexed checksum = %q, want %q", sums["draft.md"], res.Checksum)
	}
}

func TestRunOnNote_MissingNote(t *testing.T) {
	env := newTestEnv(t)
	def := models.PromptDefinition{ID: "p", Prompt: "sys"}
	_, err := env.svc.RunOnNote(context.Background(), def, "missing.md", nil, nil)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// mutatingProvider rewrites the note on disk when the stream starts,
// simulating a concurrent edit during a run.
type mutatingProvider struct {
	store *storage.FS
	path  string
}

func (p *mutatingProvider) Name() string { return "anthropic" }

func (p *mutatingProvider) Stream(_ context.Context, _ llm.Request) (<-chan llm.Event, error) {
	if err := p.store.Write(p.path, []byte("changed elsewhere")); err != nil {
		return nil, err
	}
	ch := make(chan llm.Event, 1)
	ch <- llm.Event{Text: "late"}
	close(ch)
	return ch, nil
}

func TestRunOnNote_ConflictSkipsWriteBack(t *testing.T) {
	env := newTestEnv(t)
	indexFile(t, env, "draft.md", []byte("original"))

	reg := llm.NewRegistry("anthropic", &mutatingProvider{store: env.store, path: "draft.md"})
	svc := NewService(env.store, env.db, reg, Defaults{Model: "m", MaxTokens: 100}, quietLogger())

	def := models.PromptDefinition{ID: "p", Prompt: "sys", SelectionMode: models.ModeWholeNote}
	_, err := svc.RunOnNote(context.Background(), def, "draft.md", nil, nil)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
	onDisk, readErr := env.store.Read("draft.md")
	if readErr != nil {
		t.Fatalf("Read: %v", readErr)
	}
	if string(onDisk) != "changed elsewhere" {
		t.Errorf("disk = %q, concurrent edit must win", onDisk)
	}
}

func TestRunOnNote_ProviderErrorStillWritesPartial(t *testing.T) {
	env := newTestEnv(t)
	indexFile(t, env, "draft.md", []byte("body"))
	env.mock.Deltas = []string{"partial"}
	env.mock.Err = &llm.ProviderError{Provider: "anthropic", Message: "cut off"}

	def := models.PromptDefinition{ID: "p", Prompt: "sys", SelectionMode: models.ModeWholeNote}
	res, err := env.svc.RunOnNote(context.Background(), def, "draft.md", nil, nil)
	if err == nil {
		t.Fatal("expected provider error")
	}
	if res == nil {
		t.Fatal("expected result alongside provider error")
	}
	onDisk, readErr := env.store.Read("draft.md")
	if readErr != nil {
		t.Fatalf("Read: %v", readErr)
	}
	if string(onDisk) != "bodypartial" {
		t.Errorf("disk = %q, want partial output appended", onDisk)
	}
}

func TestGetNote(t *testing.T) {
	env := newTestEnv(t)
	content := "---\ntags: [work]\n---\n# Plan\n\nsee ![[chart.png]]"
	indexFile(t, env, "plan.md", []byte(content))

	detail, err := env.svc.GetNote(context.Background(), "plan.md")
	if err != nil {
		t.Fatalf("GetNote() error = %v", err)
	}
	if detail.Title != "Plan" {
		t.Errorf("title = %q", detail.Title)
	}
	if len(detail.Tags) != 1 || detail.Tags[0] != "work" {
		t.Errorf("tags = %v", detail.Tags)
	}
	if len(detail.Embeds) != 1 || detail.Embeds[0] != "chart.png" {
		t.Errorf("embeds = %v", detail.Embeds)
	}
	if detail.Checksum != checksum.Sum([]byte(content)) {
		t.Errorf("checksum = %q", detail.Checksum)
	}

	if _, err := env.svc.GetNote(context.Background(), "absent.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
