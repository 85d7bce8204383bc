// Package promptservice runs prompt invocations end to end: snapshot the
// note, resolve attachments, assemble the request and stream the completion
// back into the editor.
package promptservice

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/runeberg/ansuz/internal/apperr"
	"github.com/runeberg/ansuz/internal/assemble"
	"github.com/runeberg/ansuz/internal/attach"
	"github.com/runeberg/ansuz/internal/checksum"
	"github.com/runeberg/ansuz/internal/editor"
	"github.com/runeberg/ansuz/internal/index"
	"github.com/runeberg/ansuz/internal/llm"
	"github.com/runeberg/ansuz/internal/models"
	"github.com/runeberg/ansuz/internal/notify"
	"github.com/runeberg/ansuz/internal/parser"
	"github.com/runeberg/ansuz/internal/sink"
	"github.com/runeberg/ansuz/internal/storage"
)

// Observer receives user-visible progress from a run. Calls arrive on the
// run's goroutine and must not block.
type Observer interface {
	Delta(text string)
	Notice(message string)
}

type nopObserver struct{}

func (nopObserver) Delta(string)  {}
func (nopObserver) Notice(string) {}

// Defaults are the generation settings applied when a PromptDefinition
// leaves the model unset. Flags are provider feature flags forwarded with
// every request. The default provider lives in the registry's fallback.
type Defaults struct {
	Model     string
	MaxTokens int
	Flags     []string
}

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Embeds      []string       `json:"embeds"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// RunResult describes the state written back after a vault-note run.
type RunResult struct {
	RunID    string `json:"run_id"`
	Path     string `json:"path"`
	Written  int    `json:"written"`
	Checksum string `json:"checksum"`
	Content  string `json:"content"`
}

// Service coordinates storage, the file index and the provider registry.
type Service struct {
	store    storage.Provider
	idx      index.FileIndex
	resolver *attach.Resolver
	registry *llm.Registry
	defaults Defaults
	logger   *slog.Logger
}

// NewService creates a new prompt service.
func NewService(store storage.Provider, idx index.FileIndex, registry *llm.Registry, defaults Defaults, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		idx:      idx,
		resolver: attach.New(idx, store, logger),
		registry: registry,
		defaults: defaults,
		logger:   logger,
	}
}

// Execute runs def against the live editor. The editor's selection is
// consumed before any response event; streamed deltas land at the cursor.
// Provider failures are surfaced through obs and returned; output already
// inserted stays in place.
func (s *Service) Execute(ctx context.Context, def models.PromptDefinition, ed editor.Editor, obs Observer) error {
	_, err := s.run(ctx, uuid.NewString(), def, ed, "", obs)
	return err
}

// RunOnNote loads a vault note into a buffer, runs def against it and writes
// the result back. span, when non-nil, is a byte-offset selection into the
// raw document. The write-back happens even when the provider fails mid-run
// (partial output is kept), but not when the note changed on disk during the
// run; that returns apperr.ErrConflict. A non-nil result can accompany a
// provider error.
func (s *Service) RunOnNote(ctx context.Context, def models.PromptDefinition, path string, span *models.Span, obs Observer) (*RunResult, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	before := checksum.Sum(data)

	buf := editor.NewBuffer(string(data))
	if span != nil {
		buf.Select(span.Start, span.End)
	} else {
		// Without a selection the insertion point is the end of the note.
		buf.Select(len(data), len(data))
	}

	runID := uuid.NewString()
	written, runErr := s.run(ctx, runID, def, buf, path, obs)

	current, err := s.store.Read(path)
	if err == nil && checksum.Sum(current) != before {
		return nil, apperr.ErrConflict
	}

	content := []byte(buf.Value())
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.indexFile(path, content); err != nil {
		return nil, err
	}
	return &RunResult{
		RunID:    runID,
		Path:     path,
		Written:  written,
		Checksum: checksum.Sum(content),
		Content:  string(content),
	}, runErr
}

// run is the single-invocation pipeline. sourcePath anchors embed link
// resolution and may be empty for detached editors.
func (s *Service) run(ctx context.Context, runID string, def models.PromptDefinition, ed editor.Editor, sourcePath string, obs Observer) (int, error) {
	if obs == nil {
		obs = nopObserver{}
	}

	snap, err := snapshot(ed)
	if err != nil {
		return 0, err
	}

	scanText := snap.Body
	if snap.Selection != "" {
		scanText += "\n" + snap.Selection
	}
	refs := s.resolver.Resolve(scanText, sourcePath, notify.Func(obs.Notice))

	payload := make([]llm.ContentBlock, 0, len(refs)+1)
	payload = append(payload, llm.NewTextBlock(assemble.Build(snap, def.SelectionMode)))
	for _, ref := range refs {
		if attach.IsImage(ref.Extension) {
			payload = append(payload, llm.NewImageBlock(ref.MediaType, ref.Data))
			continue
		}
		payload = append(payload, llm.NewDocumentBlock(ref.MediaType, ref.Data))
	}

	provider := s.registry.Get(def.Provider)
	model := def.Model
	if model == "" {
		model = s.defaults.Model
	}
	req := llm.Request{
		System:    def.Prompt,
		Payload:   payload,
		Model:     model,
		MaxTokens: s.defaults.MaxTokens,
		Flags:     s.defaults.Flags,
	}

	s.logger.Debug("prompt run starting",
		slog.String("run_id", runID),
		slog.String("prompt", def.ID),
		slog.String("provider", provider.Name()),
		slog.String("model", model),
		slog.Int("attachments", len(refs)))

	// The selection must be consumed before any response event arrives, even
	// when the call fails outright.
	w := sink.New(ed)
	w.Prime()

	events, err := provider.Stream(ctx, req)
	if err != nil {
		obs.Notice(err.Error())
		s.logger.Warn("prompt run failed",
			slog.String("run_id", runID),
			slog.String("provider", provider.Name()),
			slog.String("error", err.Error()))
		return 0, err
	}
	for ev := range events {
		if ev.Err != nil {
			obs.Notice(ev.Err.Error())
			s.logger.Warn("prompt run failed mid-stream",
				slog.String("run_id", runID),
				slog.String("provider", provider.Name()),
				slog.Int("written", w.Written()),
				slog.String("error", ev.Err.Error()))
			return w.Written(), ev.Err
		}
		w.Write(ev.Text)
		obs.Delta(ev.Text)
	}

	s.logger.Info("prompt run complete",
		slog.String("run_id", runID),
		slog.String("prompt", def.ID),
		slog.String("provider", provider.Name()),
		slog.Int("written", w.Written()))
	return w.Written(), nil
}

// GetNote reads a note from storage and parses it.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return buildNoteDetail(path, data)
}

// indexFile records path metadata after a write so link resolution sees the
// new state without waiting for the watcher.
func (s *Service) indexFile(path string, data []byte) error {
	return s.idx.UpsertFile(index.FileRow{
		Path:      path,
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	})
}

// snapshot extracts the NoteSnapshot for the editor's current state. The
// selection span is translated from document offsets into body offsets.
func snapshot(ed editor.Editor) (*models.NoteSnapshot, error) {
	doc := ed.Value()
	var span *models.Span
	from := ed.PosToOffset(ed.Cursor(editor.From))
	to := ed.PosToOffset(ed.Cursor(editor.To))
	if to > from {
		span = &models.Span{Start: from, End: to}
	}
	return parser.Snapshot(doc, span)
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading
// the file.
func buildNoteDetail(path string, data []byte) (*NoteDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		Path:        path,
		Title:       res.Title,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Embeds:      nonNilSlice(res.Embeds),
		UpdatedAt:   time.Now(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
