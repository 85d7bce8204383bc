package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/runeberg/ansuz/internal/apperr"
	"github.com/runeberg/ansuz/internal/commands"
	"github.com/runeberg/ansuz/internal/llm"
	"github.com/runeberg/ansuz/internal/models"
	"github.com/runeberg/ansuz/internal/promptservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc       *promptservice.Service
	commands  *commands.Registry
	providers *llm.Registry
}

// NewHandler creates a new Handler.
func NewHandler(svc *promptservice.Service, cmds *commands.Registry, providers *llm.Registry) *Handler {
	return &Handler{svc: svc, commands: cmds, providers: providers}
}

// notePath extracts the note path from the URL (everything after /api/notes/).
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListPrompts handles GET /api/prompts.
//
//	@Summary		List bound prompt commands
//	@Tags			prompts
//	@Produce		json
//	@Success		200	{object}	PromptListResponse
//	@Security		BearerAuth
//	@Router			/prompts [get]
func (h *Handler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PromptListResponse{Prompts: h.commands.List()})
}

// ListProviders handles GET /api/providers.
//
//	@Summary		List configured providers and the default
//	@Tags			providers
//	@Produce		json
//	@Success		200	{object}	ProviderListResponse
//	@Security		BearerAuth
//	@Router			/providers [get]
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProviderListResponse{
		Providers: h.providers.Names(),
		Default:   h.providers.Fallback(),
	})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get note failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// RunPrompt handles POST /api/run. The response is a Server-Sent Events
// stream of "delta", "notice", "error" and "done" frames; provider output
// already streamed stays written even when a later frame reports an error.
//
//	@Summary		Run a prompt against a note, streaming output
//	@Tags			prompts
//	@Accept			json
//	@Produce		text/event-stream
//	@Param			body	body		RunRequest	true	"Prompt, target note and optional selection"
//	@Success		200		"SSE stream of delta/notice/error/done events"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/run [post]
func (h *Handler) RunPrompt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.PromptID == "" || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("prompt_id and path are required"))
		return
	}
	cmd, ok := h.commands.Lookup(req.PromptID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown prompt"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody("streaming unsupported"))
		return
	}

	var span *models.Span
	if req.Selection != nil {
		span = &models.Span{Start: req.Selection.Start, End: req.Selection.End}
	}

	stream := newStreamWriter(w, flusher)
	res, err := cmd.Run(r.Context(), req.Path, span, stream)
	if err != nil {
		if !stream.started {
			// Nothing streamed yet; fail with a plain status.
			if errors.Is(err, apperr.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, errorBody("not found"))
			} else {
				slog.Error("run prompt failed", slog.String("prompt", req.PromptID), slog.String("error", err.Error()))
				writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			}
			return
		}
		msg := err.Error()
		if errors.Is(err, apperr.ErrConflict) {
			msg = "note changed during run; output not written"
		}
		stream.event("error", errorBody(msg))
		if res == nil {
			return
		}
		// Partial output was written back; fall through to done.
	}
	stream.event("done", res)
}
