package api

import (
	"github.com/runeberg/ansuz/internal/commands"
	"github.com/runeberg/ansuz/internal/promptservice"
)

// RunRequest is the request body for running a prompt against a note.
type RunRequest struct {
	PromptID  string   `json:"prompt_id" example:"summarize" validate:"required"`
	Path      string   `json:"path" example:"notes/draft.md" validate:"required"`
	Selection *SpanDTO `json:"selection,omitempty"`
}

// SpanDTO is a byte-offset selection range into the raw note content.
type SpanDTO struct {
	Start int `json:"start" example:"10" validate:"required"`
	End   int `json:"end" example:"24" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = promptservice.NoteDetail

// RunResult is the final run state carried by the "done" event (aliased from
// the domain layer).
type RunResult = promptservice.RunResult

// PromptListResponse wraps the bound prompt commands.
type PromptListResponse struct {
	Prompts []commands.Command `json:"prompts" validate:"required"`
}

// ProviderListResponse wraps the configured provider names.
type ProviderListResponse struct {
	Providers []string `json:"providers" validate:"required"`
	Default   string   `json:"default" example:"anthropic" validate:"required"`
}

// DeltaEvent is the payload of a "delta" stream frame.
type DeltaEvent struct {
	Text string `json:"text"`
}

// NoticeEvent is the payload of a "notice" stream frame.
type NoticeEvent struct {
	Message string `json:"message"`
}
