package models

// SelectionMode governs how the user's selection is treated when the request
// context is assembled.
type SelectionMode string

const (
	// ModeWholeNote sends title, tags and full body; any selection is ignored.
	ModeWholeNote SelectionMode = "whole-note"
	// ModeSelectionContext sends only the selection as the instruction.
	ModeSelectionContext SelectionMode = "selection-context"
	// ModeSelectionInstruction sends the selection as the instruction and the
	// body minus the selected span as context.
	ModeSelectionInstruction SelectionMode = "selection-instruction"
)

// PromptDefinition is a user-authored prompt command. Definitions are loaded
// from configuration and immutable while executing.
type PromptDefinition struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Prompt        string        `json:"prompt"`
	SelectionMode SelectionMode `json:"selection_mode"`
	Provider      string        `json:"provider,omitempty"`
	Model         string        `json:"model,omitempty"`
}
