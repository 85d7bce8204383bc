// Package assemble builds the single text block a provider receives from a
// note snapshot and the prompt's selection mode.
package assemble

import (
	"fmt"
	"strings"

	"github.com/runeberg/ansuz/internal/models"
)

// Build produces the request text for snap under mode.
//
// A selection that trims to zero characters counts as no selection: every
// mode then falls back to whole-note context. Selection modes that include
// the selection reproduce it untrimmed.
func Build(snap *models.NoteSnapshot, mode models.SelectionMode) string {
	if strings.TrimSpace(snap.Selection) == "" {
		return wholeNote(snap.Title, snap.Tags, snap.Body)
	}

	switch mode {
	case models.ModeSelectionContext:
		return fmt.Sprintf("<instruction>%s</instruction>", snap.Selection)
	case models.ModeSelectionInstruction:
		sliced := sliceOut(snap.Body, snap.SelectionSpan)
		return fmt.Sprintf("<instruction>%s</instruction>\n<context>\n%s\n</context>",
			snap.Selection, wholeNote(snap.Title, snap.Tags, sliced))
	default:
		return wholeNote(snap.Title, snap.Tags, snap.Body)
	}
}

// wholeNote wraps title, tags, and body in the fixed tagged template.
func wholeNote(title string, tags []string, body string) string {
	return fmt.Sprintf("<title>%s</title>\n<tags>%s</tags>\n<note>%s</note>",
		title, strings.Join(tags, ";"), body)
}

// sliceOut removes the span from body. An absent or out-of-range span leaves
// the body untouched.
func sliceOut(body string, span *models.Span) string {
	if span == nil || span.Start < 0 || span.End > len(body) || span.End <= span.Start {
		return body
	}
	return body[:span.Start] + body[span.End:]
}
