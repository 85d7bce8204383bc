// Package models defines the domain types for Ansuz.
package models

import "time"

// NoteSnapshot is a read-only extraction of a note taken at invocation time.
// Body excludes frontmatter; SelectionSpan, when present, is a byte-offset
// range into Body.
type NoteSnapshot struct {
	Title          string   `json:"title,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	RawFrontmatter string   `json:"-"`
	Body           string   `json:"body"`
	Selection      string   `json:"selection,omitempty"`
	SelectionSpan  *Span    `json:"selection_span,omitempty"`
}

// Span is a half-open [Start, End) byte-offset range.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int { return s.End - s.Start }

// FileMetadata is a lightweight representation returned by vault list operations.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
