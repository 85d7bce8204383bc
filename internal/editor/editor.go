// Package editor defines the host text-editor surface the streaming pipeline
// writes into, and an in-memory Buffer implementation backing the daemon's
// own invocation surfaces.
package editor

// Position is a line/column location in a document. Ch is a byte offset
// within the line.
type Position struct {
	Line int `json:"line"`
	Ch   int `json:"ch"`
}

// Bound selects which end of the selection Cursor reports.
type Bound int

const (
	// From is the selection start (the lesser offset).
	From Bound = iota
	// To is the selection end.
	To
)

// Editor is the minimal capability surface the pipeline needs from a host
// editor. ReplaceSelection with a collapsed selection inserts at the cursor
// and leaves the cursor after the inserted text.
type Editor interface {
	Value() string
	Selection() string
	Cursor(b Bound) Position
	PosToOffset(p Position) int
	ReplaceSelection(text string)
	SetCursor(p Position)
}
