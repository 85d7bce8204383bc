package editor

import "strings"

// Buffer is an in-memory Editor over a single document. It is not safe for
// concurrent use; each invocation owns its own Buffer.
type Buffer struct {
	text   string
	anchor int // selection anchor, byte offset
	head   int // selection head, byte offset
}

// NewBuffer returns a Buffer over text with a collapsed selection at the
// start of the document.
func NewBuffer(text string) *Buffer {
	return &Buffer{text: text}
}

// Select sets the selection to the byte range [start, end), clamped to the
// document.
func (b *Buffer) Select(start, end int) {
	b.anchor = b.clamp(start)
	b.head = b.clamp(end)
}

// Value returns the full document text.
func (b *Buffer) Value() string { return b.text }

// Selection returns the currently selected text, empty when the selection is
// collapsed.
func (b *Buffer) Selection() string {
	from, to := b.ordered()
	return b.text[from:to]
}

// Cursor returns the requested end of the selection as a Position.
func (b *Buffer) Cursor(bound Bound) Position {
	from, to := b.ordered()
	if bound == From {
		return b.offsetToPos(from)
	}
	return b.offsetToPos(to)
}

// PosToOffset converts a Position to a byte offset, clamping out-of-range
// lines and columns.
func (b *Buffer) PosToOffset(p Position) int {
	if p.Line < 0 {
		return 0
	}
	off := 0
	for line := 0; line < p.Line; line++ {
		i := strings.IndexByte(b.text[off:], '\n')
		if i < 0 {
			return len(b.text)
		}
		off += i + 1
	}
	lineLen := len(b.text) - off
	if i := strings.IndexByte(b.text[off:], '\n'); i >= 0 {
		lineLen = i
	}
	ch := p.Ch
	if ch < 0 {
		ch = 0
	}
	if ch > lineLen {
		ch = lineLen
	}
	return off + ch
}

// ReplaceSelection replaces the selected range with text and collapses the
// selection to just after the inserted text. With a collapsed selection this
// is an insert at the cursor.
func (b *Buffer) ReplaceSelection(text string) {
	from, to := b.ordered()
	b.text = b.text[:from] + text + b.text[to:]
	b.anchor = from + len(text)
	b.head = b.anchor
}

// SetCursor collapses the selection to the given position.
func (b *Buffer) SetCursor(p Position) {
	off := b.PosToOffset(p)
	b.anchor = off
	b.head = off
}

func (b *Buffer) ordered() (int, int) {
	if b.anchor <= b.head {
		return b.anchor, b.head
	}
	return b.head, b.anchor
}

func (b *Buffer) clamp(off int) int {
	if off < 0 {
		return 0
	}
	if off > len(b.text) {
		return len(b.text)
	}
	return off
}

func (b *Buffer) offsetToPos(off int) Position {
	off = b.clamp(off)
	pre := b.text[:off]
	line := strings.Count(pre, "\n")
	ch := off
	if i := strings.LastIndexByte(pre, '\n'); i >= 0 {
		ch = off - i - 1
	}
	return Position{Line: line, Ch: ch}
}
