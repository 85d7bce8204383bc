// Package sink writes streamed completion deltas into an editor.
package sink

import "github.com/runeberg/ansuz/internal/editor"

// Writer streams deltas into an editor at a primed insertion point.
type Writer struct {
	ed      editor.Editor
	primed  bool
	written int
}

func New(ed editor.Editor) *Writer {
	return &Writer{ed: ed}
}

// Prime captures the selection start, deletes the selected text and parks
// the cursor at the captured start. It runs exactly once per Writer and must
// happen before any response event is consumed, so a request that fails
// immediately still leaves the selection deleted.
func (w *Writer) Prime() {
	if w.primed {
		return
	}
	w.primed = true
	start := w.ed.Cursor(editor.From)
	w.ed.ReplaceSelection("")
	w.ed.SetCursor(start)
}

// Write inserts text at the cursor, priming first if the caller has not.
// The cursor ends up after the inserted text, so successive writes append.
func (w *Writer) Write(text string) {
	w.Prime()
	if text == "" {
		return
	}
	w.ed.ReplaceSelection(text)
	w.written += len(text)
}

// Written reports the number of bytes inserted so far. Output already
// written stays in the editor whatever happens to the rest of the stream.
func (w *Writer) Written() int { return w.written }
