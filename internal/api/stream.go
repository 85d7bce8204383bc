package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// streamWriter emits run progress as Server-Sent Events. Headers are sent
// lazily on the first event so a run that fails before producing anything
// can still get a plain JSON error status.
type streamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newStreamWriter(w http.ResponseWriter, flusher http.Flusher) *streamWriter {
	return &streamWriter{w: w, flusher: flusher}
}

func (s *streamWriter) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

func (s *streamWriter) event(kind string, data any) {
	s.start()
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("stream event encode failed", slog.String("error", err.Error()))
		return
	}
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", kind, payload)
	s.flusher.Flush()
}

// Delta implements promptservice.Observer.
func (s *streamWriter) Delta(text string) {
	s.event("delta", DeltaEvent{Text: text})
}

// Notice implements promptservice.Observer.
func (s *streamWriter) Notice(message string) {
	s.event("notice", NoticeEvent{Message: message})
}
