package llm

import (
	"context"
	"sync"
)

// Mock is a scripted provider for tests. Deltas are emitted in order, then
// Err (when set) as the terminal event. CallErr fails the call before any
// streaming starts.
type Mock struct {
	ProviderName string
	Deltas       []string
	Err          error
	CallErr      error

	mu   sync.Mutex
	last Request
}

func (m *Mock) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *Mock) Stream(_ context.Context, req Request) (<-chan Event, error) {
	if m.CallErr != nil {
		return nil, m.CallErr
	}
	m.mu.Lock()
	m.last = req
	m.mu.Unlock()

	ch := make(chan Event, len(m.Deltas)+1)
	for _, d := range m.Deltas {
		ch <- Event{Text: d}
	}
	if m.Err != nil {
		ch <- Event{Err: m.Err}
	}
	close(ch)
	return ch, nil
}

// LastRequest returns the request captured by the most recent Stream call.
func (m *Mock) LastRequest() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
