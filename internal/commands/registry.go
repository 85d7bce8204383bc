// Package commands binds prompt definitions to invocable commands. The
// registry is owned by the host layer; the run pipeline itself is stateless
// and never touches it.
package commands

import (
	"context"
	"sync"

	"github.com/runeberg/ansuz/internal/models"
	"github.com/runeberg/ansuz/internal/promptservice"
)

// Handler executes a bound prompt against a vault note. The observer may be
// nil.
type Handler func(ctx context.Context, path string, span *models.Span, obs promptservice.Observer) (*promptservice.RunResult, error)

// Command is one registered prompt binding.
type Command struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	handler Handler
}

// Run invokes the bound handler.
func (c Command) Run(ctx context.Context, path string, span *models.Span, obs promptservice.Observer) (*promptservice.RunResult, error) {
	return c.handler(ctx, path, span, obs)
}

// Registry holds the currently bound commands. Registration order is
// preserved for listing; re-registering an id replaces the binding in place.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]Command
	order []string
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Command)}
}

// Register binds handler under id. A configuration reload re-registers every
// prompt, so an existing id is replaced rather than rejected.
func (r *Registry) Register(id, name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[id]; !exists {
		r.order = append(r.order, id)
	}
	r.byID[id] = Command{ID: id, Name: name, handler: handler}
}

// UnregisterAll drops every binding.
func (r *Registry) UnregisterAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]Command)
	r.order = nil
}

// Lookup returns the command bound under id.
func (r *Registry) Lookup(id string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	return c, ok
}

// List returns all bound commands in registration order.
func (r *Registry) List() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
