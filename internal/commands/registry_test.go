package commands

import (
	"context"
	"testing"

	"github.com/runeberg/ansuz/internal/models"
	"github.com/runeberg/ansuz/internal/promptservice"
)

func noopHandler(string) Handler {
	return func(context.Context, string, *models.Span, promptservice.Observer) (*promptservice.RunResult, error) {
		return &promptservice.RunResult{}, nil
	}
}

func countingHandler(calls *int) Handler {
	return func(context.Context, string, *models.Span, promptservice.Observer) (*promptservice.RunResult, error) {
		*calls++
		return &promptservice.RunResult{}, nil
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.Register("summarize", "Summarize note", countingHandler(&calls))

	cmd, ok := r.Lookup("summarize")
	if !ok {
		t.Fatal("Lookup(summarize) = false")
	}
	if cmd.Name != "Summarize note" {
		t.Errorf("name = %q", cmd.Name)
	}
	if _, err := cmd.Run(context.Background(), "note.md", nil, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}

	if _, ok := r.Lookup("absent"); ok {
		t.Error("Lookup(absent) = true")
	}
}

func TestRegistry_ListPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("c", "Third", noopHandler("c"))
	r.Register("a", "First", noopHandler("a"))
	r.Register("b", "Second", noopHandler("b"))

	got := r.List()
	if len(got) != 3 {
		t.Fatalf("List() = %d commands, want 3", len(got))
	}
	wantIDs := []string{"c", "a", "b"}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("List()[%d] = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestRegistry_ReregisterReplacesInPlace(t *testing.T) {
	r := NewRegistry()
	r.Register("a", "Old name", noopHandler("a"))
	r.Register("b", "Other", noopHandler("b"))
	r.Register("a", "New name", noopHandler("a"))

	got := r.List()
	if len(got) != 2 {
		t.Fatalf("List() = %d commands, want 2", len(got))
	}
	if got[0].ID != "a" || got[0].Name != "New name" {
		t.Errorf("List()[0] = %+v", got[0])
	}
}

func TestRegistry_UnregisterAll(t *testing.T) {
	r := NewRegistry()
	r.Register("a", "A", noopHandler("a"))
	r.Register("b", "B", noopHandler("b"))

	r.UnregisterAll()

	if got := r.List(); len(got) != 0 {
		t.Errorf("List() after UnregisterAll = %v", got)
	}
	if _, ok := r.Lookup("a"); ok {
		t.Error("Lookup(a) = true after UnregisterAll")
	}

	// The registry must accept fresh bindings after a reset.
	r.Register("a", "A again", noopHandler("a"))
	if _, ok := r.Lookup("a"); !ok {
		t.Error("Lookup(a) = false after re-registration")
	}
}
