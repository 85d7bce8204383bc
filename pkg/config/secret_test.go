package config

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestSecretRedaction(t *testing.T) {
	s := Secret("sk-live-123")

	if got := fmt.Sprintf("%v", s); got != "[redacted]" {
		t.Errorf("String() = %q, want [redacted]", got)
	}
	if s.Value() != "sk-live-123" {
		t.Errorf("Value() = %q", s.Value())
	}

	b, err := json.Marshal(struct {
		Key Secret `json:"key"`
	}{Key: s})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"key":"[redacted]"}` {
		t.Errorf("marshal = %s", b)
	}
}

func TestSecretEmpty(t *testing.T) {
	var s Secret
	if !s.Empty() {
		t.Error("zero Secret should be empty")
	}
	if s.String() != "" {
		t.Errorf("empty String() = %q, want empty", s.String())
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `""` {
		t.Errorf("marshal = %s, want \"\"", b)
	}
}
