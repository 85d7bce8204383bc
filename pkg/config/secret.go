package config

import "log/slog"

// Secret holds a sensitive string such as an API key. Its formatted and
// JSON representations are redacted; callers reach the real value through
// Value.
type Secret string

const redacted = "[redacted]"

// Value returns the underlying secret.
func (s Secret) Value() string { return string(s) }

// Empty reports whether no secret is set.
func (s Secret) Empty() bool { return s == "" }

// String implements fmt.Stringer with a redacted representation.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// MarshalJSON redacts the secret in JSON output.
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte(`""`), nil
	}
	return []byte(`"` + redacted + `"`), nil
}

// LogValue redacts the secret in slog output.
func (s Secret) LogValue() slog.Value { return slog.StringValue(s.String()) }
