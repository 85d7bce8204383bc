// Package config provides YAML-based configuration loading with environment
// variable expansion, plus a Secret type for values that must not leak into
// logs or serialized output.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configuration types that check themselves after
// loading.
type Validator interface {
	Validate() error
}

// Load reads a YAML file, expands ${VAR} references from the environment,
// unmarshals into target, and runs target's Validate when it implements
// Validator.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// MustLoad loads configuration and panics on failure.
func MustLoad[T any](filename string, target *T) {
	if err := Load(filename, target); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
}
