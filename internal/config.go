package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/runeberg/ansuz/internal/models"
	"github.com/runeberg/ansuz/pkg/config"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Provider names accepted in generation and prompt configuration.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Vault      VaultConfig       `yaml:"vault"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Auth       AuthConfig        `yaml:"auth"`
	Providers  ProvidersConfig   `yaml:"providers"`
	Generation GenerationConfig  `yaml:"generation"`
	Prompts    []PromptConfig    `yaml:"prompts"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Generation.Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Prompts))
	for i := range c.Prompts {
		if err := c.Prompts[i].Validate(); err != nil {
			return fmt.Errorf("prompts[%d]: %w", i, err)
		}
		if seen[c.Prompts[i].ID] {
			return fmt.Errorf("prompts[%d]: duplicate id %q", i, c.Prompts[i].ID)
		}
		seen[c.Prompts[i].ID] = true
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string        `yaml:"mode"`
	Token config.Secret `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token.Empty() {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ProvidersConfig holds per-provider credentials and endpoints. A provider
// with an empty API key is still registered; calls to it fail with a
// configuration error at run time.
type ProvidersConfig struct {
	Anthropic  AnthropicConfig `yaml:"anthropic"`
	OpenAI     EndpointConfig  `yaml:"openai"`
	OpenRouter EndpointConfig  `yaml:"openrouter"`
	Gemini     EndpointConfig  `yaml:"gemini"`
}

// AnthropicConfig holds the Anthropic credentials plus the beta feature flags
// forwarded on each request (the anthropic-beta header).
type AnthropicConfig struct {
	APIKey    config.Secret `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	BetaFlags []string      `yaml:"beta_flags"`
}

// EndpointConfig holds credentials and an optional base URL override for an
// HTTP provider.
type EndpointConfig struct {
	APIKey  config.Secret `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
}

// GenerationConfig holds the default provider, model and token budget used
// when a prompt does not override them.
type GenerationConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// Validate validates the generation configuration.
func (c *GenerationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required,
			validation.In(ProviderAnthropic, ProviderOpenAI, ProviderOpenRouter, ProviderGemini)),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.MaxTokens, validation.Required, validation.Min(1)),
	)
}

// PromptConfig is one user-authored prompt command as it appears in the
// config file.
type PromptConfig struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Prompt        string `yaml:"prompt"`
	SelectionMode string `yaml:"selection_mode"`
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
}

// Validate validates a prompt entry. An empty selection mode defaults to
// whole-note.
func (c *PromptConfig) Validate() error {
	if c.SelectionMode == "" {
		c.SelectionMode = string(models.ModeWholeNote)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Prompt, validation.Required),
		validation.Field(&c.SelectionMode, validation.In(
			string(models.ModeWholeNote),
			string(models.ModeSelectionContext),
			string(models.ModeSelectionInstruction),
		)),
		validation.Field(&c.Provider, validation.In(
			ProviderAnthropic, ProviderOpenAI, ProviderOpenRouter, ProviderGemini,
		)),
	)
}

// Definition converts the config entry into the immutable form the prompt
// pipeline consumes.
func (c PromptConfig) Definition() models.PromptDefinition {
	return models.PromptDefinition{
		ID:            c.ID,
		Name:          c.Name,
		Prompt:        c.Prompt,
		SelectionMode: models.SelectionMode(c.SelectionMode),
		Provider:      c.Provider,
		Model:         c.Model,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./ansuz.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Generation: GenerationConfig{
			Provider:  ProviderAnthropic,
			Model:     "claude-sonnet-4-5",
			MaxTokens: 4096,
		},
	}
}
