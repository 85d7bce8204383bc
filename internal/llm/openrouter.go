package llm

import (
	"log/slog"
	"strings"
)

const openrouterDefaultBaseURL = "https://openrouter.ai/api"

// OpenRouter streams chat completions from the OpenRouter API. The wire
// protocol is identical to OpenAI's; only the endpoint and key differ.
type OpenRouter struct {
	chatCompletions
}

// NewOpenRouter builds the adapter. An empty baseURL targets the public API.
func NewOpenRouter(apiKey, baseURL string, logger *slog.Logger) *OpenRouter {
	if baseURL == "" {
		baseURL = openrouterDefaultBaseURL
	}
	return &OpenRouter{chatCompletions{
		name:     "openrouter",
		endpoint: strings.TrimSuffix(baseURL, "/") + "/v1/chat/completions",
		apiKey:   apiKey,
		logger:   logger,
	}}
}
