package llm

import (
	"log/slog"
	"strings"
)

const openaiDefaultBaseURL = "https://api.openai.com"

// OpenAI streams chat completions from the OpenAI API.
type OpenAI struct {
	chatCompletions
}

// NewOpenAI builds the adapter. An empty baseURL targets the public API;
// overriding it points the adapter at a gateway or a test server.
func NewOpenAI(apiKey, baseURL string, logger *slog.Logger) *OpenAI {
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}
	return &OpenAI{chatCompletions{
		name:     "openai",
		endpoint: strings.TrimSuffix(baseURL, "/") + "/v1/chat/completions",
		apiKey:   apiKey,
		logger:   logger,
	}}
}
