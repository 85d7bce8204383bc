package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// Gemini streams completions through the Gemini SDK. A client is built per
// request; the SDK holds no connection state worth pooling.
type Gemini struct {
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// NewGemini builds the adapter. An empty baseURL targets the public API.
func NewGemini(apiKey, baseURL string, logger *slog.Logger) *Gemini {
	return &Gemini{apiKey: apiKey, baseURL: baseURL, logger: logger}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	if g.apiKey == "" {
		return nil, &ProviderError{Provider: "gemini", Message: "api key not configured"}
	}

	cfg := &genai.ClientConfig{APIKey: g.apiKey, Backend: genai.BackendGeminiAPI}
	if g.baseURL != "" {
		cfg.HTTPOptions.BaseURL = g.baseURL
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Message: err.Error()}
	}

	parts, err := geminiParts(req.Payload)
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Message: err.Error()}
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}

	ch := make(chan Event, eventBuffer)
	go func() {
		defer close(ch)
		for resp, iterErr := range client.Models.GenerateContentStream(ctx, req.Model, contents, config) {
			if iterErr != nil {
				if ctx.Err() == nil {
					ch <- Event{Err: &ProviderError{Provider: "gemini", Message: iterErr.Error()}}
				}
				return
			}
			for _, text := range geminiText(resp) {
				select {
				case ch <- Event{Text: text}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// geminiParts maps payload blocks onto SDK parts. The SDK wants raw bytes
// for inline data, so attachment base64 is decoded here.
func geminiParts(payload []ContentBlock) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(payload))
	for _, b := range payload {
		switch b.Kind {
		case BlockText:
			parts = append(parts, &genai.Part{Text: b.Text})
		case BlockImage, BlockDocument:
			raw, err := base64.StdEncoding.DecodeString(b.Data)
			if err != nil {
				return nil, fmt.Errorf("decode attachment: %w", err)
			}
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: b.MediaType, Data: raw}})
		}
	}
	return parts, nil
}

// geminiText collects the non-empty text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) []string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var out []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			out = append(out, part.Text)
		}
	}
	return out
}
