package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic streams completions through the native message-stream SDK
// rather than hand-rolled SSE.
type Anthropic struct {
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// NewAnthropic builds the adapter. An empty baseURL targets the public API.
func NewAnthropic(apiKey, baseURL string, logger *slog.Logger) *Anthropic {
	return &Anthropic{apiKey: apiKey, baseURL: baseURL, logger: logger}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	if a.apiKey == "" {
		return nil, &ProviderError{Provider: "anthropic", Message: "api key not configured"}
	}

	opts := []option.RequestOption{option.WithAPIKey(a.apiKey)}
	if a.baseURL != "" {
		opts = append(opts, option.WithBaseURL(a.baseURL))
	}
	if len(req.Flags) > 0 {
		opts = append(opts, option.WithHeader("anthropic-beta", strings.Join(req.Flags, ",")))
	}
	client := anthropic.NewClient(opts...)

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(req.Payload))
	for _, b := range req.Payload {
		switch b.Kind {
		case BlockText:
			blocks = append(blocks, anthropic.NewTextBlock(b.Text))
		case BlockImage:
			blocks = append(blocks, anthropic.NewImageBlockBase64(b.MediaType, b.Data))
		case BlockDocument:
			blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: b.Data}))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	stream := client.Messages.NewStreaming(ctx, params)

	ch := make(chan Event, eventBuffer)
	go func() {
		defer close(ch)
		defer stream.Close()
		for stream.Next() {
			event := stream.Current()
			switch v := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				delta, ok := v.Delta.AsAny().(anthropic.TextDelta)
				if !ok || delta.Text == "" {
					continue
				}
				select {
				case ch <- Event{Text: delta.Text}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			ch <- Event{Err: anthropicError(err)}
		}
	}()
	return ch, nil
}

func anthropicError(err error) *ProviderError {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return &ProviderError{Provider: "anthropic", Status: apierr.StatusCode, Message: apierr.Error()}
	}
	return &ProviderError{Provider: "anthropic", Message: err.Error()}
}
