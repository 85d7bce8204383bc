package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/runeberg/ansuz/internal/sse"
)

// chatCompletions implements the OpenAI-compatible streaming chat protocol
// shared by the SSE providers. They differ only in name, endpoint and key.
type chatCompletions struct {
	name     string
	endpoint string
	apiKey   string
	logger   *slog.Logger
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	Stream    bool          `json:"stream"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// wirePart mirrors the chat-completions content part schema. The user
// message carries the parts JSON-encoded as its content string.
type wirePart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *wireImageURL `json:"image_url,omitempty"`
	File     *wireFile     `json:"file,omitempty"`
}

type wireImageURL struct {
	URL string `json:"url"`
}

type wireFile struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

func (c *chatCompletions) Name() string { return c.name }

func (c *chatCompletions) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	if c.apiKey == "" {
		return nil, &ProviderError{Provider: c.name, Message: "api key not configured"}
	}
	content, err := encodeWireParts(req.Payload)
	if err != nil {
		return nil, &ProviderError{Provider: c.name, Message: err.Error()}
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: content})

	body, err := json.Marshal(chatRequest{
		Model:     req.Model,
		Messages:  messages,
		Stream:    true,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, &ProviderError{Provider: c.name, Message: fmt.Sprintf("encode request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Provider: c.name, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: c.name, Message: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{
			Provider: c.name,
			Status:   resp.StatusCode,
			Message:  strings.TrimSpace(string(detail)),
		}
	}

	ch := make(chan Event, eventBuffer)
	go c.consume(ctx, resp.Body, ch)
	return ch, nil
}

// consume reads the response body through the SSE decoder until the
// termination sentinel, EOF or a read error.
func (c *chatCompletions) consume(ctx context.Context, body io.ReadCloser, ch chan<- Event) {
	defer close(ch)
	defer body.Close()

	dec := sse.NewDecoder(c.logger)
	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if !c.emit(ctx, ch, dec.Feed(buf[:n])) {
				return
			}
			if dec.Done() {
				return
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				c.emit(ctx, ch, dec.Finish())
			} else if ctx.Err() == nil {
				ch <- Event{Err: &ProviderError{Provider: c.name, Message: "stream read: " + readErr.Error()}}
			}
			return
		}
	}
}

func (c *chatCompletions) emit(ctx context.Context, ch chan<- Event, deltas []string) bool {
	for _, delta := range deltas {
		select {
		case ch <- Event{Text: delta}:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// encodeWireParts maps payload blocks onto chat content parts and returns
// them JSON-encoded as the single user content string.
func encodeWireParts(payload []ContentBlock) (string, error) {
	parts := make([]wirePart, 0, len(payload))
	for _, b := range payload {
		switch b.Kind {
		case BlockText:
			parts = append(parts, wirePart{Type: "text", Text: b.Text})
		case BlockImage:
			parts = append(parts, wirePart{
				Type:     "image_url",
				ImageURL: &wireImageURL{URL: dataURL(b.MediaType, b.Data)},
			})
		case BlockDocument:
			parts = append(parts, wirePart{
				Type: "file",
				File: &wireFile{Filename: "attachment.pdf", FileData: dataURL(b.MediaType, b.Data)},
			})
		default:
			return "", fmt.Errorf("unknown block kind %q", b.Kind)
		}
	}
	out, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(out), nil
}

func dataURL(mediaType, data string) string {
	return "data:" + mediaType + ";base64," + data
}
