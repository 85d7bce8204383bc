// Package llm defines the provider abstraction for streaming completions and
// the adapters that implement it.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// BlockKind tags a ContentBlock variant.
type BlockKind string

const (
	BlockText     BlockKind = "text"
	BlockImage    BlockKind = "image"
	BlockDocument BlockKind = "document"
)

// ContentBlock is one unit of a request payload. Text is set for text
// blocks; MediaType and Data (base64) for image and document blocks.
type ContentBlock struct {
	Kind      BlockKind
	Text      string
	MediaType string
	Data      string
}

// NewTextBlock returns a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: text}
}

// NewImageBlock returns an image content block carrying base64 data.
func NewImageBlock(mediaType, data string) ContentBlock {
	return ContentBlock{Kind: BlockImage, MediaType: mediaType, Data: data}
}

// NewDocumentBlock returns a document content block carrying base64 data.
func NewDocumentBlock(mediaType, data string) ContentBlock {
	return ContentBlock{Kind: BlockDocument, MediaType: mediaType, Data: data}
}

// Request is one completion invocation. Payload holds exactly one text block
// first, then attachment blocks in discovery order. Flags are provider
// feature flags; only the anthropic adapter consumes them, the others ignore
// them.
type Request struct {
	System    string
	Payload   []ContentBlock
	Model     string
	MaxTokens int
	Flags     []string
}

// Event is one normalized unit of streamed output. Err, when set, is the
// terminal event of a failed stream; provider metadata beyond incremental
// text is discarded at the adapter boundary.
type Event struct {
	Text string
	Err  error
}

// Provider issues a completion request and streams normalized delta events.
type Provider interface {
	Name() string
	// Stream starts the request. Failures detected before streaming begins
	// are returned directly; later failures arrive as a final Event with Err
	// set. The channel closes when the stream ends. No retries are made at
	// this layer.
	Stream(ctx context.Context, req Request) (<-chan Event, error)
}

// ProviderError describes a failed provider call. Status is zero when no
// HTTP status applies.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// httpClient is shared by the SSE adapters. The timeout bounds the whole
// exchange including streaming reads.
var httpClient = &http.Client{Timeout: 5 * time.Minute}

// eventBuffer is the delta channel depth used by the adapters.
const eventBuffer = 16
