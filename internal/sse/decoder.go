// Package sse decodes Server-Sent-Events streams from chat-completion
// endpoints into normalized text deltas.
package sse

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

type state int

const (
	accumulating state = iota
	terminated
	exhausted
)

// Decoder is a push-driven state machine that turns arbitrarily-chunked SSE
// bytes into the text deltas carried in choices[0].delta.content fields.
//
// Fed bytes are split into lines, with a carry-over buffer for fragments
// crossing chunk boundaries. Lines without the "data: " marker are dropped.
// A "[DONE]" payload terminates the stream; any input after it is ignored.
// One data payload may hold several JSON objects abutted directly against
// each other; SplitConcatenated cuts them apart before parsing. A frame that
// fails to parse is logged and skipped.
type Decoder struct {
	carry  []byte
	state  state
	logger *slog.Logger
}

// NewDecoder returns a Decoder in its accumulating state. A nil logger falls
// back to slog.Default.
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger}
}

// Feed consumes one chunk and returns the deltas completed by it, in arrival
// order. After the done sentinel Feed returns nil.
func (d *Decoder) Feed(chunk []byte) []string {
	if d.state != accumulating {
		return nil
	}
	d.carry = append(d.carry, chunk...)

	var out []string
	for {
		i := bytes.IndexByte(d.carry, '\n')
		if i < 0 {
			break
		}
		line := string(d.carry[:i])
		d.carry = d.carry[i+1:]
		if !d.processLine(line, &out) {
			d.state = terminated
			d.carry = nil
			break
		}
	}
	return out
}

// Finish makes one final parse attempt over leftover buffered bytes and
// marks the decoder exhausted. It is a no-op after termination.
func (d *Decoder) Finish() []string {
	if d.state != accumulating {
		return nil
	}
	d.state = exhausted
	line := string(d.carry)
	d.carry = nil
	if line == "" {
		return nil
	}

	var out []string
	d.processLine(line, &out)
	return out
}

// Done reports whether the done sentinel ended the stream.
func (d *Decoder) Done() bool { return d.state == terminated }

// processLine handles one complete line, appending any deltas to out. It
// returns false when the line is the done sentinel.
func (d *Decoder) processLine(line string, out *[]string) bool {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return true
	}
	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == doneSentinel {
		return false
	}

	for _, frag := range SplitConcatenated(payload) {
		var frame deltaFrame
		if err := json.Unmarshal([]byte(frag), &frame); err != nil {
			d.logger.Warn("sse: malformed frame skipped", slog.String("error", err.Error()))
			continue
		}
		if len(frame.Choices) == 0 {
			continue
		}
		if text := frame.Choices[0].Delta.Content; text != "" {
			*out = append(*out, text)
		}
	}
	return true
}

// deltaFrame is the minimal shape of a chat-completion stream frame.
type deltaFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// SplitConcatenated splits a payload that may contain several JSON objects
// abutted directly against each other, cutting between each `}{` pair and
// inserting no characters. A literal "}{" inside a JSON string value is cut
// incorrectly; the resulting fragments then fail to parse and are skipped by
// the caller.
func SplitConcatenated(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '}' && s[i+1] == '{' {
			out = append(out, s[start:i+1])
			start = i + 1
		}
	}
	return append(out, s[start:])
}
