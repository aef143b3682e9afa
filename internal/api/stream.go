// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// The backend streams chat completions as a line-oriented protocol:
//
//	0:"<json-encoded text delta>"
//	8:[{"type":"sources","data":[...]}]
//	3:"<json-encoded error message>"
//
// Text deltas accumulate into the answer. Data annotations carry sources,
// suggested questions, retrieval events, and tool calls. An error line ends
// the answer with a server-reported failure. Unknown prefixes are skipped.

// =============================================================================
// STREAM CONSTANTS
// =============================================================================

const (
	textPrefix       = "0:"
	dataPrefix       = "8:"
	errorPrefix      = "3:"
	maxStreamLineLen = 1024 * 1024
)

// Annotation types delivered on data lines.
const (
	AnnotationSources            = "sources"
	AnnotationSuggestedQuestions = "suggested_questions"
	AnnotationEvents             = "events"
	AnnotationTools              = "tools"
)

// =============================================================================
// STREAM TYPES
// =============================================================================

// EventKind discriminates stream events.
type EventKind int

const (
	// EventText is a text delta appended to the answer.
	EventText EventKind = iota
	// EventAnnotations is a batch of data annotations.
	EventAnnotations
	// EventError is a server-reported error ending the answer.
	EventError
)

// Annotation is a typed data payload attached to an answer.
type Annotation struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// StreamEvent is one decoded event from the chat stream.
type StreamEvent struct {
	Kind        EventKind
	Text        string
	Annotations []Annotation
	ErrorText   string
}

// StreamCallback is invoked for each decoded event, in stream order.
type StreamCallback func(ev StreamEvent)

// SourceNode is a retrieval citation as delivered in a "sources" annotation.
type SourceNode struct {
	NodeID   string         `json:"node_id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// ChatMessage is one turn of history sent to the chat endpoints.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body for the chat endpoints. The last message is the
// new user query; earlier entries are history.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// StreamError is a stream failure that preserves any partial answer
// received before the failure.
type StreamError struct {
	Partial string
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial answer: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// STREAM PARSER
// =============================================================================

// ParseStreamLine decodes one protocol line. It returns (nil, nil) for
// blank lines and unknown prefixes.
func ParseStreamLine(line []byte) (*StreamEvent, error) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return nil, nil
	}

	s := string(line)
	switch {
	case strings.HasPrefix(s, textPrefix):
		var text string
		if err := json.Unmarshal(line[len(textPrefix):], &text); err != nil {
			return nil, fmt.Errorf("malformed text delta: %w", err)
		}
		return &StreamEvent{Kind: EventText, Text: text}, nil

	case strings.HasPrefix(s, dataPrefix):
		var anns []Annotation
		if err := json.Unmarshal(line[len(dataPrefix):], &anns); err != nil {
			return nil, fmt.Errorf("malformed annotation batch: %w", err)
		}
		return &StreamEvent{Kind: EventAnnotations, Annotations: anns}, nil

	case strings.HasPrefix(s, errorPrefix):
		var msg string
		if err := json.Unmarshal(line[len(errorPrefix):], &msg); err != nil {
			// Error lines may arrive as a bare string.
			msg = strings.TrimSpace(s[len(errorPrefix):])
		}
		return &StreamEvent{Kind: EventError, ErrorText: msg}, nil

	default:
		return nil, nil
	}
}

// processStream reads protocol lines from body until EOF, the context is
// cancelled, or an error line arrives.
func processStream(ctx context.Context, body io.Reader, callback StreamCallback) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxStreamLineLen)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ev, err := ParseStreamLine(scanner.Bytes())
		if err != nil {
			// Malformed lines are dropped; the stream may still recover.
			continue
		}
		if ev == nil {
			continue
		}

		callback(*ev)

		if ev.Kind == EventError {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// CHAT ENDPOINTS
// =============================================================================

// GuestChatStream streams a completion for an unauthenticated user. The
// server does not persist guest conversations.
func (c *Client) GuestChatStream(ctx context.Context, req ChatRequest, callback StreamCallback) error {
	return c.chatStream(ctx, "/api/guest-chat", req, callback)
}

// ChatStream streams a completion for a signed-in user. The server
// persists both sides of the turn under the given conversation ID.
func (c *Client) ChatStream(ctx context.Context, conversationID string, req ChatRequest, callback StreamCallback) error {
	if conversationID == "" {
		return errors.New("conversation ID required for authenticated chat")
	}
	path := "/api/chat?conversation_id=" + url.QueryEscape(conversationID)
	return c.chatStream(ctx, path, req, callback)
}

// chatStream performs a streaming POST and feeds the decoded events to
// the callback.
func (c *Client) chatStream(ctx context.Context, path string, reqBody ChatRequest, callback StreamCallback) error {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := readResponse(resp)
		return parseError(resp.StatusCode, body)
	}

	return processStream(ctx, resp.Body, callback)
}

// =============================================================================
// ACCUMULATED STREAMING
// =============================================================================

// ChatResult is a fully accumulated streamed answer.
type ChatResult struct {
	Content            string
	Sources            []SourceNode
	SuggestedQuestions []string
	ErrorText          string
}

// StreamAccumulator collects stream events into a ChatResult.
type StreamAccumulator struct {
	content strings.Builder
	result  ChatResult
}

// NewStreamAccumulator creates an empty accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

// Add processes one stream event.
func (a *StreamAccumulator) Add(ev StreamEvent) {
	switch ev.Kind {
	case EventText:
		a.content.WriteString(ev.Text)
	case EventAnnotations:
		for _, ann := range ev.Annotations {
			switch ann.Type {
			case AnnotationSources:
				var nodes []SourceNode
				if err := json.Unmarshal(ann.Data, &nodes); err == nil {
					a.result.Sources = nodes
				}
			case AnnotationSuggestedQuestions:
				var questions []string
				if err := json.Unmarshal(ann.Data, &questions); err == nil {
					a.result.SuggestedQuestions = questions
				}
			}
		}
	case EventError:
		a.result.ErrorText = ev.ErrorText
	}
}

// Callback returns a StreamCallback feeding this accumulator.
func (a *StreamAccumulator) Callback() StreamCallback {
	return func(ev StreamEvent) { a.Add(ev) }
}

// Result returns the accumulated answer.
func (a *StreamAccumulator) Result() *ChatResult {
	a.result.Content = a.content.String()
	return &a.result
}

// GuestChatAccumulate streams a guest completion and returns the full
// answer. A partial answer is preserved in StreamError on failure.
func (c *Client) GuestChatAccumulate(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	acc := NewStreamAccumulator()
	if err := c.GuestChatStream(ctx, req, acc.Callback()); err != nil {
		return nil, &StreamError{Partial: acc.Result().Content, Err: err}
	}
	return acc.Result(), nil
}

// ChatAccumulate streams an authenticated completion and returns the full
// answer.
func (c *Client) ChatAccumulate(ctx context.Context, conversationID string, req ChatRequest) (*ChatResult, error) {
	acc := NewStreamAccumulator()
	if err := c.ChatStream(ctx, conversationID, req, acc.Callback()); err != nil {
		return nil, &StreamError{Partial: acc.Result().Content, Err: err}
	}
	return acc.Result(), nil
}
