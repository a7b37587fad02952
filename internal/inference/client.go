// Package inference is a minimal client for the Ollama chat API with tool calling.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultHost is where a local Ollama listens.
	DefaultHost = "http://localhost:11434"
	// DefaultModel is used when no model is configured.
	DefaultModel = "llama3.1:8b"
)

// UpstreamError reports an unreachable inference endpoint or a non-2xx reply.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode == 0:
		return fmt.Sprintf("inference upstream unreachable: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("inference upstream status %d: %v", e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("inference upstream status %d: %s", e.StatusCode, e.Body)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client talks to an Ollama-compatible /api/chat endpoint.
type Client struct {
	host       string
	model      string
	httpClient *http.Client
	timeout    time.Duration
	logger     *logrus.Entry
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each upstream call. Zero means no client-side timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger attaches a logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient configures a client for the given host and model.
func NewClient(host, model string, opts ...Option) *Client {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		host = DefaultHost
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	c := &Client{
		host:       host,
		model:      model,
		httpClient: &http.Client{},
		logger:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// Model returns the upstream model name.
func (c *Client) Model() string { return c.model }

// CallOptions adjusts a single Converse call.
type CallOptions struct {
	// Model replaces the configured model when not blank.
	Model string
}

// CallOption sets a field of CallOptions.
type CallOption func(*CallOptions)

// WithModel overrides the upstream model for one call.
func WithModel(model string) CallOption {
	return func(o *CallOptions) { o.Model = strings.TrimSpace(model) }
}

// ApplyCallOptions folds opts into a CallOptions value.
func ApplyCallOptions(opts ...CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Converse sends a single user message with the tool schema attached and classifies the reply.
// Only the first tool call is honoured when the model returns several.
func (c *Client) Converse(ctx context.Context, lastMessage string, tools []Tool, opts ...CallOption) (Outcome, error) {
	model := c.model
	if o := ApplyCallOptions(opts...); o.Model != "" {
		model = o.Model
	}
	payload, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []Message{{Role: "user", Content: lastMessage}},
		Stream:   false,
		Tools:    tools,
	})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	endpoint := c.host + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode chat response: %w", err)}
	}

	if calls := chatResp.Message.ToolCalls; len(calls) > 0 {
		if len(calls) > 1 {
			c.logger.WithField("dropped", len(calls)-1).Debug("ignoring extra tool calls")
		}
		first := calls[0]
		return ToolCall{
			FunctionName: first.Function.Name,
			Arguments:    decodeArguments(first.Function.Arguments),
		}, nil
	}
	return PlainText{Content: chatResp.Message.Content}, nil
}
