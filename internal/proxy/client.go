package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout  = 60 * time.Second
	maxResponseSize = 4 << 20 // 4MB
)

// ErrMalformedResponse is returned when the endpoint answers 2xx but the body
// does not carry data.choices[0].message.content.
var ErrMalformedResponse = errors.New("malformed chat response")

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Client posts conversation histories to a fixed chat endpoint.
// It never retries: every failure is returned to the caller as-is.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout bounds a single exchange. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the given endpoint URL.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Complete posts {"messages": messages} and returns the trimmed assistant
// reply. Transport errors and non-2xx statuses are returned wrapped; a 2xx
// body without a non-blank data.choices[0].message.content yields
// ErrMalformedResponse.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(ChatRequest{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	reply, ok := extractReply(data)
	if !ok {
		return "", ErrMalformedResponse
	}
	return reply, nil
}

// extractReply pulls data.choices[0].message.content out of body.
func extractReply(body []byte) (string, bool) {
	var resp ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false
	}
	if resp.Data == nil || len(resp.Data.Choices) == 0 || resp.Data.Choices[0].Message == nil {
		return "", false
	}
	reply := strings.TrimSpace(resp.Data.Choices[0].Message.Content)
	if reply == "" {
		return "", false
	}
	return reply, true
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
