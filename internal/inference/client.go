// Package inference is the HTTP client for the external inference server
// that answers a context+query payload.
package inference

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

// Payload is the request body sent to the inference server.
type Payload struct {
	Context string `json:"context"`
	Query   string `json:"query"`
}

// ServerError is returned when the server answers with a non-2xx status or a
// body that is not JSON. Body carries the raw response for diagnostics.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	if e.StatusCode >= 200 && e.StatusCode < 300 {
		return fmt.Sprintf("inference server returned invalid JSON (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("inference server returned status %d", e.StatusCode)
}

// ErrNoServerURL is returned by NewClient when no URL is configured.
var ErrNoServerURL = errors.New("inference server URL is required")

// Asker sends a payload and returns the server's JSON response.
type Asker interface {
	Ask(ctx context.Context, payload Payload) (json.RawMessage, error)
}

// Client posts payloads to a single inference endpoint. It never retries.
type Client struct {
	url        string
	httpClient *http.Client
}

var _ Asker = (*Client)(nil)

// NewClient creates a client for url. timeout 0 keeps the transport default
// (no overall deadline).
func NewClient(url string, timeout time.Duration) (*Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrNoServerURL
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// URL returns the configured endpoint.
func (c *Client) URL() string { return c.url }

// Ask posts the payload as JSON and returns the raw JSON response body.
func (c *Client) Ask(ctx context.Context, payload Payload) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServerError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if !json.Valid(respBody) {
		return nil, &ServerError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return json.RawMessage(respBody), nil
}
