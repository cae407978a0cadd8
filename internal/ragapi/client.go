package ragapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every query to the RAG service. The answer either
// arrives within it or the relay reports a failure; there are no retries.
const DefaultTimeout = 60 * time.Second

// queryRequest is the wire shape accepted by the RAG query endpoint.
type queryRequest struct {
	Query string `json:"query"`
}

// queryResponse is the wire shape returned by the RAG query endpoint.
type queryResponse struct {
	Response string `json:"response"`
}

// StatusError captures non-2xx responses from the RAG service.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Config holds RAG client settings.
type Config struct {
	// Query endpoint URL
	Endpoint string
	// Health probe URL; falls back to Endpoint when unset
	HealthURL string
	// Per-call timeout; defaults to DefaultTimeout
	Timeout time.Duration
	// Overrides the default HTTP client, mainly for tests
	HTTPClient *http.Client
}

// Client is a minimal JSON-over-HTTP client for the downstream RAG service.
type Client struct {
	endpoint   string
	healthURL  string
	httpClient *http.Client
}

// NewClient creates a RAG API client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	healthURL := cfg.HealthURL
	if healthURL == "" {
		healthURL = cfg.Endpoint
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		healthURL:  healthURL,
		httpClient: httpClient,
	}, nil
}

// Query posts the user's text to the RAG service and returns the answer.
// A missing or whitespace-only answer returns "" with a nil error so the
// caller can apply its no-answer fallback.
func (c *Client) Query(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(queryRequest{Query: query})
	if err != nil {
		return "", fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.doJSONRequest(req)
	if err != nil {
		return "", fmt.Errorf("rag query failed: %w", err)
	}

	var payload queryResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("failed to decode rag response: %w", err)
	}

	return strings.TrimSpace(payload.Response), nil
}

// Health probes the RAG service. It returns nil on any 2xx response.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rag health check failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("rag health check returned status %d", res.StatusCode)
	}
	return nil
}

func (c *Client) doJSONRequest(req *http.Request) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &StatusError{
			StatusCode: res.StatusCode,
			URL:        req.URL.String(),
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return buf, nil
}
