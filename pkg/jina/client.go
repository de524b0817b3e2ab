// Package jina provides a client for the Jina AI Reader API.
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/extract-cli/internal/resilience"
)

// Client defines the Jina AI Reader operations.
type Client interface {
	// Read fetches a URL via Jina AI Reader and returns the page content in
	// the client's return format.
	Read(ctx context.Context, targetURL string) (*ReadResponse, error)
}

// ReadResponse is the parsed Jina API response.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

// ReadData holds the content from Jina.
type ReadData struct {
	Title   string    `json:"title"`
	URL     string    `json:"url"`
	Content string    `json:"content"`
	Usage   ReadUsage `json:"usage"`
}

// ReadUsage tracks token consumption.
type ReadUsage struct {
	Tokens int `json:"tokens"`
}

// Option configures the Jina client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithReturnFormat sets the X-Return-Format header ("markdown", "html",
// "text"). Default: markdown.
func WithReturnFormat(format string) Option {
	return func(c *httpClient) {
		c.format = format
	}
}

// WithBackoff sets the initial retry backoff. It doubles per attempt.
func WithBackoff(d time.Duration) Option {
	return func(c *httpClient) {
		c.retry.InitialBackoff = d
	}
}

// WithMaxAttempts sets how many times a transient failure is tried in
// total. 1 disables retries.
func WithMaxAttempts(n int) Option {
	return func(c *httpClient) {
		c.retry.MaxAttempts = n
	}
}

// WithWaitForSelector asks Jina to wait until a CSS selector appears before
// reading the page. Useful for tables rendered by script.
func WithWaitForSelector(selector string) Option {
	return func(c *httpClient) {
		c.waitFor = selector
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	format  string
	waitFor string
	retry   resilience.RetryConfig
	http    *http.Client
}

// NewClient creates a new Jina AI Reader client. An empty apiKey uses the
// anonymous (rate-limited) tier. Rate limits and 5xx responses are retried
// three times with exponential backoff, honoring Retry-After.
func NewClient(apiKey string, opts ...Option) Client {
	retry := resilience.DefaultRetryConfig()
	retry.InitialBackoff = time.Second
	retry.OnRetry = resilience.RetryLogger("jina", "read")
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://r.jina.ai",
		format:  "markdown",
		retry:   retry,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Read(ctx context.Context, targetURL string) (*ReadResponse, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, targetURL)

	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, reqURL)
	})
	if err != nil {
		return nil, eris.Wrap(err, "jina: request failed")
	}

	var result ReadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal response")
	}
	return &result, nil
}

// get performs one attempt. Retryable statuses come back as a
// resilience.TransientError carrying the server's Retry-After.
func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Return-Format", c.format)
	if c.waitFor != "" {
		req.Header.Set("X-Wait-For-Selector", c.waitFor)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "jina: execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "jina: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("jina: status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode).
				WithRetryAfter(resilience.RetryAfterFromHeader(resp.Header, time.Now()))
		}
		return nil, statusErr
	}
	return body, nil
}
