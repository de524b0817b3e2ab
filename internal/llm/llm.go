// Package llm adapts hosted language models to a single completion contract.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/extract-cli/internal/model"
	"github.com/sells-group/extract-cli/internal/resilience"
)

// Completion is one prompt sent to a provider.
type Completion struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int64
}

// Response is the text a provider returned, with its token usage.
type Response struct {
	Text  string
	Model string
	Usage model.Usage
}

// Provider completes prompts against one model.
type Provider interface {
	// Name is the "vendor/model" identifier the provider was built from.
	Name() string
	Complete(ctx context.Context, c Completion) (*Response, error)
}

// RateLimitError reports an HTTP 429 from a provider.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("llm: %s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("llm: %s rate limited: %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// classify marks retryable provider failures as transient. A 429 becomes a
// transient RateLimitError carrying the server's Retry-After.
func classify(provider string, err error, status int, header http.Header) error {
	switch {
	case status == http.StatusTooManyRequests:
		ra := resilience.RetryAfterFromHeader(header, time.Now())
		rl := &RateLimitError{Provider: provider, RetryAfter: ra, Err: err}
		return resilience.NewTransientError(rl, status).WithRetryAfter(ra)
	case resilience.IsTransientHTTPStatus(status):
		return resilience.NewTransientError(err, status)
	default:
		return err
	}
}

// ParseProviderID splits "vendor/model". The model part may itself contain
// slashes (e.g. "openai/org/model").
func ParseProviderID(id string) (vendor, modelName string, err error) {
	vendor, modelName, ok := strings.Cut(strings.TrimSpace(id), "/")
	if !ok || vendor == "" || modelName == "" {
		return "", "", eris.Errorf("llm: provider %q must be vendor/model", id)
	}
	return strings.ToLower(vendor), modelName, nil
}
