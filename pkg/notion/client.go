// Package notion reads batch item lists from a Notion database.
package notion

import (
	"context"
	"errors"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/extract-cli/internal/resilience"
)

// Client is the slice of the Notion API that item queries need.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// ClientOption configures NewClient.
type ClientOption func(*throttledClient)

// WithRateLimit sets the request rate. Zero or less disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *throttledClient) {
		c.limiter = nil
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithRetry replaces the retry policy for transient API errors.
func WithRetry(cfg resilience.RetryConfig) ClientOption {
	return func(c *throttledClient) { c.retry = cfg }
}

// throttledClient paces calls to Notion's documented 3 req/s and retries
// rate-limit and server errors.
type throttledClient struct {
	db      notionapi.DatabaseService
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a Client for an integration token.
func NewClient(token string, opts ...ClientOption) Client {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("notion", "query_database")
	c := &throttledClient{
		db:      notionapi.NewClient(notionapi.Token(token)).Database,
		limiter: rate.NewLimiter(3, 1),
		retry:   retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *throttledClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *throttledClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*notionapi.DatabaseQueryResponse, error) {
		if err := c.wait(ctx); err != nil {
			return nil, eris.Wrap(err, "notion: rate limit")
		}
		resp, err := c.db.Query(ctx, notionapi.DatabaseID(dbID), req)
		if err != nil {
			return nil, classify(eris.Wrapf(err, "notion: query database %s", dbID), err)
		}
		return resp, nil
	})
}

// classify marks API errors with a retryable status as transient.
func classify(wrapped, cause error) error {
	var apiErr *notionapi.Error
	if errors.As(cause, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.Status) {
		return resilience.NewTransientError(wrapped, apiErr.Status)
	}
	return wrapped
}
