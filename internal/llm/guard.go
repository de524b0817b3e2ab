package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/extract-cli/internal/resilience"
)

// GuardOptions bounds how a provider is called.
type GuardOptions struct {
	// RequestsPerMinute is the token bucket refill rate. Zero disables it.
	RequestsPerMinute float64

	// MaxOutputTokens clamps Completion.MaxTokens and is used when unset.
	MaxOutputTokens int64

	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration

	Retry resilience.RetryConfig
}

type guardedProvider struct {
	next    Provider
	limiter *rate.Limiter
	opts    GuardOptions
}

// Guard wraps next with a token bucket, output token clamping, and
// transient-error retry.
func Guard(next Provider, opts GuardOptions) Provider {
	g := &guardedProvider{next: next, opts: opts}
	if opts.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerMinute/60), 1)
	}
	if g.opts.Retry.OnRetry == nil {
		g.opts.Retry.OnRetry = resilience.RetryLogger(next.Name(), "complete")
	}
	return g
}

func (g *guardedProvider) Name() string { return g.next.Name() }

func (g *guardedProvider) Complete(ctx context.Context, c Completion) (*Response, error) {
	if ceiling := g.opts.MaxOutputTokens; ceiling > 0 && (c.MaxTokens <= 0 || c.MaxTokens > ceiling) {
		c.MaxTokens = ceiling
	}

	return resilience.DoVal(ctx, g.opts.Retry, func(ctx context.Context) (*Response, error) {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		if g.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
			defer cancel()
		}
		return g.next.Complete(ctx, c)
	})
}
