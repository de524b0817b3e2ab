package scrape

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/extract-cli/internal/resilience"
)

// Chain tries scrapers in priority order, returning the first success. Each
// scraper sits behind its own circuit breaker so a failing backend is skipped
// for a while instead of being retried on every page.
type Chain struct {
	scrapers []Scraper
	breakers *resilience.ServiceBreakers
}

// NewChain creates a Chain. Scrapers are tried in order; the first
// successful result is returned. Three consecutive failures open a
// scraper's circuit for 60s.
func NewChain(scrapers ...Scraper) *Chain {
	return &Chain{
		scrapers: scrapers,
		breakers: resilience.NewServiceBreakers(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     60 * time.Second,
			ShouldTrip: func(err error) bool {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			},
		}),
	}
}

// Names returns the scraper names in chain order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.scrapers))
	for i, s := range c.scrapers {
		names[i] = s.Name()
	}
	return names
}

// Breakers exposes the per-scraper circuit states.
func (c *Chain) Breakers() map[string]resilience.CircuitState {
	return c.breakers.States()
}

// Scrape tries each scraper in order for a single URL.
// Returns the first successful result, or an error if all fail.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	var lastErr error
	for _, s := range c.scrapers {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "scrape: cancelled")
		}
		if !s.Supports(targetURL) {
			continue
		}
		result, err := resilience.ExecuteVal(ctx, c.breakers.Get(s.Name()), func(ctx context.Context) (*Result, error) {
			r, err := s.Scrape(ctx, targetURL)
			if err == nil && r == nil {
				err = eris.Errorf("%s: no result", s.Name())
			}
			return r, err
		})
		if err == nil {
			return result, nil
		}
		zap.L().Debug("scrape: scraper failed, trying next",
			zap.String("scraper", s.Name()),
			zap.String("url", targetURL),
			zap.Error(err),
		)
		lastErr = err
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}

// Close releases scrapers that hold resources, such as a browser process.
func (c *Chain) Close() error {
	var errs []error
	for _, s := range c.scrapers {
		if cl, ok := s.(io.Closer); ok {
			if err := cl.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
