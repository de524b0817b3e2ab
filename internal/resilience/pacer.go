package resilience

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PacerConfig configures the gap enforced between consecutive calls.
type PacerConfig struct {
	// Interval is the minimum gap between the end of one call and the start
	// of the next.
	Interval time.Duration

	// Adaptive widens the gap after rate limits and narrows it back toward
	// Interval after successes.
	Adaptive bool

	// MaxInterval caps the adaptive gap. Defaults to 10x Interval.
	MaxInterval time.Duration
}

// Pacer spaces sequential calls. Callers invoke Wait before each call and
// Done after it; the gap is measured from Done, so slow calls never shorten
// the pause that follows them.
type Pacer struct {
	mu       sync.Mutex
	base     time.Duration
	max      time.Duration
	current  time.Duration
	hold     time.Duration
	adaptive bool
	last     time.Time

	nowFunc func() time.Time
}

// NewPacer creates a pacer. A zero Interval disables pacing.
func NewPacer(cfg PacerConfig) *Pacer {
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	if cfg.MaxInterval < cfg.Interval {
		cfg.MaxInterval = cfg.Interval * 10
	}
	return &Pacer{
		base:     cfg.Interval,
		max:      cfg.MaxInterval,
		current:  cfg.Interval,
		adaptive: cfg.Adaptive,
		nowFunc:  time.Now,
	}
}

// Wait blocks until the current gap has elapsed since the last Done. The
// first call never blocks. It returns ctx.Err() if ctx ends first.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	if p.last.IsZero() {
		p.mu.Unlock()
		return ctx.Err()
	}
	gap := max(p.current, p.hold)
	p.hold = 0
	remaining := gap - p.nowFunc().Sub(p.last)
	p.mu.Unlock()

	return Sleep(ctx, remaining)
}

// Done marks the end of a call.
func (p *Pacer) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = p.nowFunc()
}

// OnSuccess narrows an adaptive gap by a third, never below Interval.
func (p *Pacer) OnSuccess() {
	if !p.adaptive {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = max(p.base, p.current*2/3)
}

// OnRateLimit doubles an adaptive gap up to MaxInterval. A positive
// retryAfter holds the next gap at least that long, capped at MaxInterval.
func (p *Pacer) OnRateLimit(retryAfter time.Duration) {
	if !p.adaptive {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.current * 2
	if next == 0 {
		next = time.Second
	}
	p.current = min(p.max, max(next, p.base))
	p.hold = min(p.max, retryAfter)
	zap.L().Warn("pacer: widening interval after rate limit",
		zap.Duration("interval", p.current),
		zap.Duration("retry_after", retryAfter),
	)
}

// Interval returns the gap the next Wait will enforce.
func (p *Pacer) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return max(p.current, p.hold)
}
