package batch

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/extract-cli/internal/model"
)

// Pacer spaces consecutive crawls. *resilience.Pacer satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
	Done()
	OnSuccess()
	OnRateLimit(retryAfter time.Duration)
}

type noPacer struct{}

func (noPacer) Wait(ctx context.Context) error { return ctx.Err() }
func (noPacer) Done()                          {}
func (noPacer) OnSuccess()                     {}
func (noPacer) OnRateLimit(time.Duration)      {}

// DriverOptions configures a Driver.
type DriverOptions struct {
	// Pacer enforces the gap between crawls. Nil disables pacing.
	Pacer Pacer

	// Reuse holds outcomes, by item index, that are taken as final without
	// crawling. It is how a resumed run skips finished items.
	Reuse map[int]model.Outcome

	// OnOutcome is called after each item is settled, crawled or reused.
	OnOutcome func(index int, item model.BatchItem, o model.Outcome)
}

// Driver runs items sequentially in input order.
type Driver struct {
	task *Task
	opts DriverOptions
}

// NewDriver creates a Driver.
func NewDriver(task *Task, opts DriverOptions) *Driver {
	if opts.Pacer == nil {
		opts.Pacer = noPacer{}
	}
	return &Driver{task: task, opts: opts}
}

// Run crawls every item and returns one outcome per item, in order. Items
// without a URL fail without a crawl or a pacing wait. When ctx ends, the
// remaining items are recorded as cancelled and ctx's error is returned
// alongside the full outcome slice, even if the last item was in flight.
func (d *Driver) Run(ctx context.Context, items []model.BatchItem) ([]model.Outcome, error) {
	outcomes := make([]model.Outcome, len(items))

	for i, item := range items {
		if o, ok := d.opts.Reuse[i]; ok {
			outcomes[i] = o
			d.settle(i, item, o)
			continue
		}

		if !item.HasURL() {
			o, _ := d.task.crawl(ctx, item)
			outcomes[i] = o
			d.settle(i, item, o)
			continue
		}

		if err := d.opts.Pacer.Wait(ctx); err != nil {
			cancelRest(outcomes, items, i)
			return outcomes, eris.Wrap(err, "batch: cancelled")
		}

		started := time.Now()
		o, res := d.task.crawl(ctx, item)
		d.opts.Pacer.Done()

		switch {
		case res.RateLimited:
			d.opts.Pacer.OnRateLimit(res.RetryAfter)
		case res.Success:
			d.opts.Pacer.OnSuccess()
		}

		outcomes[i] = o
		zap.L().Info("batch: item settled",
			zap.Int("index", i),
			zap.Int("total", len(items)),
			zap.String("url", item.URL),
			zap.String("outcome", string(o.Kind)),
			zap.Duration("elapsed", time.Since(started)),
		)
		d.settle(i, item, o)
	}
	if err := ctx.Err(); err != nil {
		return outcomes, eris.Wrap(err, "batch: cancelled")
	}
	return outcomes, nil
}

func (d *Driver) settle(i int, item model.BatchItem, o model.Outcome) {
	if d.opts.OnOutcome != nil {
		d.opts.OnOutcome(i, item, o)
	}
}

func cancelRest(outcomes []model.Outcome, items []model.BatchItem, from int) {
	for j := from; j < len(items); j++ {
		outcomes[j] = model.Failure(items[j].URL, model.ErrMsgCancelled)
	}
}

// Summarize folds outcomes into counts.
func Summarize(outcomes []model.Outcome) model.Summary {
	s := model.Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Kind {
		case model.OutcomeSuccess:
			s.Succeeded++
		case model.OutcomeEmpty:
			s.Empty++
		default:
			s.Failed++
		}
	}
	return s
}

// ReusableOutcomes picks the successful outcomes of a previous run whose
// item at the same index is unchanged.
func ReusableOutcomes(items []model.BatchItem, previous []model.Record) map[int]model.Outcome {
	reuse := make(map[int]model.Outcome)
	for _, rec := range previous {
		if rec.Index < 0 || rec.Index >= len(items) || !rec.Outcome.OK() {
			continue
		}
		if items[rec.Index] != rec.Item {
			continue
		}
		reuse[rec.Index] = rec.Outcome
	}
	return reuse
}
