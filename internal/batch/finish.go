package batch

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/extract-cli/internal/export"
	"github.com/sells-group/extract-cli/internal/model"
	"github.com/sells-group/extract-cli/internal/runlog"
)

// FinishOptions describes where a batch leaves its results.
type FinishOptions struct {
	Output     string
	Format     export.Format
	Schema     model.Schema
	SummaryLog string
	// Label names the items in log lines, e.g. "movies".
	Label string
	Now   func() time.Time
}

// Finish writes the results file and the summary log. The summary log is
// overwritten with a single timestamped count of successful items.
func Finish(opts FinishOptions, items []model.BatchItem, outcomes []model.Outcome) (model.Summary, error) {
	summary := Summarize(outcomes)
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := export.Write(opts.Output, opts.Format, opts.Schema, items, outcomes); err != nil {
		zap.L().Error("batch: write results failed", zap.String("output", opts.Output), zap.Error(err))
		return summary, err
	}
	zap.L().Info("batch: results written",
		zap.String("output", opts.Output),
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("empty", summary.Empty),
		zap.Int("failed", summary.Failed),
	)

	if opts.SummaryLog == "" {
		return summary, nil
	}
	label := singular(opts.Label)
	if err := runlog.AppendLine(opts.SummaryLog, fmt.Sprintf("Successfully wrote %s results to %s", label, opts.Output)); err != nil {
		return summary, err
	}
	if err := runlog.WriteSummary(opts.SummaryLog, opts.Now(), SummaryLine(opts.Label, summary)); err != nil {
		return summary, err
	}
	return summary, nil
}

// SummaryLine is the message written to the summary log.
func SummaryLine(label string, s model.Summary) string {
	if label == "" {
		label = "items"
	}
	return fmt.Sprintf("Successfully crawled %s: %d", label, s.Succeeded)
}

func singular(label string) string {
	if len(label) > 1 && label[len(label)-1] == 's' {
		return label[:len(label)-1]
	}
	if label == "" {
		return "batch"
	}
	return label
}
