package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/extract-cli/internal/batch"
	"github.com/sells-group/extract-cli/internal/export"
	"github.com/sells-group/extract-cli/internal/fetcher"
	"github.com/sells-group/extract-cli/internal/job"
	"github.com/sells-group/extract-cli/internal/model"
	"github.com/sells-group/extract-cli/internal/resilience"
	"github.com/sells-group/extract-cli/internal/runlog"
	"github.com/sells-group/extract-cli/internal/store"
	"github.com/sells-group/extract-cli/pkg/notion"
)

// batchOptions are the per-invocation overrides of a batch job.
type batchOptions struct {
	Input    string
	Sheet    string
	NotionDB string
	Limit    int
	Resume   bool
	Format   string
	Output   string
	// Interval overrides the pacing gap when >= 0.
	Interval time.Duration
	Offline  bool
}

var batchCmd = &cobra.Command{
	Use:   "batch [job]",
	Short: "Crawl and extract every item of a job's input list",
	Long:  "Runs a batch job (default: movies): one crawl per item, in order, with a pause between crawls. Every item yields a record.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		name := "movies"
		if len(args) > 0 {
			name = args[0]
		}
		j, err := job.Load(name, cfg.Batch.JobsDir)
		if err != nil {
			return err
		}
		if j.Kind != job.KindBatch {
			return eris.Errorf("batch: job %s is a %s job; use the extract command", j.Name, j.Kind)
		}

		opts := batchOptions{Interval: -1}
		opts.Input, _ = cmd.Flags().GetString("input")
		opts.Sheet, _ = cmd.Flags().GetString("sheet")
		opts.NotionDB, _ = cmd.Flags().GetString("notion-db")
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.Resume, _ = cmd.Flags().GetBool("resume")
		opts.Format, _ = cmd.Flags().GetString("format")
		opts.Output, _ = cmd.Flags().GetString("output")
		opts.Offline, _ = cmd.Flags().GetBool("offline")
		if cmd.Flags().Changed("interval") {
			opts.Interval, _ = cmd.Flags().GetDuration("interval")
		}

		items, err := loadItems(ctx, j, opts)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, j, opts.Offline)
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = runBatch(ctx, env, j, items, opts, os.Stdout)
		return err
	},
}

func init() {
	batchCmd.Flags().String("input", "", "item list path or URL (default from job)")
	batchCmd.Flags().String("sheet", "", "worksheet to read when the input is an XLSX file (default: first)")
	batchCmd.Flags().String("notion-db", "", "read items from this Notion database instead of a file")
	batchCmd.Flags().Int("limit", 0, "process at most this many items (0 = all)")
	batchCmd.Flags().Bool("resume", false, "reuse successful records of the job's previous run")
	batchCmd.Flags().String("format", "", "output format: json or xlsx (default from config)")
	batchCmd.Flags().String("output", "", "output file (default from job)")
	batchCmd.Flags().Duration("interval", 0, "pause between crawls (default from job, then config)")
	batchCmd.Flags().Bool("offline", false, "use a stub model instead of a hosted provider")
	rootCmd.AddCommand(batchCmd)
}

// loadItems reads the batch items from Notion or the job's input list and
// applies the limit.
func loadItems(ctx context.Context, j *job.Job, opts batchOptions) ([]model.BatchItem, error) {
	var (
		items []model.BatchItem
		err   error
	)
	if opts.NotionDB != "" {
		if cfg.Notion.Token == "" {
			return nil, eris.New("batch: notion.token is required with --notion-db")
		}
		items, err = notion.QueryItems(ctx, notion.NewClient(cfg.Notion.Token), opts.NotionDB, notion.ItemQuery{
			TitleProperty: cfg.Notion.TitleProperty,
			URLProperty:   cfg.Notion.URLProperty,
		})
	} else {
		src := opts.Input
		if src == "" {
			src = j.Input
		}
		loader := fetcher.NewLoader(fetcher.LoaderOptions{
			HTTP:  fetcher.HTTPOptions{UserAgent: cfg.Crawl.UserAgent},
			Sheet: opts.Sheet,
		})
		items, err = loader.LoadItems(ctx, src)
	}
	if err != nil {
		return nil, eris.Wrap(err, "batch: load items")
	}

	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items, nil
}

// pacingInterval picks the gap between crawls: the flag, then the job, then
// the config.
func pacingInterval(j *job.Job, opts batchOptions) time.Duration {
	switch {
	case opts.Interval >= 0:
		return opts.Interval
	case j.Interval.Duration > 0:
		return j.Interval.Duration
	default:
		return time.Duration(cfg.Batch.IntervalSecs) * time.Second
	}
}

// runBatch drives items through the pipeline, records the run in the store,
// writes the results and logs, and prints the usage table to out. When ctx
// is cancelled the results gathered so far are still written.
func runBatch(ctx context.Context, env *pipelineEnv, j *job.Job, items []model.BatchItem, opts batchOptions, out io.Writer) (model.Summary, error) {
	formatName := opts.Format
	if formatName == "" {
		formatName = cfg.Batch.OutputFormat
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return model.Summary{}, err
	}
	output := opts.Output
	if output == "" {
		output = j.Output
	}
	output = export.OutputPath(output, format)

	// Bookkeeping must outlive a cancelled run.
	bg := context.WithoutCancel(ctx)

	run, err := env.Store.CreateRun(bg, j.Name)
	if err != nil {
		return model.Summary{}, err
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("job", j.Name))

	var reuse map[int]model.Outcome
	if opts.Resume {
		reuse, err = previousOutcomes(bg, env, j.Name, run.ID, items)
		if err != nil {
			return model.Summary{}, err
		}
		log.Info("batch: resuming", zap.Int("reused", len(reuse)))
	}

	runLog, err := runlog.Open(j.RunLog)
	if err != nil {
		return model.Summary{}, err
	}
	defer runLog.Close() //nolint:errcheck

	interval := pacingInterval(j, opts)
	pacer := resilience.NewPacer(resilience.PacerConfig{
		Interval:    interval,
		Adaptive:    cfg.Batch.Adaptive,
		MaxInterval: time.Duration(cfg.Batch.MaxIntervalSecs) * time.Second,
	})

	task := batch.NewTask(env.Crawler, env.Strategy, j.ItemURL, runLog)
	driver := batch.NewDriver(task, batch.DriverOptions{
		Pacer: pacer,
		Reuse: reuse,
		OnOutcome: func(i int, item model.BatchItem, o model.Outcome) {
			rec := model.Record{RunID: run.ID, Index: i, Item: item, Outcome: o}
			if err := env.Store.SaveRecord(bg, rec); err != nil {
				log.Warn("batch: save record", zap.Int("index", i), zap.Error(err))
			}
		},
	})

	log.Info("batch: starting",
		zap.Int("items", len(items)),
		zap.Duration("interval", interval),
		zap.String("output", output),
	)
	outcomes, runErr := driver.Run(ctx, items)

	summary, finishErr := batch.Finish(batch.FinishOptions{
		Output:     output,
		Format:     format,
		Schema:     j.Schema,
		SummaryLog: j.SummaryLog,
		Label:      j.SummaryLabel,
	}, items, outcomes)

	batchErr := errors.Join(runErr, finishErr)
	update := store.RunUpdate{Status: model.RunComplete, Summary: summary, Output: output}
	if batchErr != nil {
		update.Status = model.RunFailed
		update.Error = batchErr.Error()
	}
	if err := env.Store.FinishRun(bg, run.ID, update); err != nil {
		log.Warn("batch: finish run", zap.Error(err))
	}

	_, _ = fmt.Fprintf(out, "Run %s: %d items, %d succeeded, %d empty, %d failed -> %s\n\n",
		run.ID, summary.Total, summary.Succeeded, summary.Empty, summary.Failed, output)
	if err := env.Strategy.ShowUsage(out, env.Calc); err != nil {
		log.Warn("batch: show usage", zap.Error(err))
	}
	return summary, batchErr
}

// previousOutcomes loads the reusable outcomes of the newest earlier run of
// job.
func previousOutcomes(ctx context.Context, env *pipelineEnv, jobName, currentRunID string, items []model.BatchItem) (map[int]model.Outcome, error) {
	prev, err := env.Store.LatestRun(ctx, jobName, currentRunID)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, nil
	}
	recs, err := env.Store.ListRecords(ctx, prev.ID)
	if err != nil {
		return nil, err
	}
	return batch.ReusableOutcomes(items, recs), nil
}
