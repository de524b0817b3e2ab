package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/extract-cli/internal/model"
	"github.com/sells-group/extract-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect batch run history",
	Long:  "Commands for listing, viewing, and summarizing batch runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List batch runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		jobName, _ := cmd.Flags().GetString("job")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Job:    jobName,
			Status: model.RunStatus(status),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs, time.Now())
		return nil
	},
}

// -- runs show --

// runDetail is the JSON shape printed by runs show.
type runDetail struct {
	*model.Run
	Records []model.Record `json:"records,omitempty"`
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		detail := runDetail{Run: run}

		if withRecords, _ := cmd.Flags().GetBool("records"); withRecords {
			detail.Records, err = st.ListRecords(ctx, run.ID)
			if err != nil {
				return eris.Wrap(err, "runs show")
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		jobName, _ := cmd.Flags().GetString("job")
		runs, err := st.ListRuns(ctx, store.RunFilter{Job: jobName, Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("job", "", "filter by job name")
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "skip this many runs")

	runsShowCmd.Flags().Bool("records", false, "include the per-item records")

	runsStatsCmd.Flags().String("job", "", "filter by job name")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Runs       int
	Complete   int
	Failed     int
	Running    int
	Items      model.Summary
	AvgDurSecs float64
}

// computeRunStats folds runs into aggregate statistics. Only finished runs
// count toward the average duration.
func computeRunStats(runs []model.Run) runStats {
	var s runStats
	s.Runs = len(runs)

	var totalDur time.Duration
	var durCount int

	for _, r := range runs {
		switch r.Status {
		case model.RunComplete:
			s.Complete++
		case model.RunFailed:
			s.Failed++
		default:
			s.Running++
		}
		s.Items.Total += r.Summary.Total
		s.Items.Succeeded += r.Summary.Succeeded
		s.Items.Empty += r.Summary.Empty
		s.Items.Failed += r.Summary.Failed

		if r.FinishedAt != nil {
			totalDur += r.FinishedAt.Sub(r.StartedAt)
			durCount++
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w. Unfinished runs show
// their age relative to now.
func formatRunsList(out io.Writer, runs []model.Run, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tJOB\tSTATUS\tTOTAL\tSUCCEEDED\tEMPTY\tFAILED\tSTARTED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t---\t------\t-----\t---------\t-----\t------\t-------\t--------")

	for _, r := range runs {
		end := now
		if r.FinishedAt != nil {
			end = *r.FinishedAt
		}
		dur := end.Sub(r.StartedAt).Round(time.Second).String()

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			truncateID(r.ID),
			r.Job,
			r.Status,
			r.Summary.Total,
			r.Summary.Succeeded,
			r.Summary.Empty,
			r.Summary.Failed,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Runs)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", s.Running)
	_, _ = fmt.Fprintf(w, "Items:\t%d\n", s.Items.Total)
	_, _ = fmt.Fprintf(w, "  Succeeded:\t%d\n", s.Items.Succeeded)
	_, _ = fmt.Fprintf(w, "  Empty:\t%d\n", s.Items.Empty)
	_, _ = fmt.Fprintf(w, "  Failed:\t%d\n", s.Items.Failed)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a run ID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
