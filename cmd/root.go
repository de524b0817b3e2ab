package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/extract-cli/internal/config"
	"github.com/sells-group/extract-cli/internal/job"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "extract-cli",
	Short: "Schema-driven web page extraction",
	Long:  "Crawls web pages, extracts structured JSON against a declared schema with a hosted LLM, and records every item of a batch.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			c.Log.Level = lvl
		}
		if dir, _ := cmd.Flags().GetString("jobs-dir"); dir != "" {
			c.Batch.JobsDir = dir
		}
		cfg = c

		return eris.Wrap(config.InitLogger(cfg.Log), "init logger")
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the built-in jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range job.Builtins() {
			j, err := job.Load(name, "")
			if err != nil {
				return err
			}
			target := j.URL
			if j.Kind == job.KindBatch {
				target = j.Input
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-6s %s -> %s\n", j.Name, j.Kind, target, j.Output)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("jobs-dir", "", "directory searched for <job>.yaml (default from config)")
	rootCmd.AddCommand(jobsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
