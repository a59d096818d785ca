package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"test-metrics/src/config"
	"test-metrics/src/contracts"
	"test-metrics/src/report"
	"test-metrics/src/store"
)

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored collection runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := store.Open(cmd.Context(), cfg.PostgresDSN, cfg.SQLitePath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			writeRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	return cmd
}

func writeRuns(w io.Writer, runs []contracts.Run) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tPIPELINE\tBUILD\tSTARTED\tRECORDS\tFAILED JOBS")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			run.ID, run.Pipeline, run.BuildNumber,
			run.StartedAt.Local().Format(time.DateTime), run.Records, run.Failures)
	}
	tw.Flush()
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Summarize a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := store.Open(cmd.Context(), cfg.PostgresDSN, cfg.SQLitePath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			records, err := st.GetRecords(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			summary := report.Summarize(records)
			summary.JobFailures = run.Failures
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %s build %s\n\n", run.ID, run.Pipeline, run.BuildNumber)
			fmt.Fprintln(cmd.OutOrStdout(), report.Render(summary))
			return nil
		},
	}
}
