package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"test-metrics/src/config"
	"test-metrics/src/contracts"
	"test-metrics/src/report"
	"test-metrics/src/store"
	"test-metrics/src/tui"
)

func newViewCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "view [file]",
		Short: "Browse collected metrics in the terminal",
		Long: `Opens the metrics viewer on a JSON file written by collect, or on a stored
run when --run is given. Failed tests are listed first.

Keys: j/k move, g/G top/bottom, f failed only, d/u scroll detail, q quit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var (
				title   string
				records []contracts.MetricsRecord
			)
			if runID != "" {
				title = "run " + runID
				records, err = storedRecords(cmd.Context(), cfg, runID)
			} else {
				path := cfg.OutputPath
				if len(args) > 0 {
					path = args[0]
				}
				title = path
				records, err = report.ReadJSON(path)
			}
			if err != nil {
				return err
			}

			if err := tui.Start(title, records); err != nil {
				return fmt.Errorf("viewer error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Show a stored run instead of a file")
	return cmd
}

func storedRecords(ctx context.Context, cfg *config.Config, runID string) ([]contracts.MetricsRecord, error) {
	st, err := store.Open(ctx, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()
	return st.GetRecords(ctx, runID)
}
