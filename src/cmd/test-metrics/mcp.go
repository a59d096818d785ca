package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"test-metrics/src/broker"
	"test-metrics/src/buildkite"
	"test-metrics/src/config"
	"test-metrics/src/logger"
	"test-metrics/src/mcp"
	"test-metrics/src/pipeline"
	"test-metrics/src/store"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve metrics tools to LLM clients over MCP (stdio)",
		Long: `Runs an MCP server on stdin/stdout with the tools collect_build_metrics,
get_test_failures and get_run_summary. Logging is disabled because stdout
carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			log := logger.NewSilentLogger()

			st, err := store.Open(cmd.Context(), cfg.PostgresDSN, cfg.SQLitePath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			var brk broker.Broker
			if pipeline.DetectMode(cfg) == pipeline.DistributedMode {
				brk, err = broker.New(cfg.RedpandaBrokers, log)
				if err != nil {
					return fmt.Errorf("failed to create broker: %w", err)
				}
				defer brk.Close()
			}

			collector := pipeline.New(cfg, buildkite.NewClient(cfg.BuildkiteAPIToken), st, brk, log)
			return mcp.NewServer(collector, st).Run()
		},
	}
}
