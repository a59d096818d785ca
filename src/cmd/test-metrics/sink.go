package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"test-metrics/src/broker"
	"test-metrics/src/config"
	"test-metrics/src/sink"
	"test-metrics/src/store"
)

func newSinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sink",
		Short: "Consume published metrics and save them to the store",
		Long: `Subscribes to the metrics topic on Redpanda and saves every record to
Postgres (POSTGRES_DSN) or SQLite (SQLITE_PATH). Runs until interrupted.

Requires REDPANDA_BROKERS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(cfg.RedpandaBrokers) == 0 {
				return fmt.Errorf("%w: REDPANDA_BROKERS is required for the sink (example: localhost:19092)", config.ErrMissingInput)
			}

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			brk, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, log)
			if err != nil {
				return fmt.Errorf("failed to create broker: %w", err)
			}
			defer brk.Close()

			st, err := store.Open(ctx, cfg.PostgresDSN, cfg.SQLitePath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			log.Info("Redpanda brokers: %v", cfg.RedpandaBrokers)
			agent := sink.NewAgent(brk, st, cfg.Topic, log)
			if err := agent.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("sink error: %w", err)
			}

			log.Info("Sink stopped")
			return nil
		},
	}
}
