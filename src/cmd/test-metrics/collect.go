package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"test-metrics/src/broker"
	"test-metrics/src/buildkite"
	"test-metrics/src/config"
	"test-metrics/src/logger"
	"test-metrics/src/pipeline"
	"test-metrics/src/report"
	"test-metrics/src/store"
)

func newCollectCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "collect [build-number|build-url] [pipeline-slug]",
		Short: "Collect test metrics for a build and write them as JSON",
		Long: `Collects one metrics record per test for every test job of a build.

The build number and pipeline slug default to BUILDKITE_BUILD_NUMBER and
BUILDKITE_PIPELINE_SLUG, so inside a Buildkite step no arguments are needed.
BUILDKITE_API_TOKEN is required. A build URL sets the organization, pipeline
and build number at once.

The exit status is the number of jobs whose metrics could not be assembled,
or 255 when a required input is missing.

Example:
  test-metrics collect 1234 eosio
  test-metrics collect https://buildkite.com/EOSIO/eosio/builds/1234`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			if err := applyArgs(cfg, args); err != nil {
				return buildkite.WrapError(err)
			}
			if output != "" {
				cfg.OutputPath = output
			}
			if err := cfg.RequireBuild(); err != nil {
				return err
			}
			return runCollect(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default test-metrics.json)")
	return cmd
}

// applyArgs lets positional arguments override the environment. The first
// argument is either a build number or a full build URL.
func applyArgs(cfg *config.Config, args []string) error {
	if len(args) > 0 && strings.Contains(args[0], "://") {
		if len(args) > 1 {
			return fmt.Errorf("a build URL already names the pipeline, got extra argument %q", args[1])
		}
		org, slug, number, err := buildkite.ParseBuildURL(args[0])
		if err != nil {
			return err
		}
		cfg.Organization = org
		cfg.Pipeline = slug
		cfg.BuildNumber = strconv.Itoa(number)
		return nil
	}

	if len(args) > 0 && args[0] != "" {
		cfg.BuildNumber = args[0]
	}
	if len(args) > 1 && args[1] != "" {
		cfg.Pipeline = args[1]
	}
	return nil
}

func runCollect(cmd *cobra.Command, cfg *config.Config) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	st, brk := openBackends(ctx, cfg, log)
	defer st.Close()
	if brk != nil {
		defer brk.Close()
	}

	client := buildkite.NewClient(cfg.BuildkiteAPIToken)
	collector := pipeline.New(cfg, client, st, brk, log)
	if brk == nil {
		collector.Mode = pipeline.LocalMode
	}

	out, err := collector.Collect(ctx, cfg.Pipeline, cfg.BuildNumber)
	if err != nil {
		return buildkite.WrapError(err)
	}

	if err := report.WriteJSON(cfg.OutputPath, out.Records); err != nil {
		return err
	}
	log.Info("wrote %d records to %s (run %s)", len(out.Records), cfg.OutputPath, out.Run.ID)

	summary := report.Summarize(out.Records)
	summary.JobFailures = out.Failures
	fmt.Fprintln(cmd.OutOrStdout(), report.Render(summary))

	return failureExit(out.Failures)
}

// openBackends opens the configured store and, in distributed mode, the
// broker. Neither is required to write the metrics file: an unreachable store
// falls back to memory and a broker failure falls back to saving directly.
func openBackends(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, broker.Broker) {
	st, err := store.Open(ctx, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		log.Warn("failed to open store, keeping this run in memory: %v", err)
		st = store.NewMemoryStore()
	}

	if pipeline.DetectMode(cfg) != pipeline.DistributedMode {
		return st, nil
	}
	brk, err := broker.New(cfg.RedpandaBrokers, log)
	if err != nil {
		log.Warn("failed to create broker, saving records directly: %v", err)
		return st, nil
	}
	return st, brk
}
