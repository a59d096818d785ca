// Package pipeline runs one collection of a build end to end. It is shared by
// the collect command and the MCP server.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"test-metrics/src/broker"
	"test-metrics/src/buildkite"
	"test-metrics/src/config"
	"test-metrics/src/contracts"
	"test-metrics/src/diagnostics"
	"test-metrics/src/logger"
	"test-metrics/src/metrics"
	"test-metrics/src/sink"
	"test-metrics/src/store"
)

// Mode selects where collected records go.
type Mode int

const (
	// LocalMode saves records straight to the store.
	LocalMode Mode = iota
	// DistributedMode publishes records to the broker; a sink saves them.
	DistributedMode
)

func (m Mode) String() string {
	switch m {
	case LocalMode:
		return "local"
	case DistributedMode:
		return "distributed"
	default:
		return "unknown"
	}
}

// DetectMode picks DistributedMode when brokers are configured.
func DetectMode(cfg *config.Config) Mode {
	if len(cfg.RedpandaBrokers) > 0 {
		return DistributedMode
	}
	return LocalMode
}

// BuildFetcher loads a build with its jobs. *buildkite.Client implements it.
type BuildFetcher interface {
	GetBuild(ctx context.Context, org, pipeline, buildNumber string) (*buildkite.Build, error)
}

// Collector walks a build and persists the run.
type Collector struct {
	Builds       BuildFetcher
	Walker       *metrics.Walker
	Store        store.Store
	Broker       broker.Broker
	Mode         Mode
	Organization string
	Topic        string
	Log          logger.Logger
}

// New wires a Collector from configuration. brk may be nil in LocalMode.
func New(cfg *config.Config, client *buildkite.Client, st store.Store, brk broker.Broker, log logger.Logger) *Collector {
	assembler := metrics.NewAssembler(client, diagnostics.NewAllowList(cfg.DiagnosticsPipelines...), log)
	return &Collector{
		Builds:       client,
		Walker:       metrics.NewWalker(assembler, cfg.Concurrency, log),
		Store:        st,
		Broker:       brk,
		Mode:         DetectMode(cfg),
		Organization: cfg.Organization,
		Topic:        cfg.Topic,
		Log:          log,
	}
}

// Outcome is a finished collection.
type Outcome struct {
	Run   contracts.Run
	Build *buildkite.Build
	metrics.Result
}

// Collect fetches the build, assembles its test jobs and persists the run.
//
// Only a failure to load the build is returned. Persistence problems are
// logged and added to the outcome's warnings, since the records themselves are
// still valid.
func (c *Collector) Collect(ctx context.Context, pipelineSlug, buildNumber string) (*Outcome, error) {
	build, err := c.Builds.GetBuild(ctx, c.Organization, pipelineSlug, buildNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load build %s/%s: %w", pipelineSlug, buildNumber, err)
	}

	run := contracts.Run{
		ID:          uuid.NewString(),
		Pipeline:    pipelineSlug,
		BuildNumber: buildNumber,
		StartedAt:   time.Now().UTC(),
	}
	createErr := c.Store.CreateRun(ctx, run)

	c.Log.Info("run %s: collecting %s build %s (%s mode)", run.ID, pipelineSlug, buildNumber, c.Mode)
	out := &Outcome{Build: build, Result: c.Walker.AssembleBuild(ctx, *build)}

	if createErr != nil {
		out.warn(c.Log, "failed to create run %s: %v", run.ID, createErr)
	}

	if err := c.persist(ctx, run.ID, out.Records); err != nil {
		out.warn(c.Log, "run %s: %v", run.ID, err)
	}
	if err := c.Store.FinishRun(ctx, run.ID, out.Failures); err != nil {
		out.warn(c.Log, "failed to finish run %s: %v", run.ID, err)
	}

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.Records = len(out.Records)
	run.Failures = out.Failures
	out.Run = run
	return out, nil
}

func (c *Collector) persist(ctx context.Context, runID string, records []contracts.MetricsRecord) error {
	if len(records) == 0 {
		return nil
	}
	if c.Mode == DistributedMode && c.Broker != nil {
		return sink.Publish(ctx, c.Broker, c.Topic, runID, records)
	}
	if err := c.Store.SaveRecords(ctx, runID, records); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	return nil
}

func (o *Outcome) warn(log logger.Logger, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Warn("%s", msg)
	o.Warnings = append(o.Warnings, msg)
}
