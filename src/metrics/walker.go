package metrics

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"test-metrics/src/buildkite"
	"test-metrics/src/contracts"
	"test-metrics/src/logger"
)

// DefaultConcurrency bounds the number of jobs assembled at once.
const DefaultConcurrency = 8

// JobAssembler produces the records of one job. *Assembler implements it.
type JobAssembler interface {
	AssembleJob(ctx context.Context, job buildkite.Job) ([]contracts.MetricsRecord, error)
}

// Result is the outcome of assembling a whole build.
type Result struct {
	Records []contracts.MetricsRecord
	// Failures counts jobs whose assembly returned an error.
	Failures int
	Warnings []string
}

// Walker fans a build out to its test jobs.
type Walker struct {
	jobs        JobAssembler
	concurrency int
	log         logger.Logger
}

// NewWalker creates a Walker. A concurrency below 1 uses DefaultConcurrency.
func NewWalker(jobs JobAssembler, concurrency int, log logger.Logger) *Walker {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Walker{jobs: jobs, concurrency: concurrency, log: log}
}

// TestJobs returns the script jobs whose name mentions "test", excluding the
// job that runs this collector.
func TestJobs(jobs []buildkite.Job) []buildkite.Job {
	var out []buildkite.Job
	for _, job := range jobs {
		name := strings.ToLower(job.Name)
		if job.Type != "script" || !strings.Contains(name, "test") || strings.Contains(name, "test metrics") {
			continue
		}
		out = append(out, job)
	}
	return out
}

type jobOutcome struct {
	records []contracts.MetricsRecord
	err     error
}

// AssembleBuild assembles every test job of the build. Jobs run concurrently
// but records are concatenated in job order. A failing job is counted and
// skipped; it never stops its siblings.
func (w *Walker) AssembleBuild(ctx context.Context, build buildkite.Build) Result {
	jobs := TestJobs(build.Jobs)
	w.log.Info("build %d: %d test jobs of %d", build.Number, len(jobs), len(build.Jobs))

	outcomes := make([]jobOutcome, len(jobs))
	var g errgroup.Group
	g.SetLimit(w.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			outcomes[i] = w.assemble(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	var result Result
	for i, outcome := range outcomes {
		job := jobs[i]
		switch {
		case outcome.err != nil:
			result.Failures++
			result.warn(w.log, "job %q (%s) failed: %v", job.Name, job.ID, outcome.err)
		case len(outcome.records) == 0:
			result.warn(w.log, "job %q (%s) produced no metrics", job.Name, job.ID)
		default:
			result.Records = append(result.Records, outcome.records...)
		}
	}

	return result
}

func (w *Walker) assemble(ctx context.Context, job buildkite.Job) (outcome jobOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = jobOutcome{err: fmt.Errorf("panic: %v", r)}
		}
	}()

	records, err := w.jobs.AssembleJob(ctx, job)
	return jobOutcome{records: records, err: err}
}

func (r *Result) warn(log logger.Logger, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	log.Warn("%s", msg)
}
