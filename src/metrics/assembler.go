// Package metrics assembles MetricsRecords for the test jobs of a Buildkite
// build.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"

	"test-metrics/src/buildkite"
	"test-metrics/src/contracts"
	"test-metrics/src/ctest"
	"test-metrics/src/diagnostics"
	"test-metrics/src/logger"
	"test-metrics/src/results"
	"test-metrics/src/sanitize"
)

// ReportArtifact is the structured test report a job may upload.
const ReportArtifact = "test-results.xml"

// Source fetches the per-job inputs. *buildkite.Client implements it.
type Source interface {
	FetchJobLog(ctx context.Context, job buildkite.Job) (io.ReadCloser, error)
	FetchJobEnv(ctx context.Context, job buildkite.Job) (map[string]string, error)
	FetchArtifacts(ctx context.Context, job buildkite.Job) ([]buildkite.Artifact, error)
	DownloadArtifact(ctx context.Context, artifact buildkite.Artifact) ([]byte, error)
}

// Assembler builds the records of a single job.
type Assembler struct {
	source     Source
	classifier *diagnostics.Classifier
	log        logger.Logger
}

// NewAssembler creates an Assembler. Diagnostics run only for pipelines in allow.
func NewAssembler(source Source, allow diagnostics.AllowList, log logger.Logger) *Assembler {
	return &Assembler{
		source:     source,
		classifier: diagnostics.NewClassifier(allow),
		log:        log,
	}
}

// AssembleJob returns one record per test result of the job, in parse order.
//
// A job without an exit status never ran and yields (nil, nil), as does a job
// whose environment has no label. Log and environment fetch errors are
// returned; any structured report problem, including a failed artifact fetch,
// falls back to parsing the log.
func (a *Assembler) AssembleJob(ctx context.Context, job buildkite.Job) ([]contracts.MetricsRecord, error) {
	if job.ExitStatus == nil {
		a.log.Warn("job %q (%s) has no exit status, skipping", job.Name, job.ID)
		return nil, nil
	}

	a.log.Debug("fetching log for job %q (%s)", job.Name, job.ID)
	sanitized, err := a.fetchLog(ctx, job)
	if err != nil {
		return nil, err
	}

	env, err := a.source.FetchJobEnv(ctx, job)
	if err != nil {
		return nil, err
	}

	osName, err := InferOS(env[EnvLabel])
	if err != nil {
		a.log.Error("job %q (%s): %v", job.Name, job.ID, err)
		return nil, nil
	}

	tests, err := a.parseResults(ctx, job, sanitized)
	if err != nil {
		return nil, err
	}

	pipeline := env[EnvPipeline]
	log := diagnostics.NewLog(sanitized)
	records := make([]contracts.MetricsRecord, 0, len(tests))
	for _, test := range tests {
		diag := a.classifier.Classify(test, pipeline, log)
		records = append(records, contracts.MetricsRecord{
			AgentName:   env[EnvAgentName],
			AgentRole:   agentRole(env),
			Branch:      env[EnvBranch],
			BuildNumber: env[EnvBuildNumber],
			Commit:      env[EnvCommit],
			Job:         env[EnvLabel],
			OS:          osName,
			Pipeline:    pipeline,
			Repo:        NormalizeRepo(env[EnvRepo]),
			TestName:    test.Name,
			TestResult:  string(test.Outcome),
			TestPassed:  test.Passed(),
			TestTime:    contracts.Seconds(test.Seconds()),
			ErrorMsg:    diag.ErrorMessage,
			LineNumber:  diag.LineNumber,
			StackTrace:  diag.StackTrace,
			WebURL:      job.WebURL,
			JobID:       job.ID,
		})
	}

	a.log.Info("job %q: %d test results", job.Name, len(records))
	return records, nil
}

func (a *Assembler) fetchLog(ctx context.Context, job buildkite.Job) (string, error) {
	body, err := a.source.FetchJobLog(ctx, job)
	if err != nil {
		return "", err
	}
	defer body.Close()

	sanitized, err := sanitize.SanitizeReader(body)
	if err != nil {
		return "", fmt.Errorf("reading log of job %s: %w", job.ID, err)
	}
	return sanitized, nil
}

// parseResults prefers the structured report and falls back to the log. The
// report is optional, so failing to list or download it is not a job error.
func (a *Assembler) parseResults(ctx context.Context, job buildkite.Job, sanitized string) ([]results.TestResult, error) {
	tests, err := a.parseStructured(ctx, job)
	if err == nil {
		return tests, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	a.log.Warn("job %q (%s): %v; falling back to log parsing", job.Name, job.ID, err)
	return results.ParseLog(sanitized), nil
}

var errNoReport = errors.New("no " + ReportArtifact + " artifact")

func (a *Assembler) parseStructured(ctx context.Context, job buildkite.Job) ([]results.TestResult, error) {
	artifacts, err := a.source.FetchArtifacts(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}

	for _, artifact := range artifacts {
		if artifact.Name() != ReportArtifact {
			continue
		}

		data, err := a.source.DownloadArtifact(ctx, artifact)
		if err != nil {
			return nil, fmt.Errorf("downloading %s: %w", ReportArtifact, err)
		}
		report, err := ctest.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", ReportArtifact, err)
		}
		return results.ParseStructured(report)
	}

	return nil, errNoReport
}
