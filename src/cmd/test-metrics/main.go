// Package main provides the test-metrics CLI: it collects per-test metrics for
// Buildkite builds and serves, stores and displays them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"test-metrics/src/buildkite"
	"test-metrics/src/config"
	"test-metrics/src/logger"
)

// Exit codes. A collect run otherwise exits with its failed-job count.
const (
	exitMissingInput = 255
	// exitMaxFailures keeps large failure counts from wrapping or colliding
	// with exitMissingInput.
	exitMaxFailures = 254
)

var (
	verbose   bool
	logFormat string
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, config.ErrMissingInput) || errors.Is(err, buildkite.ErrInvalidURL) {
		return exitMissingInput
	}
	return 1
}

// failureExit returns the error for a run with failures failed jobs, or nil.
func failureExit(failures int) error {
	if failures <= 0 {
		return nil
	}
	return &exitError{code: min(failures, exitMaxFailures)}
}

// newLogger builds the logger selected by --log-format.
func newLogger(cfg *config.Config) (logger.Logger, error) {
	switch logFormat {
	case "console", "":
		l := logger.NewConsoleLogger()
		l.Verbose = verbose
		l.Annotate = cfg.InBuildkite
		return l, nil
	case "json":
		return logger.NewStructuredLogger(os.Stderr, verbose), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want console or json)", logFormat)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "test-metrics",
		Short: "Collect per-test metrics from Buildkite builds",
		Long: `test-metrics walks the test jobs of a Buildkite build, parses each job's
test results and classifies failures from the job log. Records are written as
JSON and can be published to Redpanda, stored in Postgres or SQLite, browsed in
a terminal viewer, or served to LLM clients over MCP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format: console or json")

	root.AddCommand(
		newCollectCmd(),
		newViewCmd(),
		newSinkCmd(),
		newRunsCmd(),
		newShowCmd(),
		newMCPCmd(),
	)
	return root
}

func main() {
	err := newRootCmd().Execute()
	var ee *exitError
	if err != nil && (!errors.As(err, &ee) || ee.err != nil) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}
