package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/patrickmn/go-cache"

	"test-metrics/src/contracts"
	"test-metrics/src/patterns"
	"test-metrics/src/pipeline"
	"test-metrics/src/report"
	"test-metrics/src/store"
)

const (
	// recordsTTL is how long a run's records stay cached for drill-down.
	recordsTTL      = 30 * time.Minute
	cleanupInterval = 10 * time.Minute

	defaultFailureLimit = 50
)

// Collector runs one collection. *pipeline.Collector implements it.
type Collector interface {
	Collect(ctx context.Context, pipelineSlug, buildNumber string) (*pipeline.Outcome, error)
}

// Server is the MCP server for test-metrics.
type Server struct {
	mcpServer *server.MCPServer
	collector Collector
	store     store.Store
	records   *cache.Cache
}

// NewServer creates a new MCP server. Runs collected by earlier processes are
// read back from st.
func NewServer(collector Collector, st store.Store) *Server {
	s := server.NewMCPServer(
		"test-metrics",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		collector: collector,
		store:     st,
		records:   cache.New(recordsTTL, cleanupInterval),
	}
	srv.registerTools()

	return srv
}

func (s *Server) registerTools() {
	collectTool := mcp.NewTool("collect_build_metrics",
		mcp.WithDescription("Collect per-test metrics for every test job of a Buildkite build. Returns a run ID and a summary of outcomes by OS and error message. Use get_test_failures and get_run_summary with the run ID to drill in."),
		mcp.WithString("pipeline",
			mcp.Required(),
			mcp.Description("Buildkite pipeline slug, e.g. eosio"),
		),
		mcp.WithString("build_number",
			mcp.Required(),
			mcp.Description("Build number within the pipeline"),
		),
	)

	failuresTool := mcp.NewTool("get_test_failures",
		mcp.WithDescription("List the failed test records of a run, with error message, log line number and stack trace."),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("Run ID from collect_build_metrics"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max failures to return (default: 50)"),
		),
		mcp.WithBoolean("raw",
			mcp.Description("Return messages and stack traces unshortened (default: false)"),
		),
	)

	summaryTool := mcp.NewTool("get_run_summary",
		mcp.WithDescription("Summarize a run: totals by outcome and counts by OS and error message."),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("Run ID from collect_build_metrics"),
		),
	)

	s.mcpServer.AddTool(collectTool, s.handleCollect)
	s.mcpServer.AddTool(failuresTool, s.handleGetFailures)
	s.mcpServer.AddTool(summaryTool, s.handleGetSummary)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleCollect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := request.GetString("pipeline", "")
	if slug == "" {
		return mcp.NewToolResultError("pipeline parameter is required"), nil
	}
	buildNumber := request.GetString("build_number", "")
	if buildNumber == "" {
		return mcp.NewToolResultError("build_number parameter is required"), nil
	}

	out, err := s.collector.Collect(ctx, slug, buildNumber)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("collection failed: %v", err)), nil
	}

	s.records.SetDefault(out.Run.ID, out.Records)

	summary := report.Summarize(out.Records)
	summary.JobFailures = out.Failures
	resp := CollectResponse{
		RunID:       out.Run.ID,
		Pipeline:    slug,
		BuildNumber: buildNumber,
		Summary:     summary,
		Warnings:    out.Warnings,
	}
	if out.Build != nil {
		resp.BuildURL = out.Build.WebURL
		resp.BuildState = out.Build.State
	}
	return jsonResult(resp)
}

func (s *Server) handleGetFailures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := request.GetString("run_id", "")
	if runID == "" {
		return mcp.NewToolResultError("run_id parameter is required"), nil
	}
	limit := request.GetInt("limit", defaultFailureLimit)

	records, err := s.lookup(ctx, runID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	failures := report.Failures(records)
	total := len(failures)
	if limit > 0 && len(failures) > limit {
		failures = failures[:limit]
	}
	if !request.GetBool("raw", false) {
		failures = compact(failures)
	}
	return jsonResult(FailuresResponse{RunID: runID, Total: total, Failures: failures})
}

func (s *Server) handleGetSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := request.GetString("run_id", "")
	if runID == "" {
		return mcp.NewToolResultError("run_id parameter is required"), nil
	}

	records, err := s.lookup(ctx, runID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := SummaryResponse{
		Summary:    report.Summarize(records),
		Signatures: report.GroupFailures(records, patterns.Signature),
	}
	if run, err := s.store.GetRun(ctx, runID); err == nil {
		resp.Run = run
		resp.Summary.JobFailures = run.Failures
	}
	return jsonResult(resp)
}

// lookup returns a run's records from the cache, falling back to the store.
func (s *Server) lookup(ctx context.Context, runID string) ([]contracts.MetricsRecord, error) {
	if cached, ok := s.records.Get(runID); ok {
		return cached.([]contracts.MetricsRecord), nil
	}

	records, err := s.store.GetRecords(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	s.records.SetDefault(runID, records)
	return records, nil
}

// compact returns copies of records with shortened messages and traces.
func compact(records []contracts.MetricsRecord) []contracts.MetricsRecord {
	out := make([]contracts.MetricsRecord, len(records))
	for i, rec := range records {
		if rec.ErrorMsg != nil {
			msg := patterns.Compact(*rec.ErrorMsg)
			rec.ErrorMsg = &msg
		}
		if rec.StackTrace != nil {
			trace := patterns.Compact(*rec.StackTrace)
			rec.StackTrace = &trace
		}
		out[i] = rec
	}
	return out
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
