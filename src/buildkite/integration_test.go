//go:build integration

package buildkite

import (
	"context"
	"os"
	"strconv"
	"testing"
)

func TestBuildkiteIntegration(t *testing.T) {
	token := os.Getenv("BUILDKITE_API_TOKEN")
	if token == "" {
		t.Skip("BUILDKITE_API_TOKEN not set, skipping integration test")
	}

	url := os.Getenv("TEST_BUILDKITE_URL")
	if url == "" {
		t.Skip("TEST_BUILDKITE_URL not set, skipping integration test")
	}

	org, pipeline, number, err := ParseBuildURL(url)
	if err != nil {
		t.Fatalf("ParseBuildURL failed: %v", err)
	}

	client := NewClient(token)
	build, err := client.GetBuild(context.Background(), org, pipeline, strconv.Itoa(number))
	if err != nil {
		t.Fatalf("GetBuild failed: %v", err)
	}

	if len(build.Jobs) == 0 {
		t.Error("Expected jobs, got 0")
	}

	t.Logf("Fetched build %s with %d jobs", build.ID, len(build.Jobs))
}
