package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		t.Setenv("BUILDKITE_API_TOKEN", "test-token-12345")
		t.Setenv("BUILDKITE_ORGANIZATION_SLUG", "")
		t.Setenv("TEST_METRICS_CONFIG", "")

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}

		if cfg.BuildkiteAPIToken != "test-token-12345" {
			t.Errorf("LoadFromEnv() token = %v, want %v", cfg.BuildkiteAPIToken, "test-token-12345")
		}
		if cfg.Organization != DefaultOrganization {
			t.Errorf("LoadFromEnv() organization = %v, want %v", cfg.Organization, DefaultOrganization)
		}
		if !reflect.DeepEqual(cfg.DiagnosticsPipelines, DefaultPipelines) {
			t.Errorf("LoadFromEnv() pipelines = %v, want %v", cfg.DiagnosticsPipelines, DefaultPipelines)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		t.Setenv("BUILDKITE_API_TOKEN", "")

		_, err := LoadFromEnv()
		if !errors.Is(err, ErrMissingInput) {
			t.Errorf("LoadFromEnv() error = %v, want ErrMissingInput", err)
		}
	})

	t.Run("buildkite environment", func(t *testing.T) {
		t.Setenv("BUILDKITE_API_TOKEN", "tok")
		t.Setenv("TEST_METRICS_CONFIG", "")
		t.Setenv("BUILDKITE", "true")
		t.Setenv("BUILDKITE_PIPELINE_SLUG", "eosio-lrt")
		t.Setenv("BUILDKITE_BUILD_NUMBER", "812")
		t.Setenv("REDPANDA_BROKERS", "localhost:19092, ,broker-2:9092")

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if !cfg.InBuildkite {
			t.Error("LoadFromEnv() InBuildkite = false, want true")
		}
		if cfg.Pipeline != "eosio-lrt" || cfg.BuildNumber != "812" {
			t.Errorf("LoadFromEnv() build = %s/%s, want eosio-lrt/812", cfg.Pipeline, cfg.BuildNumber)
		}
		want := []string{"localhost:19092", "broker-2:9092"}
		if !reflect.DeepEqual(cfg.RedpandaBrokers, want) {
			t.Errorf("LoadFromEnv() brokers = %v, want %v", cfg.RedpandaBrokers, want)
		}
	})
}

func TestLoad_TokenOptional(t *testing.T) {
	t.Setenv("BUILDKITE_API_TOKEN", "")
	t.Setenv("TEST_METRICS_CONFIG", "")
	t.Setenv("SQLITE_PATH", "/tmp/metrics.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.SQLitePath != "/tmp/metrics.db" {
		t.Errorf("Load() sqlite path = %q, want /tmp/metrics.db", cfg.SQLitePath)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test-metrics.yaml")
	content := `
diagnostics_pipelines:
  - eosio
  - eosio-nightly
output: out/metrics.json
concurrency: 0
sqlite_path: metrics.db
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BUILDKITE_API_TOKEN", "tok")
	t.Setenv("TEST_METRICS_CONFIG", path)
	t.Setenv("SQLITE_PATH", "")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() unexpected error: %v", err)
	}

	if want := []string{"eosio", "eosio-nightly"}; !reflect.DeepEqual(cfg.DiagnosticsPipelines, want) {
		t.Errorf("pipelines = %v, want %v", cfg.DiagnosticsPipelines, want)
	}
	if cfg.OutputPath != "out/metrics.json" {
		t.Errorf("output = %v, want out/metrics.json", cfg.OutputPath)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("concurrency = %v, want %v", cfg.Concurrency, DefaultConcurrency)
	}
	if cfg.SQLitePath != "metrics.db" {
		t.Errorf("sqlite path = %v, want metrics.db", cfg.SQLitePath)
	}
	if cfg.Topic != DefaultTopic {
		t.Errorf("topic = %v, want %v", cfg.Topic, DefaultTopic)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := Default()
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile() expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("concurrency: [1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := cfg.LoadFile(path); err == nil {
		t.Error("LoadFile() expected error for malformed YAML")
	}
}

func TestRequireBuild(t *testing.T) {
	cfg := Default()
	if err := cfg.RequireBuild(); !errors.Is(err, ErrMissingInput) {
		t.Errorf("RequireBuild() error = %v, want ErrMissingInput", err)
	}

	cfg.Pipeline = "eosio"
	cfg.BuildNumber = "1"
	if err := cfg.RequireBuild(); err != nil {
		t.Errorf("RequireBuild() unexpected error: %v", err)
	}
}
