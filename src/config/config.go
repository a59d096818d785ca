// Package config provides configuration management for test-metrics.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"test-metrics/src/contracts"
)

// ErrMissingInput is returned when a required setting is absent.
var ErrMissingInput = errors.New("missing required input")

// DefaultPipelines are the pipelines diagnostics classification runs for.
var DefaultPipelines = []string{
	"eosio",
	"eosio-build-unpinned",
	"eosio-base-images",
	"eosio-beta",
	"eosio-lrt",
	"eosio-security",
}

const (
	DefaultOrganization = "EOSIO"
	DefaultOutputPath   = "test-metrics.json"
	DefaultConcurrency  = 8
	DefaultTopic        = contracts.TopicMetrics
)

// Config holds the application configuration.
type Config struct {
	// BuildkiteAPIToken is the API token for authenticating with Buildkite.
	BuildkiteAPIToken string `yaml:"-"`
	Organization      string `yaml:"organization"`
	Pipeline          string `yaml:"pipeline"`
	BuildNumber       string `yaml:"build_number"`

	// InBuildkite is set when running as a Buildkite step; warnings are then
	// annotated so the log group expands.
	InBuildkite bool `yaml:"-"`

	// DiagnosticsPipelines is the classification allow-list.
	DiagnosticsPipelines []string `yaml:"diagnostics_pipelines"`
	OutputPath           string   `yaml:"output"`
	Concurrency          int      `yaml:"concurrency"`
	Topic                string   `yaml:"topic"`

	RedpandaBrokers []string `yaml:"redpanda_brokers"`
	PostgresDSN     string   `yaml:"postgres_dsn"`
	SQLitePath      string   `yaml:"sqlite_path"`
}

// Default returns a Config with every optional field set.
func Default() *Config {
	return &Config{
		Organization:         DefaultOrganization,
		DiagnosticsPipelines: append([]string(nil), DefaultPipelines...),
		OutputPath:           DefaultOutputPath,
		Concurrency:          DefaultConcurrency,
		Topic:                DefaultTopic,
	}
}

// LoadFromEnv loads configuration from environment variables and requires a
// Buildkite API token.
func LoadFromEnv() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if cfg.BuildkiteAPIToken == "" {
		return nil, fmt.Errorf("%w: BUILDKITE_API_TOKEN environment variable is required", ErrMissingInput)
	}
	return cfg, nil
}

// Load reads the environment without requiring a token; commands that only
// read stored metrics use it. When TEST_METRICS_CONFIG names a YAML file it is
// applied first and the environment overrides it.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("TEST_METRICS_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.BuildkiteAPIToken = os.Getenv("BUILDKITE_API_TOKEN")
	setString(&cfg.Organization, "BUILDKITE_ORGANIZATION_SLUG")
	setString(&cfg.Pipeline, "BUILDKITE_PIPELINE_SLUG")
	setString(&cfg.BuildNumber, "BUILDKITE_BUILD_NUMBER")
	setString(&cfg.PostgresDSN, "POSTGRES_DSN")
	setString(&cfg.SQLitePath, "SQLITE_PATH")
	if brokers := os.Getenv("REDPANDA_BROKERS"); brokers != "" {
		cfg.RedpandaBrokers = splitList(brokers)
	}
	cfg.InBuildkite = os.Getenv("BUILDKITE") == "true"

	return cfg, nil
}

// LoadFile merges a YAML file into cfg. Fields absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return nil
}

// RequireBuild checks that a pipeline and build number are known.
func (c *Config) RequireBuild() error {
	var missing []string
	if c.BuildNumber == "" {
		missing = append(missing, "build number (BUILDKITE_BUILD_NUMBER or first argument)")
	}
	if c.Pipeline == "" {
		missing = append(missing, "pipeline slug (BUILDKITE_PIPELINE_SLUG or second argument)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingInput, strings.Join(missing, ", "))
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
