// Package buildkite provides a client for interacting with the Buildkite API.
package buildkite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// APIBaseURL is the base URL for the Buildkite API.
	APIBaseURL = "https://api.buildkite.com/v2"

	// DefaultOrganization is used when BUILDKITE_ORGANIZATION_SLUG is unset.
	DefaultOrganization = "EOSIO"
)

// Client is a Buildkite API client.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. an httptest server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Pipeline is the pipeline a build belongs to.
type Pipeline struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Build represents a Buildkite build.
type Build struct {
	ID        string    `json:"id"`
	Number    int       `json:"number"`
	State     string    `json:"state"`
	URL       string    `json:"url"`
	WebURL    string    `json:"web_url"`
	Branch    string    `json:"branch"`
	Commit    string    `json:"commit"`
	CreatedAt time.Time `json:"created_at"`
	Pipeline  Pipeline  `json:"pipeline"`
	Jobs      []Job     `json:"jobs"`
}

// Job represents a Buildkite job within a build.
type Job struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	State string `json:"state"`
	// ExitStatus is nil for jobs that never ran (skipped, canceled before start).
	ExitStatus   *int      `json:"exit_status"`
	CreatedAt    time.Time `json:"created_at"`
	WebURL       string    `json:"web_url"`
	LogURL       string    `json:"log_url"`
	RawLogURL    string    `json:"raw_log_url"`
	ArtifactsURL string    `json:"artifacts_url"`
	// BuildURL is the API URL of the owning build.
	BuildURL string `json:"build_url"`
}

// Artifact represents a build artifact.
type Artifact struct {
	ID          string `json:"id"`
	JobID       string `json:"job_id"`
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"download_url"`
	FileSize    int64  `json:"file_size"`
	Sha1Sum     string `json:"sha1sum"`
}

// Name returns the artifact's base file name.
func (a Artifact) Name() string {
	if a.Filename != "" {
		return a.Filename
	}
	return path.Base(a.Path)
}

// NewClient creates a new Buildkite API client.
func NewClient(apiToken string, opts ...Option) *Client {
	c := &Client{
		apiToken: apiToken,
		baseURL:  APIBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var buildURLPattern = regexp.MustCompile(`https://buildkite\.com/([^/]+)/([^/]+)/builds/(\d+)`)

// ParseBuildURL extracts the organization, pipeline, and build number from a Buildkite URL.
// Expected format: https://buildkite.com/{org}/{pipeline}/builds/{number}
func ParseBuildURL(buildURL string) (org, pipeline string, buildNumber int, err error) {
	matches := buildURLPattern.FindStringSubmatch(buildURL)
	if len(matches) != 4 {
		return "", "", 0, fmt.Errorf("%w: %s", ErrInvalidURL, buildURL)
	}

	buildNumber, err = strconv.Atoi(matches[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid build number in URL: %w", err)
	}

	return matches[1], matches[2], buildNumber, nil
}

// GetBuild fetches a build's metadata from the Buildkite API. Every job's
// BuildURL is filled from the build when the API omits it.
func (c *Client) GetBuild(ctx context.Context, org, pipeline, buildNumber string) (*Build, error) {
	u := fmt.Sprintf("%s/organizations/%s/pipelines/%s/builds/%s",
		c.baseURL, url.PathEscape(org), url.PathEscape(pipeline), url.PathEscape(buildNumber))

	body, err := c.get(ctx, "get build", u, "application/json")
	if err != nil {
		return nil, err
	}

	var build Build
	if err := json.Unmarshal(body, &build); err != nil {
		return nil, fmt.Errorf("failed to decode build: %w", err)
	}
	if build.URL == "" {
		build.URL = u
	}
	for i := range build.Jobs {
		if build.Jobs[i].BuildURL == "" {
			build.Jobs[i].BuildURL = build.URL
		}
	}

	return &build, nil
}

// FetchJobLog streams the raw log content from the job's raw_log_url.
// The caller closes the returned body.
func (c *Client) FetchJobLog(ctx context.Context, job Job) (io.ReadCloser, error) {
	const op = "get job log"
	if job.RawLogURL == "" {
		return nil, &FetchError{Op: op, Err: fmt.Errorf("job %s has no raw_log_url", job.ID)}
	}
	resp, err := c.do(ctx, op, job.RawLogURL, "text/plain")
	if err != nil {
		return nil, err
	}
	return &nonEmptyBody{ReadCloser: resp.Body, op: op, url: job.RawLogURL, status: resp.StatusCode}, nil
}

// FetchJobEnv fetches the environment variables the job ran with.
func (c *Client) FetchJobEnv(ctx context.Context, job Job) (map[string]string, error) {
	if job.BuildURL == "" {
		return nil, &FetchError{Op: "get job env", Err: fmt.Errorf("job %s has no build_url", job.ID)}
	}
	u := fmt.Sprintf("%s/jobs/%s/env", strings.TrimRight(job.BuildURL, "/"), url.PathEscape(job.ID))

	body, err := c.get(ctx, "get job env", u, "application/json")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Env map[string]string `json:"env"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode job env: %w", err)
	}
	return payload.Env, nil
}

// FetchArtifacts fetches the list of artifacts for a job.
// A job without an artifacts URL, or a 404, yields no artifacts.
func (c *Client) FetchArtifacts(ctx context.Context, job Job) ([]Artifact, error) {
	if job.ArtifactsURL == "" {
		return []Artifact{}, nil
	}

	body, err := c.get(ctx, "get artifacts", job.ArtifactsURL, "application/json")
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return []Artifact{}, nil
		}
		return nil, err
	}

	var artifacts []Artifact
	if err := json.Unmarshal(body, &artifacts); err != nil {
		return nil, fmt.Errorf("failed to decode artifacts: %w", err)
	}
	return artifacts, nil
}

// DownloadArtifact downloads the content of an artifact.
func (c *Client) DownloadArtifact(ctx context.Context, artifact Artifact) ([]byte, error) {
	return c.get(ctx, "download artifact", artifact.DownloadURL, "")
}

// do performs an authenticated GET. Non-200 responses are reported as
// *FetchError; on success the caller owns the response body.
func (c *Client) do(ctx context.Context, op, u, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Op: op, URL: u, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Op: op, URL: u, Err: fmt.Errorf("failed to execute request: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, &FetchError{Op: op, URL: u, Status: resp.StatusCode, Err: statusError(resp.StatusCode, body)}
	}

	return resp, nil
}

// get performs an authenticated GET and returns the body. An empty body is
// an error.
func (c *Client) get(ctx context.Context, op, u, accept string) ([]byte, error) {
	resp, err := c.do(ctx, op, u, accept)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Op: op, URL: u, Status: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if len(body) == 0 {
		return nil, &FetchError{Op: op, URL: u, Status: resp.StatusCode, Err: ErrEmptyBody}
	}

	return body, nil
}

// nonEmptyBody turns an immediately exhausted body into ErrEmptyBody.
type nonEmptyBody struct {
	io.ReadCloser
	op     string
	url    string
	status int
	read   bool
}

func (b *nonEmptyBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.read = true
	}
	if err == io.EOF && !b.read {
		return n, &FetchError{Op: b.op, URL: b.url, Status: b.status, Err: ErrEmptyBody}
	}
	return n, err
}
