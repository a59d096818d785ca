package buildkite

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseBuildURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		wantOrg      string
		wantPipeline string
		wantNumber   int
		wantErr      bool
	}{
		{
			name:         "valid URL",
			url:          "https://buildkite.com/EOSIO/eosio/builds/4091",
			wantOrg:      "EOSIO",
			wantPipeline: "eosio",
			wantNumber:   4091,
		},
		{
			name:         "valid URL with dashes",
			url:          "https://buildkite.com/EOSIO/eosio-build-unpinned/builds/123",
			wantOrg:      "EOSIO",
			wantPipeline: "eosio-build-unpinned",
			wantNumber:   123,
		},
		{
			name:    "invalid URL - missing build number",
			url:     "https://buildkite.com/EOSIO/eosio/builds/",
			wantErr: true,
		},
		{
			name:    "invalid URL - wrong format",
			url:     "https://example.com/builds/123",
			wantErr: true,
		},
		{
			name:    "invalid URL - non-numeric build number",
			url:     "https://buildkite.com/EOSIO/eosio/builds/abc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			org, pipeline, number, err := ParseBuildURL(tt.url)

			if (err != nil) != tt.wantErr {
				t.Errorf("ParseBuildURL() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("ParseBuildURL() error = %v, want ErrInvalidURL", err)
				}
				return
			}
			if org != tt.wantOrg {
				t.Errorf("ParseBuildURL() org = %v, want %v", org, tt.wantOrg)
			}
			if pipeline != tt.wantPipeline {
				t.Errorf("ParseBuildURL() pipeline = %v, want %v", pipeline, tt.wantPipeline)
			}
			if number != tt.wantNumber {
				t.Errorf("ParseBuildURL() number = %v, want %v", number, tt.wantNumber)
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-token")

	if client.apiToken != "test-api-token" {
		t.Errorf("NewClient() apiToken = %v, want %v", client.apiToken, "test-api-token")
	}
	if client.baseURL != APIBaseURL {
		t.Errorf("NewClient() baseURL = %v, want %v", client.baseURL, APIBaseURL)
	}
	if client.httpClient == nil {
		t.Error("NewClient() httpClient is nil")
	}

	client = NewClient("t", WithBaseURL("http://localhost:1234/"))
	if client.baseURL != "http://localhost:1234" {
		t.Errorf("WithBaseURL() baseURL = %v, want trailing slash trimmed", client.baseURL)
	}
}

// newFakeBuildkite serves a single build with one job, its env, log and artifacts.
func newFakeBuildkite(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server

	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"Authentication required"}`))
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("/organizations/EOSIO/pipelines/eosio/builds/7", auth(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"id": "b-7", "number": 7, "state": "failed",
			"url": "`+srv.URL+`/organizations/EOSIO/pipelines/eosio/builds/7",
			"web_url": "https://buildkite.com/EOSIO/eosio/builds/7",
			"pipeline": {"slug": "eosio"},
			"jobs": [
				{"id": "j-1", "name": ":ubuntu: 18.04 - Unit Tests", "type": "script", "exit_status": 1,
				 "raw_log_url": "`+srv.URL+`/log/j-1", "artifacts_url": "`+srv.URL+`/artifacts/j-1"},
				{"id": "j-2", "name": "wait", "type": "waiter"}
			]
		}`)
	}))
	mux.HandleFunc("/organizations/EOSIO/pipelines/eosio/builds/7/jobs/j-1/env", auth(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"env": {"BUILDKITE_LABEL": ":ubuntu: 18.04 - Unit Tests"}}`)
	}))
	mux.HandleFunc("/log/j-1", auth(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "1/1 Test #1: unit_test ... Passed 1.00 sec\r\n")
	}))
	mux.HandleFunc("/log/empty", auth(func(w http.ResponseWriter, r *http.Request) {}))
	mux.HandleFunc("/artifacts/j-1", auth(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id": "a-1", "job_id": "j-1", "path": "build/Testing/test-results.xml",
			"download_url": "`+srv.URL+`/download/a-1"}]`)
	}))
	mux.HandleFunc("/download/a-1", auth(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<Site/>")
	}))

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, NewClient("secret", WithBaseURL(srv.URL))
}

func TestClient_GetBuild(t *testing.T) {
	srv, client := newFakeBuildkite(t)
	ctx := context.Background()

	build, err := client.GetBuild(ctx, "EOSIO", "eosio", "7")
	if err != nil {
		t.Fatalf("GetBuild() error = %v", err)
	}
	if build.Pipeline.Slug != "eosio" {
		t.Errorf("GetBuild() pipeline = %q, want eosio", build.Pipeline.Slug)
	}
	if len(build.Jobs) != 2 {
		t.Fatalf("GetBuild() jobs = %d, want 2", len(build.Jobs))
	}

	job := build.Jobs[0]
	if job.ExitStatus == nil || *job.ExitStatus != 1 {
		t.Errorf("job.ExitStatus = %v, want 1", job.ExitStatus)
	}
	if build.Jobs[1].ExitStatus != nil {
		t.Errorf("waiter ExitStatus = %v, want nil", *build.Jobs[1].ExitStatus)
	}
	wantBuildURL := srv.URL + "/organizations/EOSIO/pipelines/eosio/builds/7"
	if job.BuildURL != wantBuildURL {
		t.Errorf("job.BuildURL = %q, want %q", job.BuildURL, wantBuildURL)
	}
}

func TestClient_JobResources(t *testing.T) {
	_, client := newFakeBuildkite(t)
	ctx := context.Background()

	build, err := client.GetBuild(ctx, "EOSIO", "eosio", "7")
	if err != nil {
		t.Fatalf("GetBuild() error = %v", err)
	}
	job := build.Jobs[0]

	env, err := client.FetchJobEnv(ctx, job)
	if err != nil {
		t.Fatalf("FetchJobEnv() error = %v", err)
	}
	if env["BUILDKITE_LABEL"] != ":ubuntu: 18.04 - Unit Tests" {
		t.Errorf("FetchJobEnv() label = %q", env["BUILDKITE_LABEL"])
	}

	body, err := client.FetchJobLog(ctx, job)
	if err != nil {
		t.Fatalf("FetchJobLog() error = %v", err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if string(data) != "1/1 Test #1: unit_test ... Passed 1.00 sec\r\n" {
		t.Errorf("FetchJobLog() = %q", data)
	}

	artifacts, err := client.FetchArtifacts(ctx, job)
	if err != nil {
		t.Fatalf("FetchArtifacts() error = %v", err)
	}
	if len(artifacts) != 1 || artifacts[0].Name() != "test-results.xml" {
		t.Fatalf("FetchArtifacts() = %+v", artifacts)
	}

	xml, err := client.DownloadArtifact(ctx, artifacts[0])
	if err != nil {
		t.Fatalf("DownloadArtifact() error = %v", err)
	}
	if string(xml) != "<Site/>" {
		t.Errorf("DownloadArtifact() = %q", xml)
	}
}

func TestClient_Errors(t *testing.T) {
	srv, client := newFakeBuildkite(t)
	ctx := context.Background()

	_, err := NewClient("wrong", WithBaseURL(srv.URL)).GetBuild(ctx, "EOSIO", "eosio", "7")
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("GetBuild() with bad token error = %v, want ErrAuthFailed", err)
	}
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Errorf("IsStatus(err, 401) = false, want true")
	}

	_, err = client.GetBuild(ctx, "EOSIO", "eosio", "8")
	if !errors.Is(err, ErrBuildNotFound) {
		t.Errorf("GetBuild() missing build error = %v, want ErrBuildNotFound", err)
	}

	body, err := client.FetchJobLog(ctx, Job{ID: "j-9", RawLogURL: srv.URL + "/log/empty"})
	if err != nil {
		t.Fatalf("FetchJobLog() error = %v", err)
	}
	defer body.Close()
	if _, err := io.ReadAll(body); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("reading empty log error = %v, want ErrEmptyBody", err)
	}

	var fe *FetchError
	if _, err := client.FetchJobEnv(ctx, Job{ID: "j-9"}); !errors.As(err, &fe) {
		t.Errorf("FetchJobEnv() without build URL error = %v, want *FetchError", err)
	}

	artifacts, err := client.FetchArtifacts(ctx, Job{ID: "j-9", ArtifactsURL: srv.URL + "/artifacts/missing"})
	if err != nil || len(artifacts) != 0 {
		t.Errorf("FetchArtifacts() on 404 = %v, %v; want empty, nil", artifacts, err)
	}
}
