package buildkite

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrBuildNotFound = errors.New("build not found")
	ErrRateLimited   = errors.New("rate limited")
	ErrEmptyBody     = errors.New("empty response body")
	ErrInvalidURL    = errors.New("invalid build URL")
)

// FetchError is returned for every failed Buildkite request.
type FetchError struct {
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.URL != "" {
		b.WriteString(" " + e.URL)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is a FetchError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Status == status
}

func statusError(status int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAuthFailed, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrBuildNotFound, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, detail)
	}
	return fmt.Errorf("API request failed with status %d: %s", status, detail)
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts API errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrInvalidURL):
		return &UserError{
			Message: "Invalid build URL",
			Hint:    "Expected https://buildkite.com/<org>/<pipeline>/builds/<number>",
			Err:     err,
		}
	case errors.Is(err, ErrAuthFailed):
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that BUILDKITE_API_TOKEN is valid and has read_builds, read_build_logs and read_artifacts scopes.",
			Err:     err,
		}
	case errors.Is(err, ErrBuildNotFound):
		return &UserError{
			Message: "Build not found",
			Hint:    "Check the pipeline slug, the build number and BUILDKITE_ORGANIZATION_SLUG.",
			Err:     err,
		}
	case errors.Is(err, ErrRateLimited):
		return &UserError{
			Message: "Rate limited by Buildkite",
			Hint:    "Lower the concurrency setting or retry later.",
			Err:     err,
		}
	}

	return err
}
