package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ValidationError is raised before any request is sent.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ClientError is a 4xx answer. It is never retried.
type ClientError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s: client error %d: %s", e.Op, e.StatusCode, e.Message)
}

// NotFound reports whether the backend does not know the entity.
func (e *ClientError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// ServerError is a 5xx answer, or a 2xx whose envelope reports a failure.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: server error %d: %s", e.Op, e.StatusCode, e.Message)
}

// SchemaError means the response broke the documented contract.
type SchemaError struct {
	Op      string
	Details []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: unexpected response shape: %s", e.Op, strings.Join(e.Details, "; "))
}

// NetworkError wraps transport failures and timeouts.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AmbiguousOutcomeError is returned when a cancel response carries neither a
// stable outcome nor a recognised legacy message.
type AmbiguousOutcomeError struct {
	Message string
}

func (e *AmbiguousOutcomeError) Error() string {
	return fmt.Sprintf("cancel order: unrecognised outcome: %q", e.Message)
}

// IsRetryable reports whether err is transient: server and network errors.
func IsRetryable(err error) bool {
	var serverErr *ServerError
	var netErr *NetworkError
	return errors.As(err, &serverErr) || errors.As(err, &netErr)
}

// IsOffline reports whether err was caused by lost connectivity rather than by
// an answer from the backend. Caller cancellation is not offline.
func IsOffline(err error) bool {
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		return false
	}
	return !errors.Is(netErr.Err, context.Canceled)
}

// IsNotFound reports whether err is a 404 client error.
func IsNotFound(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.NotFound()
}
