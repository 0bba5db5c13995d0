package fetch

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrorKind classifies a fetch failure. The crawl loop maps kinds to
// skip reasons; none of them abort the run.
type ErrorKind int

const (
	// KindMalformed means the request could not even be built.
	KindMalformed ErrorKind = iota

	// KindTimeout means the request exceeded its deadline.
	KindTimeout

	// KindNetwork means a connection-level failure (refused, reset, DNS).
	KindNetwork

	// KindHTTPStatus means the server answered with a non-2xx status.
	KindHTTPStatus
)

// String returns a short name for the kind, used in logs.
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindHTTPStatus:
		return "http_status"
	default:
		return "malformed"
	}
}

// Error is a classified fetch failure.
type Error struct {
	// Kind is the failure classification.
	Kind ErrorKind

	// StatusCode is set for KindHTTPStatus.
	StatusCode int

	// URL is the request URL.
	URL string

	// RetryAfter is the parsed Retry-After hint for KindHTTPStatus,
	// zero when the server sent none.
	RetryAfter time.Duration

	// Err is the underlying error, nil for pure status failures.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is a timeout or network error.
func (e *Error) Transient() bool {
	return e.Kind == KindTimeout || e.Kind == KindNetwork
}

// Retryable reports whether one retry is warranted: transient failures,
// server errors, and explicit rate limiting. Other HTTP statuses are
// permanent and skipped immediately.
func (e *Error) Retryable() bool {
	if e.Transient() {
		return true
	}
	if e.Kind != KindHTTPStatus {
		return false
	}
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// classify wraps a transport error from http.Client.Do into an *Error.
func classify(rawURL string, err error) *Error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	return &Error{Kind: KindNetwork, URL: rawURL, Err: err}
}

// AsError extracts an *Error from err, or nil.
func AsError(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}
