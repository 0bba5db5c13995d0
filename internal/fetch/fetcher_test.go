package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/perfumedb/perfcrawl/internal/model"
)

// noSleep makes retries instantaneous in tests.
func noSleep(f *Fetcher) {
	f.sleep = func(context.Context, time.Duration) error { return nil }
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testIdentity() model.Identity {
	return model.Identity{
		UserAgent:      "perfcrawl-test/1.0",
		AcceptLanguage: "en-US,en;q=0.9",
	}
}

// TestFetchSuccess tests a plain successful GET.
func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "perfcrawl-test/1.0" {
			t.Errorf("unexpected User-Agent %q", ua)
		}
		if al := r.Header.Get("Accept-Language"); al != "en-US,en;q=0.9" {
			t.Errorf("unexpected Accept-Language %q", al)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<html><body>ok</body></html>")
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, WithLogger(testLogger()))
	noSleep(f)

	content, err := f.Fetch(context.Background(), server.URL, testIdentity())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if !content.IsHTML() {
		t.Error("expected HTML content type")
	}
	if len(content.Body) == 0 {
		t.Error("expected non-empty body")
	}
	if content.Hash() == "" {
		t.Error("expected content hash")
	}
}

// TestFetchRetriesTransient tests that a transient failure is retried
// exactly once and can succeed on the retry.
func TestFetchRetriesTransient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Drop the connection to simulate a network failure.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("server does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack failed: %v", err)
			}
			conn.Close()
			return
		}
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html>recovered</html>")
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, WithLogger(testLogger()))
	noSleep(f)

	content, err := f.Fetch(context.Background(), server.URL, testIdentity())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if content.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", content.StatusCode)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

// TestFetchNoRetryOn4xx tests that client errors are permanent.
func TestFetchNoRetryOn4xx(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, WithLogger(testLogger()))
	noSleep(f)

	_, err := f.Fetch(context.Background(), server.URL, testIdentity())
	ferr := AsError(err)
	if ferr == nil {
		t.Fatalf("expected *Error, got %v", err)
	}
	if ferr.Kind != KindHTTPStatus || ferr.StatusCode != http.StatusNotFound {
		t.Errorf("unexpected classification %s/%d", ferr.Kind, ferr.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 attempt for 4xx, got %d", got)
	}
}

// TestFetch5xxRetriedOnce tests that server errors get exactly one
// retry before being skipped.
func TestFetch5xxRetriedOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, WithLogger(testLogger()))
	noSleep(f)

	_, err := f.Fetch(context.Background(), server.URL, testIdentity())
	ferr := AsError(err)
	if ferr == nil || ferr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 error, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 attempts for 5xx, got %d", got)
	}
}

// TestFetchHonorsRetryAfter tests that a numeric Retry-After header
// extends the retry backoff.
func TestFetchHonorsRetryAfter(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html>ok</html>")
	}))
	defer server.Close()

	var slept []time.Duration
	f := NewFetcher(5*time.Second, WithLogger(testLogger()))
	f.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	if _, err := f.Fetch(context.Background(), server.URL, testIdentity()); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(slept) != 1 {
		t.Fatalf("expected 1 backoff sleep, got %d", len(slept))
	}
	if slept[0] != 30*time.Second {
		t.Errorf("backoff = %s, want the 30s Retry-After", slept[0])
	}
}

// TestFetchTimeout tests timeout classification.
func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	f := NewFetcher(50*time.Millisecond, WithLogger(testLogger()))
	noSleep(f)

	_, err := f.Fetch(context.Background(), server.URL, testIdentity())
	ferr := AsError(err)
	if ferr == nil {
		t.Fatalf("expected *Error, got %v", err)
	}
	if !ferr.Transient() {
		t.Errorf("expected transient classification, got %s", ferr.Kind)
	}
}

// TestFetchBodySizeLimit tests response truncation.
func TestFetchBodySizeLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		for range 1000 {
			io.WriteString(w, "0123456789")
		}
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, WithMaxBodySize(100), WithLogger(testLogger()))
	noSleep(f)

	content, err := f.Fetch(context.Background(), server.URL, testIdentity())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(content.Body) != 100 {
		t.Errorf("body length = %d, want truncation at 100", len(content.Body))
	}
}

// TestFetchMalformedURL tests request-build failure classification.
func TestFetchMalformedURL(t *testing.T) {
	t.Parallel()

	f := NewFetcher(time.Second, WithLogger(testLogger()))
	noSleep(f)

	_, err := f.Fetch(context.Background(), "http://[::1]:namedport", testIdentity())
	ferr := AsError(err)
	if ferr == nil || ferr.Kind != KindMalformed {
		t.Fatalf("expected malformed classification, got %v", err)
	}
}

// TestErrorRetryable tests the retry policy table.
func TestErrorRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  Error
		want bool
	}{
		{"timeout", Error{Kind: KindTimeout}, true},
		{"network", Error{Kind: KindNetwork}, true},
		{"500", Error{Kind: KindHTTPStatus, StatusCode: 500}, true},
		{"503", Error{Kind: KindHTTPStatus, StatusCode: 503}, true},
		{"429", Error{Kind: KindHTTPStatus, StatusCode: 429}, true},
		{"404", Error{Kind: KindHTTPStatus, StatusCode: 404}, false},
		{"403", Error{Kind: KindHTTPStatus, StatusCode: 403}, false},
		{"malformed", Error{Kind: KindMalformed}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Retryable(); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
