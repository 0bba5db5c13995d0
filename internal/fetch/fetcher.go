package fetch

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
	netproxy "golang.org/x/net/proxy"

	"github.com/perfumedb/perfcrawl/internal/model"
)

// DefaultMaxBodySize limits how much of a response body is read.
// 5MB covers any realistic perfume page while bounding memory use.
const DefaultMaxBodySize = 5 * 1024 * 1024

// defaultRetryBackoff is the pause before the single retry when the
// server did not send a usable Retry-After.
const defaultRetryBackoff = 5 * time.Second

// Content is one successfully fetched page.
type Content struct {
	// URL is the request URL.
	URL string

	// StatusCode is the final HTTP status (always 2xx).
	StatusCode int

	// ContentType is the Content-Type header value.
	ContentType string

	// Body is the response body, truncated at the size limit.
	Body []byte
}

// IsHTML reports whether the response is an HTML document.
func (c *Content) IsHTML() bool {
	return strings.Contains(c.ContentType, "text/html")
}

// Hash returns the SHA3-256 hex digest of the body, recorded in the
// fetch history so repeated content is recognizable across runs.
func (c *Content) Hash() string {
	sum := sha3.Sum256(c.Body)
	return hex.EncodeToString(sum[:])
}

// Fetcher performs polite single-page GETs. It caches one http.Client
// per transport identity so connection pools survive across requests
// made under the same identity.
type Fetcher struct {
	timeout      time.Duration
	maxBodySize  int64
	retryBackoff time.Duration
	logger       *slog.Logger
	sleep        func(ctx context.Context, d time.Duration) error

	clients map[model.Identity]*http.Client
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxBodySize overrides the response body size limit.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// WithRetryBackoff overrides the pause before the single retry.
func WithRetryBackoff(d time.Duration) Option {
	return func(f *Fetcher) {
		f.retryBackoff = d
	}
}

// WithLogger sets the logger for retry events.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:      timeout,
		maxBodySize:  DefaultMaxBodySize,
		retryBackoff: defaultRetryBackoff,
		logger:       slog.Default(),
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
		clients: make(map[model.Identity]*http.Client),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// attemptState drives the bounded retry state machine. A fetch moves
// Idle -> Attempted -> (Succeeded | Retried) -> (Succeeded | Skipped);
// there is never more than one retry.
type attemptState int

const (
	stateIdle attemptState = iota
	stateAttempted
	stateRetried
)

// Fetch performs one GET through the given identity. On failure it
// retries exactly once for transient and server errors, honoring
// Retry-After when present, then returns the classified *Error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, identity model.Identity) (*Content, error) {
	state := stateIdle
	for {
		content, ferr := f.attempt(ctx, rawURL, identity)
		switch {
		case ferr == nil:
			return content, nil
		case state == stateIdle && ferr.Retryable():
			state = stateAttempted
			wait := f.retryDelay(ferr)
			f.logger.Debug("retrying after failure",
				"url", rawURL, "kind", ferr.Kind.String(), "wait", wait)
			if err := f.sleep(ctx, wait); err != nil {
				return nil, err
			}
			state = stateRetried
		default:
			// Permanent failure, or the one retry is spent: skip.
			return nil, ferr
		}
	}
}

// retryDelay returns how long to back off before the retry.
// A parseable Retry-After wins when it exceeds the default backoff.
func (f *Fetcher) retryDelay(ferr *Error) time.Duration {
	if ferr.RetryAfter > f.retryBackoff {
		return ferr.RetryAfter
	}
	return f.retryBackoff
}

// attempt performs a single GET and classifies any failure.
func (f *Fetcher) attempt(ctx context.Context, rawURL string, identity model.Identity) (*Content, *Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindMalformed, URL: rawURL, Err: err}
	}

	req.Header.Set("User-Agent", identity.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if identity.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", identity.AcceptLanguage)
	}

	client, cerr := f.clientFor(identity)
	if cerr != nil {
		return nil, &Error{Kind: KindMalformed, URL: rawURL, Err: cerr}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classify(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{
			Kind:       KindHTTPStatus,
			StatusCode: resp.StatusCode,
			URL:        rawURL,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, classify(rawURL, err)
	}

	return &Content{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// clientFor returns the cached http.Client for an identity, building it
// on first use. Empty proxy means a direct connection; http/https
// proxies go through Transport.Proxy, socks5 through a SOCKS5 dialer.
func (f *Fetcher) clientFor(identity model.Identity) (*http.Client, error) {
	if client, ok := f.clients[identity]; ok {
		return client, nil
	}

	transport := &http.Transport{
		MaxIdleConns:        4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if identity.Proxy != "" {
		proxyURL, err := url.Parse(identity.Proxy)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(proxyURL.Scheme) {
		case "socks5", "socks5h":
			dialer, err := socksDialer(proxyURL)
			if err != nil {
				return nil, err
			}
			transport.DialContext = dialer
		default:
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   f.timeout,
	}
	f.clients[identity] = client
	return client, nil
}

// socksDialer builds a DialContext function routing through a SOCKS5
// proxy, with credentials taken from the proxy URL when present.
func socksDialer(proxyURL *url.URL) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	var auth *netproxy.Auth
	if proxyURL.User != nil {
		password, _ := proxyURL.User.Password()
		auth = &netproxy.Auth{
			User:     proxyURL.User.Username(),
			Password: password,
		}
	}

	dialer, err := netproxy.SOCKS5("tcp", proxyURL.Host, auth, netproxy.Direct)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if contextDialer, ok := dialer.(netproxy.ContextDialer); ok {
			return contextDialer.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)
	}, nil
}

// parseRetryAfter parses a numeric Retry-After header value.
// HTTP-date values are ignored; zero means no usable hint.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
