package politeness

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/perfumedb/perfcrawl/internal/model"
)

// defaultJitterMax is the upper bound of the uniform jitter added to
// every per-request delay. Jitter is drawn independently per call so
// request timing never shows a detectable period.
const defaultJitterMax = 1500 * time.Millisecond

// cooldownJitterRatio is the +/- fraction applied to the session break
// so cooldowns do not recur at exact intervals.
const cooldownJitterRatio = 0.15

// SleepFunc suspends the calling flow for d or until ctx is done.
// Injectable so tests can observe requested durations without sleeping.
type SleepFunc func(ctx context.Context, d time.Duration) error

// realSleep is the production SleepFunc.
func realSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Scheduler decides when the next fetch may occur and which transport
// identity it uses. Counters are monotonic within a run and never
// persisted across runs.
type Scheduler struct {
	baseDelay    time.Duration
	jitterMax    time.Duration
	sessionSize  int
	sessionBreak time.Duration
	rotateEvery  int

	identities  []model.Identity
	identityIdx int

	pagesProcessed int
	savedInSession int
	sinceRotation  int

	sleep  SleepFunc
	rand   *rand.Rand
	logger *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithJitterMax overrides the jitter upper bound.
func WithJitterMax(d time.Duration) Option {
	return func(s *Scheduler) {
		s.jitterMax = d
	}
}

// WithSession configures the cooldown cycle: after size saved pages,
// sleep for breakDur. size <= 0 disables cooldowns.
func WithSession(size int, breakDur time.Duration) Option {
	return func(s *Scheduler) {
		s.sessionSize = size
		s.sessionBreak = breakDur
	}
}

// WithRotateEvery rotates the identity after n processed pages.
// 0 disables rotation within a session.
func WithRotateEvery(n int) Option {
	return func(s *Scheduler) {
		s.rotateEvery = n
	}
}

// WithSleep injects the sleep implementation. Tests use this to record
// requested durations instead of actually sleeping.
func WithSleep(fn SleepFunc) Option {
	return func(s *Scheduler) {
		s.sleep = fn
	}
}

// WithRand injects the random source used for jitter.
func WithRand(r *rand.Rand) Option {
	return func(s *Scheduler) {
		s.rand = r
	}
}

// WithLogger sets the logger for rotation and cooldown events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a scheduler with the given base delay and
// identity pool. The pool must not be empty; BuildIdentityPool always
// returns at least one identity.
func NewScheduler(baseDelay time.Duration, identities []model.Identity, opts ...Option) *Scheduler {
	s := &Scheduler{
		baseDelay:  baseDelay,
		jitterMax:  defaultJitterMax,
		identities: identities,
		sleep:      realSleep,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.identities) == 0 {
		s.identities = BuildIdentityPool(nil, "")
	}
	return s
}

// Identity returns the transport identity for the next fetch.
func (s *Scheduler) Identity() model.Identity {
	return s.identities[s.identityIdx%len(s.identities)]
}

// Wait blocks until the next fetch may occur. The effective delay is
// max(baseDelay, minDelay) plus uniform jitter, where minDelay carries
// the robots crawl-delay hint for the origin. Jitter only ever adds.
func (s *Scheduler) Wait(ctx context.Context, minDelay time.Duration) error {
	delay := s.baseDelay
	if minDelay > delay {
		delay = minDelay
	}
	return s.sleep(ctx, delay+s.jitter(s.jitterMax))
}

// RecordPageProcessed counts one perfume page against the rotation
// cycle and rotates the identity when the configured interval is hit.
func (s *Scheduler) RecordPageProcessed() {
	s.pagesProcessed++
	s.sinceRotation++
	if s.rotateEvery > 0 && s.sinceRotation >= s.rotateEvery {
		s.sinceRotation = 0
		s.advanceIdentity("rotation interval reached")
	}
}

// RecordPageSaved counts one successfully persisted page and reports
// whether a session cooldown is now due. The controller decides whether
// to actually cool down (it skips the break when no work remains).
func (s *Scheduler) RecordPageSaved() (cooldownDue bool) {
	if s.sessionSize <= 0 {
		return false
	}
	s.savedInSession++
	return s.savedInSession >= s.sessionSize
}

// Cooldown sleeps for the session break plus up to 15% jitter, resets
// the session counter, and rotates to a fresh identity for the next
// session. The configured break is a hard floor; jitter only extends
// it, matching the base-delay rule. Cooldown is independent of the
// rotation cycle.
func (s *Scheduler) Cooldown(ctx context.Context) error {
	jitterSpan := time.Duration(float64(s.sessionBreak) * cooldownJitterRatio)
	d := s.sessionBreak + s.jitter(jitterSpan)
	s.logger.Info("session complete, cooling down",
		"saved", s.savedInSession, "break", d.Round(time.Second))

	if err := s.sleep(ctx, d); err != nil {
		return err
	}
	s.savedInSession = 0
	s.advanceIdentity("new session")
	return nil
}

// PagesProcessed returns the total pages counted so far this run.
func (s *Scheduler) PagesProcessed() int {
	return s.pagesProcessed
}

// advanceIdentity moves to the next identity in the pool, cycling with
// wraparound.
func (s *Scheduler) advanceIdentity(why string) {
	if len(s.identities) < 2 {
		return
	}
	s.identityIdx = (s.identityIdx + 1) % len(s.identities)
	next := s.Identity()
	s.logger.Info("switching transport identity",
		"reason", why,
		"proxy", redactProxy(next.Proxy),
		"userAgent", next.UserAgent,
		"acceptLanguage", next.AcceptLanguage,
	)
}

// redactProxy hides proxy credentials in log output.
func redactProxy(proxyURL string) string {
	if proxyURL == "" {
		return "<none>"
	}
	u, err := url.Parse(proxyURL)
	if err != nil || u.User == nil {
		return proxyURL
	}
	u.User = url.User("***")
	return u.String()
}

// jitter returns a uniform duration in [0, max).
func (s *Scheduler) jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	if s.rand != nil {
		return time.Duration(s.rand.Int64N(int64(max)))
	}
	return time.Duration(rand.Int64N(int64(max)))
}

// BuildIdentityPool builds the deterministic identity cycle from the
// configured proxies and an optional pinned User-Agent. Entry i pairs
// proxy i (mod pool) with User-Agent i and Accept-Language i (mod their
// pools), so rotation order is reproducible across runs.
func BuildIdentityPool(proxies []string, pinnedUserAgent string) []model.Identity {
	userAgents := model.DefaultUserAgents
	if pinnedUserAgent != "" {
		userAgents = []string{pinnedUserAgent}
	}
	langs := model.DefaultAcceptLanguages

	n := max(len(proxies), len(userAgents), len(langs))
	if n == 0 {
		n = 1
	}

	pool := make([]model.Identity, 0, n)
	for i := range n {
		id := model.Identity{
			UserAgent:      userAgents[i%len(userAgents)],
			AcceptLanguage: langs[i%len(langs)],
		}
		if len(proxies) > 0 {
			id.Proxy = proxies[i%len(proxies)]
		}
		pool = append(pool, id)
	}
	return pool
}
