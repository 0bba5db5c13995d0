package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/perfumedb/perfcrawl/internal/classify"
	"github.com/perfumedb/perfcrawl/internal/extract"
	"github.com/perfumedb/perfcrawl/internal/fetch"
	"github.com/perfumedb/perfcrawl/internal/history"
	"github.com/perfumedb/perfcrawl/internal/model"
	"github.com/perfumedb/perfcrawl/internal/store"
)

// State is the controller's lifecycle phase.
type State int

// Controller states, in order of normal progression.
const (
	// StateSeeding means the frontier is being filled from seeds.
	StateSeeding State = iota

	// StateRunning means the crawl loop is processing the frontier.
	StateRunning

	// StateCompleted means the frontier drained or the page budget was
	// reached. Normal termination.
	StateCompleted

	// StateAborted means an unrecoverable condition stopped the run.
	// Partial output is preserved as-is.
	StateAborted
)

// String returns a short name for the state, used in logs.
func (s State) String() string {
	switch s {
	case StateSeeding:
		return "seeding"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "aborted"
	}
}

// Fetcher retrieves one URL through the given transport identity.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, identity model.Identity) (*fetch.Content, error)
}

// RobotsGate answers whether a URL may be fetched and supplies the
// origin's crawl-delay hint.
type RobotsGate interface {
	Allowed(ctx context.Context, target string) bool
	CrawlDelay(ctx context.Context, target string) time.Duration
}

// Scheduler owns request timing and the transport identity rotation.
type Scheduler interface {
	Identity() model.Identity
	Wait(ctx context.Context, minDelay time.Duration) error
	RecordPageProcessed()
	RecordPageSaved() (cooldownDue bool)
	Cooldown(ctx context.Context) error
}

// RecordSink receives accepted records. Append errors are fatal to the
// run: an unwritable output store makes further crawling pointless.
type RecordSink interface {
	Append(record *model.Record) error
}

// Journal receives per-URL fetch outcomes. Journal failures are logged
// and ignored; the journal is an operational aid, not the record store.
type Journal interface {
	RecordFetch(ctx context.Context, record *history.FetchRecord) error
}

// Controller runs one crawl from seeding to completion.
// It is single-use: construct, Run once, read the summary.
type Controller struct {
	fetcher   Fetcher
	gate      RobotsGate
	scheduler Scheduler
	sink      RecordSink
	dedup     *store.DedupSet

	journal Journal
	logger  *slog.Logger
	now     func() time.Time

	seeds      []string
	brand      string
	maxPages   int
	outputPath string

	// Brand-mode link filtering state, derived once from brand.
	fold          cases.Caser
	brandFolded   string
	itemNeedle    string
	brandIndexURL string

	state    State
	frontier *frontier
	summary  *model.RunSummary
}

// Option configures a Controller.
type Option func(*Controller)

// WithSeeds sets explicit start URLs.
func WithSeeds(seeds []string) Option {
	return func(c *Controller) {
		c.seeds = seeds
	}
}

// WithBrand enables brand mode: records whose extracted brand does not
// case-fold-match are discarded, and with no explicit seeds the crawl
// starts from the brand's directory page.
func WithBrand(brand string) Option {
	return func(c *Controller) {
		c.brand = strings.TrimSpace(brand)
	}
}

// WithMaxPages bounds saved item pages. <= 0 means unbounded.
func WithMaxPages(n int) Option {
	return func(c *Controller) {
		c.maxPages = n
	}
}

// WithOutputPath records the CSV destination in the run summary.
func WithOutputPath(path string) Option {
	return func(c *Controller) {
		c.outputPath = path
	}
}

// WithJournal attaches the fetch-history journal.
func WithJournal(j Journal) Option {
	return func(c *Controller) {
		c.journal = j
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithNow injects the clock used for record timestamps.
func WithNow(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController wires the crawl collaborators together. The dedup set
// must already be bootstrapped from the output store.
func NewController(fetcher Fetcher, gate RobotsGate, scheduler Scheduler, sink RecordSink, dedup *store.DedupSet, opts ...Option) *Controller {
	c := &Controller{
		fetcher:   fetcher,
		gate:      gate,
		scheduler: scheduler,
		sink:      sink,
		dedup:     dedup,
		logger:    slog.Default(),
		now:       time.Now,
		fold:      cases.Fold(),
		frontier:  newFrontier(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.brand != "" {
		c.brandFolded = c.fold.String(c.brand)
		if slug := classify.PerfumeSlug(c.brand); slug != "" {
			c.itemNeedle = "/perfume/" + strings.ToLower(slug) + "/"
		}
		c.brandIndexURL = classify.Classify(classify.IndexURLForBrand(c.brand), nil).Canonical
	}

	return c
}

// State returns the controller's current lifecycle phase.
func (c *Controller) State() State {
	return c.state
}

// Run executes the crawl until the frontier drains, the page budget is
// reached, the context is canceled, or the output store fails. The
// returned summary is valid in every case, including errors.
func (c *Controller) Run(ctx context.Context) (*model.RunSummary, error) {
	c.summary = model.NewRunSummary(c.brand, c.outputPath)
	defer func() {
		c.summary.FinishedAt = c.now()
	}()

	c.state = StateSeeding
	c.seed()
	c.state = StateRunning

	for c.frontier.len() > 0 && !c.budgetExhausted() {
		// Cancellation is observed here, once per iteration.
		if err := ctx.Err(); err != nil {
			c.state = StateAborted
			return c.summary, err
		}

		if err := c.step(ctx, c.frontier.pop()); err != nil {
			c.state = StateAborted
			return c.summary, err
		}
	}

	c.state = StateCompleted
	c.logger.Info("crawl completed",
		"saved", c.summary.PagesSaved,
		"processed", c.summary.PagesProcessed,
		"skipped", c.summary.TotalSkips())
	return c.summary, nil
}

// seed fills the frontier from the explicit seeds, or from the brand's
// directory page when only a brand was given. Unusable seeds are logged
// and dropped; they never fail the run.
func (c *Controller) seed() {
	if len(c.seeds) == 0 && c.brandIndexURL != "" {
		c.enqueue(c.brandIndexURL, classify.KindIndex, false)
		return
	}

	for _, seed := range c.seeds {
		result := classify.Classify(seed, nil)
		switch result.Kind {
		case classify.KindItem, classify.KindIndex:
			// Explicit seeds bypass the brand link prefilter; the brand
			// filter still applies to whatever they extract.
			c.enqueue(result.Canonical, result.Kind, false)
		default:
			c.logger.Warn("dropping unusable seed", "url", seed, "kind", result.Kind.String())
		}
	}
}

// step processes one frontier entry. A non-nil error aborts the run.
func (c *Controller) step(ctx context.Context, e entry) error {
	if !c.gate.Allowed(ctx, e.url) {
		c.skip(ctx, e, 0, model.SkipRobots)
		return nil
	}

	if err := c.scheduler.Wait(ctx, c.gate.CrawlDelay(ctx, e.url)); err != nil {
		return err
	}

	content, err := c.fetcher.Fetch(ctx, e.url, c.scheduler.Identity())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.skipFetch(ctx, e, err)
		return nil
	}
	if !content.IsHTML() {
		c.skip(ctx, e, content.StatusCode, model.SkipNonHTML)
		return nil
	}

	// Both page kinds feed the frontier.
	c.enqueueLinks(e.url, content.Body)

	if e.kind == classify.KindIndex {
		c.summary.IndexPagesFetched++
		c.journalFetch(ctx, e, content.StatusCode, history.OutcomeDiscovered, content.Hash())
		return nil
	}

	record, err := extract.Extract(e.url, content.Body)
	if err != nil {
		c.logger.Debug("extraction failed", "url", e.url, "error", err)
		c.skip(ctx, e, content.StatusCode, model.SkipExtract)
		return nil
	}
	record.CrawledAt = c.now()

	c.summary.PagesProcessed++
	c.scheduler.RecordPageProcessed()

	if !c.accept(record) {
		c.skip(ctx, e, content.StatusCode, model.SkipBrandMismatch)
		return nil
	}

	if err := c.sink.Append(record); err != nil {
		return fmt.Errorf("persist record for %s: %w", e.url, err)
	}
	c.dedup.Add(record.URL)
	c.summary.PagesSaved++
	c.journalFetch(ctx, e, content.StatusCode, history.OutcomeSaved, content.Hash())
	c.logger.Info("saved", "brand", record.Brand, "name", record.Name, "url", record.URL)

	if c.scheduler.RecordPageSaved() && c.hasWork() {
		// Cooldown is pointless when the run is about to end anyway.
		if err := c.scheduler.Cooldown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// accept is the brand filter predicate: always true without a brand,
// case-folded equality with one.
func (c *Controller) accept(record *model.Record) bool {
	if c.brandFolded == "" {
		return true
	}
	return c.fold.String(record.Brand) == c.brandFolded
}

// enqueueLinks classifies every link discovered on a page and enqueues
// the item and index URLs that pass the dedup and brand filters.
func (c *Controller) enqueueLinks(pageURL string, body []byte) {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}
	for _, link := range extract.DiscoverLinks(pageURL, body) {
		result := classify.Classify(link, base)
		switch result.Kind {
		case classify.KindItem, classify.KindIndex:
			c.enqueue(result.Canonical, result.Kind, true)
		}
	}
}

// enqueue adds a canonical URL to the frontier unless it was already
// considered this run, already persisted, or (for discovered links in
// brand mode) outside the brand's slice of the site.
func (c *Controller) enqueue(canonical string, kind classify.Kind, brandFiltered bool) {
	if !c.frontier.observe(canonical) {
		return
	}
	if brandFiltered && !c.brandWants(canonical, kind) {
		return
	}
	if kind == classify.KindItem && c.dedup.Contains(canonical) {
		c.summary.AddSkip(model.SkipDuplicate)
		c.logger.Debug("skipping", "url", canonical, "reason", model.SkipDuplicate)
		return
	}
	c.frontier.push(canonical, kind)
	c.summary.LinksDiscovered++
}

// brandWants reports whether a URL belongs to the configured brand's
// slice of the site. Without a brand filter every item and index URL
// qualifies; with one, item paths must carry the brand's slug and the
// only index followed is the brand's own directory page.
func (c *Controller) brandWants(canonical string, kind classify.Kind) bool {
	if c.brandFolded == "" {
		return true
	}
	if kind == classify.KindIndex {
		return canonical == c.brandIndexURL
	}
	if c.itemNeedle == "" {
		return true
	}
	u, err := url.Parse(canonical)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(u.Path), c.itemNeedle)
}

// skipFetch maps a fetch error onto a skip reason.
func (c *Controller) skipFetch(ctx context.Context, e entry, err error) {
	reason := model.SkipTransient
	status := 0
	if ferr := fetch.AsError(err); ferr != nil {
		status = ferr.StatusCode
		switch {
		case ferr.Kind == fetch.KindHTTPStatus && ferr.StatusCode >= 500:
			reason = model.SkipServer
		case ferr.Kind == fetch.KindHTTPStatus || ferr.Kind == fetch.KindMalformed:
			reason = model.SkipHTTP
		}
	}
	c.logger.Warn("fetch failed", "url", e.url, "reason", reason, "error", err)
	c.skip(ctx, e, status, reason)
}

// skip counts one passed-over URL and journals the outcome.
func (c *Controller) skip(ctx context.Context, e entry, status int, reason model.SkipReason) {
	c.summary.AddSkip(reason)
	c.journalFetch(ctx, e, status, string(reason), "")
}

// journalFetch records the outcome of one URL visit in the history DB.
func (c *Controller) journalFetch(ctx context.Context, e entry, status int, outcome, hash string) {
	if c.journal == nil {
		return
	}
	record := &history.FetchRecord{
		URL:         e.url,
		Kind:        e.kind.String(),
		StatusCode:  status,
		Outcome:     outcome,
		ContentHash: hash,
	}
	if err := c.journal.RecordFetch(ctx, record); err != nil {
		c.logger.Warn("history journal write failed", "url", e.url, "error", err)
	}
}

// budgetExhausted reports whether the run has saved its page budget.
// Only persisted rows consume budget: a brand-mismatched page is a
// counted skip, not progress toward the cap.
func (c *Controller) budgetExhausted() bool {
	return c.maxPages > 0 && c.summary.PagesSaved >= c.maxPages
}

func (c *Controller) hasWork() bool {
	return c.frontier.len() > 0 && !c.budgetExhausted()
}
