package model

import "time"

// SkipReason classifies why a URL was passed over without producing a
// CSV row. Skips are routine: they are counted and reported at run end
// but never fail the run.
type SkipReason string

// Skip reasons, in the order they are checked during a crawl iteration.
const (
	// SkipRobots means robots.txt disallows the path; no fetch was attempted.
	SkipRobots SkipReason = "robots_disallowed"

	// SkipDuplicate means the URL is already present in the output store.
	SkipDuplicate SkipReason = "already_saved"

	// SkipTransient means the fetch failed with a timeout or network
	// error and the retry budget was exhausted.
	SkipTransient SkipReason = "transient_error"

	// SkipHTTP means the server answered with a non-retryable 4xx status.
	SkipHTTP SkipReason = "http_error"

	// SkipServer means the server answered 5xx and the retry budget was
	// exhausted.
	SkipServer SkipReason = "server_error"

	// SkipNonHTML means the response was not an HTML document.
	SkipNonHTML SkipReason = "non_html"

	// SkipExtract means the page fetched but the fields were unparseable.
	SkipExtract SkipReason = "extraction_failed"

	// SkipBrandMismatch means the extracted brand does not match the
	// configured brand filter. Outbound links are still followed.
	SkipBrandMismatch SkipReason = "brand_mismatch"
)

// RunSummary accumulates what happened during one crawl run.
// The controller owns the only instance and mutates it from its single
// loop; report writers render it after the run completes.
type RunSummary struct {
	// Brand is the configured brand filter, empty for unfiltered runs.
	Brand string

	// OutputPath is the CSV destination of this run.
	OutputPath string

	// PagesSaved is the number of rows appended to the CSV.
	PagesSaved int

	// PagesProcessed is the number of item pages extracted, saved plus
	// brand-filtered. Only PagesSaved counts against the page budget.
	PagesProcessed int

	// IndexPagesFetched is the number of listing pages fetched for link
	// discovery only.
	IndexPagesFetched int

	// LinksDiscovered is the number of unique URLs enqueued.
	LinksDiscovered int

	// Skips counts passed-over URLs by reason.
	Skips map[SkipReason]int

	// StartedAt and FinishedAt bracket the run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRunSummary returns a summary with the skip map initialized.
func NewRunSummary(brand, outputPath string) *RunSummary {
	return &RunSummary{
		Brand:      brand,
		OutputPath: outputPath,
		Skips:      make(map[SkipReason]int),
		StartedAt:  time.Now(),
	}
}

// AddSkip records one skipped URL under the given reason.
func (s *RunSummary) AddSkip(reason SkipReason) {
	s.Skips[reason]++
}

// TotalSkips returns the number of skipped URLs across all reasons.
func (s *RunSummary) TotalSkips() int {
	total := 0
	for _, n := range s.Skips {
		total += n
	}
	return total
}

// Elapsed returns the wall-clock duration of the run.
// It is valid only after FinishedAt is set.
func (s *RunSummary) Elapsed() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
