// Package crawler drives the crawl: it owns the frontier queue, walks
// each URL through the robots gate, dedup set, politeness scheduler,
// fetcher, and extractor, and appends accepted records to the store.
//
// The controller runs a single sequential loop. One fetch is in flight
// at a time; the scheduler's wait is the only suspension point between
// fetches and cancellation is observed once per iteration, never
// mid-fetch. All crawl state (frontier, dedup set, counters) is owned
// by the loop, so no locking is needed.
//
// Skips are routine and never fail the run. Only two conditions abort:
// the output store becoming unwritable, and context cancellation.
package crawler
