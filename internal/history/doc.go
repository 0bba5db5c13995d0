// Package history persists fetch outcomes and run summaries to a local
// SQLite database. The database is an operational journal, not the
// record store: the CSV file remains the source of truth for extracted
// data, and a crawl proceeds normally when the journal is unavailable.
package history
