// Package store persists extracted records to an append-only CSV file
// and rebuilds the duplicate set from it on startup. A row, once
// written, is never updated or removed; re-running a crawl against an
// existing file only adds URLs the file does not already hold.
package store
