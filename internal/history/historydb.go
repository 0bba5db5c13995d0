package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/perfumedb/perfcrawl/internal/model"
)

// DBFileName is the journal file created under the history directory.
const DBFileName = "perfcrawl.db"

// DB provides SQLite-based storage for fetch outcomes and run
// summaries.
//
// Design decision: one database file for all brands rather than a file
// per brand. Cross-brand queries ("what did I fetch this week") become
// trivial and the CSV files already partition the extracted data.
type DB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures DB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. Recommended; appends from
	// the crawl loop never block readers of the history command.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the journal at dbDir/DBFileName.
// If CreateIfNotExists is false and the file does not exist, an error
// is returned instead of creating an empty journal.
func Open(dbDir string, opts Options) (*DB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check history database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw refuses to create
	// new files, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite supports one writer; the crawl loop is the only one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &DB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *DB) Close() error {
	return hdb.db.Close()
}

// Path returns the location of the database file.
func (hdb *DB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *DB) createTables() error {
	schema := `
	-- Fetch records store the last observed outcome per URL
	CREATE TABLE IF NOT EXISTS fetches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		status_code INTEGER,
		outcome TEXT NOT NULL,
		content_hash TEXT,
		UNIQUE(url)
	);

	CREATE INDEX IF NOT EXISTS idx_fetches_timestamp ON fetches(timestamp);
	CREATE INDEX IF NOT EXISTS idx_fetches_outcome ON fetches(outcome);

	-- Run summaries, one row per completed crawl run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		brand TEXT NOT NULL,
		output_path TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		pages_saved INTEGER NOT NULL,
		pages_processed INTEGER NOT NULL,
		index_pages INTEGER NOT NULL,
		links_discovered INTEGER NOT NULL,
		skips TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_brand ON runs(brand);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// FetchRecord is the stored outcome of visiting one URL.
type FetchRecord struct {
	ID          int64
	URL         string
	Kind        string
	Timestamp   time.Time
	StatusCode  int
	Outcome     string
	ContentHash string
}

// The outcome values written for fetches that produced or skipped data.
const (
	OutcomeSaved      = "saved"
	OutcomeDiscovered = "discovered"
)

// RecordFetch upserts the outcome of one URL visit. The same URL
// fetched again in a later run overwrites the previous outcome.
func (hdb *DB) RecordFetch(ctx context.Context, record *FetchRecord) error {
	query := `
	INSERT INTO fetches (url, kind, status_code, outcome, content_hash)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		kind = excluded.kind,
		status_code = excluded.status_code,
		outcome = excluded.outcome,
		content_hash = excluded.content_hash,
		timestamp = CURRENT_TIMESTAMP
	`

	_, err := hdb.db.ExecContext(ctx, query,
		record.URL,
		record.Kind,
		record.StatusCode,
		record.Outcome,
		record.ContentHash,
	)
	if err != nil {
		return fmt.Errorf("failed to record fetch: %w", err)
	}
	return nil
}

// GetFetch retrieves the last recorded outcome for a URL.
// Returns nil without error when the URL was never visited.
func (hdb *DB) GetFetch(ctx context.Context, url string) (*FetchRecord, error) {
	query := `
	SELECT id, url, kind, timestamp, status_code, outcome, content_hash
	FROM fetches
	WHERE url = ?
	`

	var record FetchRecord
	var timestamp string
	var hash sql.NullString

	err := hdb.db.QueryRowContext(ctx, query, url).Scan(
		&record.ID,
		&record.URL,
		&record.Kind,
		&timestamp,
		&record.StatusCode,
		&record.Outcome,
		&hash,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fetch record: %w", err)
	}

	record.Timestamp = parseTimestamp(timestamp)
	record.ContentHash = hash.String
	return &record, nil
}

// RecentFetches returns the latest fetch records, newest first.
func (hdb *DB) RecentFetches(ctx context.Context, limit int) ([]FetchRecord, error) {
	query := `
	SELECT id, url, kind, timestamp, status_code, outcome, content_hash
	FROM fetches
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`

	rows, err := hdb.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list fetches: %w", err)
	}
	defer rows.Close()

	var results []FetchRecord
	for rows.Next() {
		var record FetchRecord
		var timestamp string
		var hash sql.NullString

		if err := rows.Scan(&record.ID, &record.URL, &record.Kind, &timestamp,
			&record.StatusCode, &record.Outcome, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan fetch record: %w", err)
		}
		record.Timestamp = parseTimestamp(timestamp)
		record.ContentHash = hash.String
		results = append(results, record)
	}
	return results, rows.Err()
}

// RecordRun stores a completed run summary. Skip counts are serialized
// as JSON in a single column.
func (hdb *DB) RecordRun(ctx context.Context, summary *model.RunSummary) error {
	skipsJSON, err := json.Marshal(summary.Skips)
	if err != nil {
		return fmt.Errorf("failed to serialize skip counts: %w", err)
	}

	query := `
	INSERT INTO runs (brand, output_path, started_at, finished_at,
		pages_saved, pages_processed, index_pages, links_discovered, skips)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = hdb.db.ExecContext(ctx, query,
		summary.Brand,
		summary.OutputPath,
		summary.StartedAt.UTC().Format(time.RFC3339),
		summary.FinishedAt.UTC().Format(time.RFC3339),
		summary.PagesSaved,
		summary.PagesProcessed,
		summary.IndexPagesFetched,
		summary.LinksDiscovered,
		string(skipsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RunRecord is a stored run summary with its database identity.
type RunRecord struct {
	ID int64
	model.RunSummary
}

// ListRuns returns stored run summaries, newest first. An empty brand
// lists runs across all brands.
func (hdb *DB) ListRuns(ctx context.Context, brand string, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, brand, output_path, started_at, finished_at,
		pages_saved, pages_processed, index_pages, links_discovered, skips
	FROM runs
	`
	args := make([]any, 0, 2)
	if brand != "" {
		query += " WHERE brand = ?"
		args = append(args, brand)
	}
	query += " ORDER BY started_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		var rec RunRecord
		var startedAt, finishedAt string
		var skipsJSON sql.NullString

		if err := rows.Scan(&rec.ID, &rec.Brand, &rec.OutputPath, &startedAt, &finishedAt,
			&rec.PagesSaved, &rec.PagesProcessed, &rec.IndexPagesFetched,
			&rec.LinksDiscovered, &skipsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}

		rec.StartedAt = parseTimestamp(startedAt)
		rec.FinishedAt = parseTimestamp(finishedAt)
		rec.Skips = make(map[model.SkipReason]int)
		if skipsJSON.Valid && skipsJSON.String != "" {
			if err := json.Unmarshal([]byte(skipsJSON.String), &rec.Skips); err != nil {
				rec.Skips = make(map[model.SkipReason]int)
			}
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats; SQLite returns different shapes depending on how the value
// was written. Unparseable input yields the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
