package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/perfumedb/perfcrawl/internal/model"
)

// ErrShortRow is logged (never returned) when an existing CSV row has
// too few columns to carry a URL. Such rows are skipped during the
// dedup bootstrap and left untouched on disk.
var ErrShortRow = errors.New("csv row too short to carry a url")

// urlColumn is the position of the identity column in model.CSVHeader.
const urlColumn = 4

// CSVStore is the append-only record sink. Each Append opens the file,
// writes one row, flushes, and closes, so a crash between pages loses
// at most the row being written.
type CSVStore struct {
	path   string
	logger *slog.Logger
}

// NewCSVStore prepares the output file at path: parent directories are
// created and the header row is written when the file is absent or
// empty. An existing non-empty file is left exactly as it is.
func NewCSVStore(path string, logger *slog.Logger) (*CSVStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &CSVStore{path: path, logger: logger}
	if err := s.ensureHeader(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the backing CSV file.
func (s *CSVStore) Path() string {
	return s.path
}

func (s *CSVStore) ensureHeader() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	info, err := os.Stat(s.path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat output file: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close() //nolint:errcheck // write error surfaces via Flush below

	w := csv.NewWriter(f)
	if err := w.Write(model.CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	return f.Close()
}

// LoadExistingURLs reads the backing file and returns the set of URLs
// already persisted. Rows that do not parse, or that are too short to
// carry a URL, are skipped with a warning rather than aborting the run;
// the file itself is never modified.
func (s *CSVStore) LoadExistingURLs() (*DedupSet, error) {
	set := NewDedupSet()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return set, nil
		}
		return nil, fmt.Errorf("open output file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	first := true
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Warn("skipping unreadable csv row", "path", s.path, "error", err)
			continue
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == model.CSVHeader[0] {
				continue
			}
		}
		if len(row) <= urlColumn {
			s.logger.Warn("skipping short csv row", "path", s.path, "columns", len(row), "error", ErrShortRow)
			continue
		}
		set.Add(row[urlColumn])
	}
	return set, nil
}

// Append writes one record as a new row. The file is opened in append
// mode and closed again so partial progress survives interruption.
func (s *CSVStore) Append(record *model.Record) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("open output file for append: %w", err)
	}
	defer f.Close() //nolint:errcheck // write error surfaces via Flush below

	w := csv.NewWriter(f)
	if err := w.Write(record.Row()); err != nil {
		return fmt.Errorf("append csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("append csv row: %w", err)
	}
	return f.Close()
}
