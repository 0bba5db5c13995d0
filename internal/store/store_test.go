package store

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/perfumedb/perfcrawl/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewCSVStore(t *testing.T) {
	t.Parallel()

	t.Run("writes the header into a fresh file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out", "perfumes.csv")
		if _, err := NewCSVStore(path, testLogger()); err != nil {
			t.Fatalf("NewCSVStore() error = %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		want := strings.Join(model.CSVHeader, ",") + "\n"
		if string(data) != want {
			t.Errorf("file = %q, want %q", data, want)
		}
	})

	t.Run("leaves an existing file untouched", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "perfumes.csv")
		existing := "brand,name,rating,votes,url,last_crawled\nDior,Sauvage,4.3,100,https://www.fragrantica.com/perfume/Dior/Sauvage-31861.html,2026-01-01T00:00:00Z\n"
		if err := os.WriteFile(path, []byte(existing), 0640); err != nil {
			t.Fatal(err)
		}

		if _, err := NewCSVStore(path, testLogger()); err != nil {
			t.Fatalf("NewCSVStore() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != existing {
			t.Errorf("file changed: %q", data)
		}
	})
}

func TestCSVStoreAppendAndReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "perfumes.csv")
	s, err := NewCSVStore(path, testLogger())
	if err != nil {
		t.Fatalf("NewCSVStore() error = %v", err)
	}

	rating := 4.02
	votes := 14563
	rec := &model.Record{
		Brand:     "Davidoff",
		Name:      "Cool Water",
		Rating:    &rating,
		Votes:     &votes,
		URL:       "https://www.fragrantica.com/perfume/Davidoff/Cool-Water-592.html",
		CrawledAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	if err := s.Append(rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	bare := &model.Record{
		Brand:     "Creed",
		Name:      "Aventus",
		URL:       "https://www.fragrantica.com/perfume/Creed/Aventus-9828.html",
		CrawledAt: time.Date(2026, 8, 30, 12, 5, 0, 0, time.UTC),
	}
	if err := s.Append(bare); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (header + 2 records)", len(rows))
	}
	if rows[2][2] != "" || rows[2][3] != "" {
		t.Errorf("absent rating/votes = %q/%q, want empty cells", rows[2][2], rows[2][3])
	}

	set, err := s.LoadExistingURLs()
	if err != nil {
		t.Fatalf("LoadExistingURLs() error = %v", err)
	}
	if set.Len() != 2 {
		t.Errorf("Len() = %d, want 2", set.Len())
	}
	if !set.Contains(rec.URL) || !set.Contains(bare.URL) {
		t.Errorf("dedup set missing appended URLs: %v / %v", set.Contains(rec.URL), set.Contains(bare.URL))
	}
}

func TestLoadExistingURLs(t *testing.T) {
	t.Parallel()

	t.Run("missing file yields an empty set", func(t *testing.T) {
		t.Parallel()

		s := &CSVStore{path: filepath.Join(t.TempDir(), "nope.csv"), logger: testLogger()}
		set, err := s.LoadExistingURLs()
		if err != nil {
			t.Fatalf("LoadExistingURLs() error = %v", err)
		}
		if set.Len() != 0 {
			t.Errorf("Len() = %d, want 0", set.Len())
		}
	})

	t.Run("short and garbled rows are skipped", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "perfumes.csv")
		content := strings.Join([]string{
			"brand,name,rating,votes,url,last_crawled",
			"Dior,Sauvage,4.3,100,https://www.fragrantica.com/perfume/Dior/Sauvage-31861.html,2026-01-01T00:00:00Z",
			"short,row",
			`ga"rbled,x,y,z,u,v`,
			"Creed,Aventus,,,https://www.fragrantica.com/perfume/Creed/Aventus-9828.html,2026-01-02T00:00:00Z",
		}, "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0640); err != nil {
			t.Fatal(err)
		}

		s := &CSVStore{path: path, logger: testLogger()}
		set, err := s.LoadExistingURLs()
		if err != nil {
			t.Fatalf("LoadExistingURLs() error = %v", err)
		}
		if set.Len() != 2 {
			t.Errorf("Len() = %d, want 2", set.Len())
		}
		if !set.Contains("https://www.fragrantica.com/perfume/Creed/Aventus-9828.html") {
			t.Error("row after the garbled one was not loaded")
		}
	})
}
