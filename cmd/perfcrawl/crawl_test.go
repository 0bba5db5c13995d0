package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/perfumedb/perfcrawl/internal/config"
	"github.com/perfumedb/perfcrawl/internal/model"
)

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "crawl" {
			t.Errorf("expected use 'crawl', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	t.Run("has expected flags with shorthands", func(t *testing.T) {
		t.Parallel()

		shorthands := map[string]string{
			"start-url":  "s",
			"brand":      "b",
			"out-csv":    "o",
			"max-pages":  "p",
			"delay":      "d",
			"timeout":    "t",
			"user-agent": "u",
			"json":       "j",
			"markdown":   "m",
			"config":     "c",
		}
		for name, want := range shorthands {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				t.Errorf("expected %s flag", name)
				continue
			}
			if flag.Shorthand != want {
				t.Errorf("flag %s: expected shorthand %q, got %q", name, want, flag.Shorthand)
			}
		}
	})

	t.Run("has longhand-only flags", func(t *testing.T) {
		t.Parallel()

		for _, name := range []string{
			"brands", "brands-file", "session-size", "session-break",
			"proxy", "proxies-file", "rotate-every", "report",
		} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("rejects positional arguments", func(t *testing.T) {
		t.Parallel()
		if cmd.Args == nil {
			t.Error("expected Args validator")
		}
	})
}

// TestSetupLogger tests logger creation.
func TestSetupLogger(t *testing.T) {
	t.Parallel()

	t.Run("verbose logger enables debug", func(t *testing.T) {
		t.Parallel()
		logger := setupLogger(true)
		if !logger.Enabled(t.Context(), slog.LevelDebug) {
			t.Error("expected debug level to be enabled")
		}
	})

	t.Run("quiet logger only warns", func(t *testing.T) {
		t.Parallel()
		logger := setupLogger(false)
		if logger.Enabled(t.Context(), slog.LevelInfo) {
			t.Error("expected info level to be disabled")
		}
		if !logger.Enabled(t.Context(), slog.LevelWarn) {
			t.Error("expected warn level to be enabled")
		}
	})
}

// TestGetVerboseFlag tests verbose flag retrieval.
func TestGetVerboseFlag(t *testing.T) {
	t.Parallel()

	t.Run("returns false by default", func(t *testing.T) {
		t.Parallel()
		root := NewRootCmd()
		if getVerboseFlag(root) {
			t.Error("expected verbose to default to false")
		}
	})

	t.Run("returns true when set", func(t *testing.T) {
		t.Parallel()
		root := NewRootCmd()
		if err := root.PersistentFlags().Set("verbose", "true"); err != nil {
			t.Fatal(err)
		}
		if !getVerboseFlag(root) {
			t.Error("expected verbose to be true")
		}
	})
}

// fakeRunRecorder captures the context and summary handed to RecordRun.
type fakeRunRecorder struct {
	ctx     context.Context
	summary *model.RunSummary
	err     error
}

func (f *fakeRunRecorder) RecordRun(ctx context.Context, summary *model.RunSummary) error {
	f.ctx = ctx
	f.summary = summary
	return f.err
}

// TestRecordRunHistory tests that the post-run journal write survives
// crawl cancellation.
func TestRecordRunHistory(t *testing.T) {
	t.Parallel()

	t.Run("writes despite canceled crawl context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // the interrupt that stopped the crawl

		recorder := &fakeRunRecorder{}
		summary := model.NewRunSummary("Creed", "Creed.csv")
		recordRunHistory(ctx, recorder, summary, setupLogger(false))

		if recorder.summary != summary {
			t.Fatal("expected the summary to reach the journal")
		}
		if recorder.ctx == nil || recorder.ctx.Err() != nil {
			t.Errorf("expected a live context for the bookkeeping write, got %v", recorder.ctx.Err())
		}
	})

	t.Run("journal errors are swallowed", func(t *testing.T) {
		t.Parallel()

		recorder := &fakeRunRecorder{err: errors.New("disk full")}
		summary := model.NewRunSummary("", "perfumes.csv")
		// Must not panic or propagate; the crawl result already stands.
		recordRunHistory(context.Background(), recorder, summary, setupLogger(false))
	})
}

// TestBuildConfig tests config construction from flags.
func TestBuildConfig(t *testing.T) {
	t.Run("builds config with default values", func(t *testing.T) {
		cmd := NewCrawlCmd()
		cfg, brands, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg == nil {
			t.Fatal("expected non-nil config")
		}
		if len(brands) != 0 {
			t.Errorf("expected no brands, got %v", brands)
		}
		if cfg.MaxPages != config.DefaultMaxPages {
			t.Errorf("expected MaxPages %d, got %d", config.DefaultMaxPages, cfg.MaxPages)
		}
		if cfg.Delay != config.DefaultDelay {
			t.Errorf("expected Delay %v, got %v", config.DefaultDelay, cfg.Delay)
		}
		if cfg.SessionSize != config.DefaultSessionSize {
			t.Errorf("expected SessionSize %d, got %d", config.DefaultSessionSize, cfg.SessionSize)
		}
	})

	t.Run("builds config with seeds and brand", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("start-url", "https://www.fragrantica.com/perfume/Creed/Aventus-9828.html")
		_ = cmd.Flags().Set("brand", "Creed")
		cfg, _, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cfg.Seeds) != 1 {
			t.Fatalf("expected 1 seed, got %d", len(cfg.Seeds))
		}
		if cfg.Brand != "Creed" {
			t.Errorf("expected brand Creed, got %q", cfg.Brand)
		}
	})

	t.Run("builds config with custom delay", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("delay", "10s")
		cfg, _, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Delay != 10*time.Second {
			t.Errorf("expected delay 10s, got %v", cfg.Delay)
		}
	})

	t.Run("deduplicates brands case-insensitively", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("brands", "Creed")
		_ = cmd.Flags().Set("brands", "CREED")
		_ = cmd.Flags().Set("brands", "Dior")
		_, brands, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(brands) != 2 {
			t.Fatalf("expected 2 brands, got %v", brands)
		}
		if brands[0] != "Creed" || brands[1] != "Dior" {
			t.Errorf("expected [Creed Dior], got %v", brands)
		}
	})

	t.Run("merges brands file", func(t *testing.T) {
		tmpDir := t.TempDir()
		brandsFile := filepath.Join(tmpDir, "brands.txt")
		content := "# favorites\nCreed\nParfums de Marly\n\n"
		if err := os.WriteFile(brandsFile, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("brands", "Dior")
		_ = cmd.Flags().Set("brands-file", brandsFile)
		_, brands, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(brands) != 3 {
			t.Fatalf("expected 3 brands, got %v", brands)
		}
	})

	t.Run("merges proxies file", func(t *testing.T) {
		tmpDir := t.TempDir()
		proxiesFile := filepath.Join(tmpDir, "proxies.txt")
		content := "socks5://127.0.0.1:9050\n# backup\nhttp://proxy.example.com:8080\n"
		if err := os.WriteFile(proxiesFile, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("proxy", "socks5://127.0.0.1:9150")
		_ = cmd.Flags().Set("proxies-file", proxiesFile)
		cfg, _, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cfg.Proxies) != 3 {
			t.Fatalf("expected 3 proxies, got %v", cfg.Proxies)
		}
	})

	t.Run("config file backfills unset flags only", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfgFile := filepath.Join(tmpDir, ".perfcrawl")
		content := "delay: 30s\ntimeout: 45s\nsessionSize: 5\n"
		if err := os.WriteFile(cfgFile, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("config", cfgFile)
		_ = cmd.Flags().Set("delay", "2s") // CLI wins over the file
		cfg, _, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Delay != 2*time.Second {
			t.Errorf("expected CLI delay 2s to win, got %v", cfg.Delay)
		}
		if cfg.Timeout != 45*time.Second {
			t.Errorf("expected file timeout 45s, got %v", cfg.Timeout)
		}
		if cfg.SessionSize != 5 {
			t.Errorf("expected file sessionSize 5, got %d", cfg.SessionSize)
		}
	})

	t.Run("config file supplies default brand list", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfgFile := filepath.Join(tmpDir, ".perfcrawl")
		content := "brands:\n  - Creed\n  - Dior\n"
		if err := os.WriteFile(cfgFile, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("config", cfgFile)
		_, brands, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(brands) != 2 {
			t.Fatalf("expected 2 brands from file, got %v", brands)
		}
	})

	t.Run("explicit seeds suppress file brand list", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfgFile := filepath.Join(tmpDir, ".perfcrawl")
		content := "brands:\n  - Creed\n"
		if err := os.WriteFile(cfgFile, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("config", cfgFile)
		_ = cmd.Flags().Set("start-url", "https://www.fragrantica.com/perfume/Dior/Sauvage-31861.html")
		_, brands, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(brands) != 0 {
			t.Errorf("expected no brands when seeds are given, got %v", brands)
		}
	})

	t.Run("explicit missing config file is an error", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("config", filepath.Join(t.TempDir(), "does-not-exist.yaml"))
		_, _, err := buildConfig(cmd)
		if err == nil {
			t.Error("expected error for missing explicit config file")
		}
	})

	t.Run("conflicting report flags fail validation", func(t *testing.T) {
		cmd := NewCrawlCmd()
		_ = cmd.Flags().Set("brand", "Creed")
		_ = cmd.Flags().Set("json", "true")
		_ = cmd.Flags().Set("markdown", "true")
		cfg, _, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := cfg.Validate(); err == nil {
			t.Error("expected validation error for --json with --markdown")
		}
	})
}
