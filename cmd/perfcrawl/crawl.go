package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/perfumedb/perfcrawl/internal/config"
	"github.com/perfumedb/perfcrawl/internal/crawler"
	"github.com/perfumedb/perfcrawl/internal/fetch"
	"github.com/perfumedb/perfcrawl/internal/history"
	"github.com/perfumedb/perfcrawl/internal/log"
	"github.com/perfumedb/perfcrawl/internal/model"
	"github.com/perfumedb/perfcrawl/internal/politeness"
	"github.com/perfumedb/perfcrawl/internal/report"
	"github.com/perfumedb/perfcrawl/internal/robots"
	"github.com/perfumedb/perfcrawl/internal/store"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl perfume pages and append them to a CSV file",
		Long: `Crawl starts from seed URLs or a brand's directory page, follows perfume
and brand-directory links, and appends one CSV row per newly discovered
perfume page. Pages already present in the output CSV are never fetched
again, so interrupted runs resume where they left off.

Examples:
  # Crawl one brand into Creed.csv, stopping after 100 pages
  perfcrawl crawl --brand "Creed"

  # Crawl several brands sequentially, one CSV each
  perfcrawl crawl --brands "Creed" --brands "Eight & Bob"

  # Crawl from explicit seed pages into a shared CSV
  perfcrawl crawl --start-url https://www.fragrantica.com/perfume/Creed/Aventus-9828.html --out-csv perfumes.csv

  # Slow down further and rotate through proxies
  perfcrawl crawl --brand "Dior" --delay 10s --proxies-file proxies.txt --rotate-every 10`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	// Seeding flags
	cmd.Flags().StringArrayP("start-url", "s", nil,
		"Seed URL to start from (repeatable)")
	cmd.Flags().StringP("brand", "b", "",
		"Brand filter; with no seeds, the crawl starts from the brand's directory page")
	cmd.Flags().StringArray("brands", nil,
		"Brand for a multi-brand run (repeatable, one CSV per brand)")
	cmd.Flags().String("brands-file", "",
		"File with one brand per line ('#' comments ignored)")

	// Output flags
	cmd.Flags().StringP("out-csv", "o", "",
		"Output CSV path (default: derived from the brand name, or perfumes.csv)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum perfume pages to save per run (0 = unbounded)")

	// Politeness flags
	cmd.Flags().DurationP("delay", "d", config.DefaultDelay,
		"Base delay between requests (jitter is added on top)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request HTTP timeout")
	cmd.Flags().Int("session-size", config.DefaultSessionSize,
		"Saved pages per session before a cooldown break")
	cmd.Flags().Duration("session-break", config.DefaultSessionBreak,
		"Cooldown duration between sessions")

	// Identity flags
	cmd.Flags().StringP("user-agent", "u", "",
		"Pin a single User-Agent (default: rotate a built-in pool)")
	cmd.Flags().StringArray("proxy", nil,
		"Proxy URL to rotate through (repeatable; http://, https://, or socks5://)")
	cmd.Flags().String("proxies-file", "",
		"File with one proxy URL per line ('#' comments ignored)")
	cmd.Flags().Int("rotate-every", config.DefaultRotateEvery,
		"Rotate the transport identity after this many processed pages (0 = off)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON run summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown run summary (mutually exclusive with --json)")
	cmd.Flags().String("report", "",
		"Write the run summary to this file instead of stdout")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .perfcrawl in current or home directory)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, brands, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	// Handle interrupt signals for graceful shutdown. An in-flight fetch
	// completes; the loop observes the cancellation on its next pass.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, finishing current page...")
		cancel()
	}()

	if len(brands) > 0 {
		return runBrands(ctx, cfg, brands, logger)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates a structured logger based on verbosity setting.
// Credentials in proxy URLs are masked before they hit stderr.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewLogger(os.Stderr, verbose)
}

// buildConfig creates a Config from cobra command flags, backfilled
// from the YAML config file for flags the user did not set. The second
// return value lists brands for a multi-brand run; empty means a
// single run driven by cfg alone.
func buildConfig(cmd *cobra.Command) (*config.Config, []string, error) {
	cfg := config.NewConfig()

	var err error
	flags := cmd.Flags()

	if cfg.Seeds, err = flags.GetStringArray("start-url"); err != nil {
		return nil, nil, err
	}
	if cfg.Brand, err = flags.GetString("brand"); err != nil {
		return nil, nil, err
	}
	if cfg.OutputPath, err = flags.GetString("out-csv"); err != nil {
		return nil, nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, nil, err
	}
	if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
		return nil, nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, nil, err
	}
	if cfg.SessionSize, err = flags.GetInt("session-size"); err != nil {
		return nil, nil, err
	}
	if cfg.SessionBreak, err = flags.GetDuration("session-break"); err != nil {
		return nil, nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, nil, err
	}
	if cfg.Proxies, err = flags.GetStringArray("proxy"); err != nil {
		return nil, nil, err
	}
	if cfg.RotateEvery, err = flags.GetInt("rotate-every"); err != nil {
		return nil, nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report"); err != nil {
		return nil, nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, nil, err
	}

	proxiesFile, err := flags.GetString("proxies-file")
	if err != nil {
		return nil, nil, err
	}
	if proxiesFile != "" {
		proxies, err := config.ReadListFile(proxiesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read proxies file: %w", err)
		}
		cfg.Proxies = append(cfg.Proxies, proxies...)
	}

	brands, err := collectBrands(cmd)
	if err != nil {
		return nil, nil, err
	}

	// Load the YAML config file. An explicit path that does not exist is
	// an error; the default locations are optional.
	file, err := loadConfigFile(cfg.ConfigFilePath)
	if err != nil {
		return nil, nil, err
	}
	if file != nil {
		applyConfigFile(flags, cfg, file)
		if len(brands) == 0 && cfg.Brand == "" && len(cfg.Seeds) == 0 {
			brands = file.Brands
		}
	}

	return cfg, config.DedupeFold(brands), nil
}

// collectBrands gathers the multi-brand list from --brands and
// --brands-file.
func collectBrands(cmd *cobra.Command) ([]string, error) {
	brands, err := cmd.Flags().GetStringArray("brands")
	if err != nil {
		return nil, err
	}

	brandsFile, err := cmd.Flags().GetString("brands-file")
	if err != nil {
		return nil, err
	}
	if brandsFile != "" {
		fromFile, err := config.ReadListFile(brandsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read brands file: %w", err)
		}
		brands = append(brands, fromFile...)
	}
	return brands, nil
}

// loadConfigFile resolves and loads the YAML config file.
func loadConfigFile(explicitPath string) (*config.File, error) {
	path := config.FindConfigFile(explicitPath)
	if path == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("configuration file not found: %s", explicitPath)
		}
		return nil, nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return file, nil
}

// applyConfigFile backfills cfg from the YAML file for every flag the
// user left untouched. CLI flags always win.
func applyConfigFile(flags *pflag.FlagSet, cfg *config.Config, file *config.File) {
	if !flags.Changed("delay") && file.Delay.Duration > 0 {
		cfg.Delay = file.Delay.Duration
	}
	if !flags.Changed("timeout") && file.Timeout.Duration > 0 {
		cfg.Timeout = file.Timeout.Duration
	}
	if !flags.Changed("session-size") && file.SessionSize > 0 {
		cfg.SessionSize = file.SessionSize
	}
	if !flags.Changed("session-break") && file.SessionBreak.Duration > 0 {
		cfg.SessionBreak = file.SessionBreak.Duration
	}
	if !flags.Changed("rotate-every") && file.RotateEvery > 0 {
		cfg.RotateEvery = file.RotateEvery
	}
	if !flags.Changed("user-agent") && file.UserAgent != "" {
		cfg.UserAgent = file.UserAgent
	}
	if !flags.Changed("proxy") && len(cfg.Proxies) == 0 {
		cfg.Proxies = file.Proxies
	}
}

// runBrands crawls each brand sequentially with its own CSV file.
// A failed brand stops the whole run; partial output is preserved.
func runBrands(ctx context.Context, cfg *config.Config, brands []string, logger *slog.Logger) error {
	for i, brand := range brands {
		if err := ctx.Err(); err != nil {
			return err
		}

		brandCfg := *cfg
		brandCfg.Brand = brand
		brandCfg.Seeds = nil
		brandCfg.OutputPath = "" // derive per brand
		if err := brandCfg.Validate(); err != nil {
			return fmt.Errorf("configuration error for brand %q: %w", brand, err)
		}

		fmt.Printf("[%d/%d] Crawling %s...\n", i+1, len(brands), brand)
		if err := runCrawl(ctx, &brandCfg, logger); err != nil {
			return fmt.Errorf("brand %q: %w", brand, err)
		}
	}
	return nil
}

// runCrawl wires the crawl collaborators together and executes one run.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	outputPath := cfg.ResolveOutputPath()

	csvStore, err := store.NewCSVStore(outputPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open output store: %w", err)
	}
	dedup, err := csvStore.LoadExistingURLs()
	if err != nil {
		return fmt.Errorf("failed to load existing rows: %w", err)
	}
	logger.Info("output store ready", "path", outputPath, "existingRows", dedup.Len())

	identities := politeness.BuildIdentityPool(cfg.Proxies, cfg.UserAgent)
	scheduler := politeness.NewScheduler(cfg.Delay, identities,
		politeness.WithSession(cfg.SessionSize, cfg.SessionBreak),
		politeness.WithRotateEvery(cfg.RotateEvery),
		politeness.WithLogger(logger),
	)

	gate := robots.NewGate(&http.Client{Timeout: cfg.Timeout}, robotsUserAgent(cfg), logger)
	fetcher := fetch.NewFetcher(cfg.Timeout, fetch.WithLogger(logger))

	opts := []crawler.Option{
		crawler.WithSeeds(cfg.Seeds),
		crawler.WithBrand(cfg.Brand),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithOutputPath(outputPath),
		crawler.WithLogger(logger),
	}

	// The history DB is an operational journal; a crawl without one is
	// still a correct crawl.
	var journal *history.DB
	if cfg.HistoryDBDir != "" {
		journal, err = history.Open(cfg.HistoryDBDir, history.DefaultOptions())
		if err != nil {
			logger.Warn("history database unavailable, continuing without it", "error", err)
		} else {
			defer journal.Close()
			opts = append(opts, crawler.WithJournal(journal))
		}
	}

	controller := crawler.NewController(fetcher, gate, scheduler, csvStore, dedup, opts...)

	summary, runErr := controller.Run(ctx)

	if journal != nil {
		recordRunHistory(ctx, journal, summary, logger)
	}
	if err := outputSummary(cfg, summary); err != nil {
		logger.Error("failed to write run summary", "error", err)
	}

	return runErr
}

// runRecorder is the slice of the history DB the post-run bookkeeping
// needs.
type runRecorder interface {
	RecordRun(ctx context.Context, summary *model.RunSummary) error
}

// recordRunHistory journals the finished run. Interrupted runs are the
// ones operators look up afterwards, so the write is detached from the
// crawl context: a SIGINT that stopped the crawl must not also discard
// its summary.
func recordRunHistory(ctx context.Context, journal runRecorder, summary *model.RunSummary, logger *slog.Logger) {
	if err := journal.RecordRun(context.WithoutCancel(ctx), summary); err != nil {
		logger.Warn("failed to record run history", "error", err)
	}
}

// robotsUserAgent is the token matched against robots.txt groups.
func robotsUserAgent(cfg *config.Config) string {
	if cfg.UserAgent != "" {
		return cfg.UserAgent
	}
	return model.DefaultUserAgents[0]
}

// outputSummary renders the run summary in the requested format.
func outputSummary(cfg *config.Config, summary *model.RunSummary) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output)
	}

	_, err := writer.Write(summary)
	return err
}
