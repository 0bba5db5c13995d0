package config

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. The timing defaults are deliberately
// conservative: the target site rate-limits aggressively, and a blocked
// crawler collects nothing.
const (
	// DefaultMaxPages caps how many perfume pages are saved per run.
	// Zero or negative means unbounded.
	DefaultMaxPages = 100

	// DefaultDelay is the base politeness delay between requests.
	// Jitter is added on top of this; it is never undercut.
	DefaultDelay = 5 * time.Second

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultSessionSize is how many saved pages make up one session
	// before the crawler takes an extended cooldown break.
	DefaultSessionSize = 30

	// DefaultSessionBreak is the cooldown duration between sessions.
	// Fifteen minutes mimics a human stepping away rather than a
	// metronomic bot.
	DefaultSessionBreak = 15 * time.Minute

	// DefaultRotateEvery disables mid-session identity rotation.
	// Identity still rotates at every session boundary.
	DefaultRotateEvery = 0

	// DefaultOutputPath is the CSV destination when neither a brand nor
	// an explicit output path is given.
	DefaultOutputPath = "perfumes.csv"

	// AppName is the application name used for XDG directory paths.
	AppName = "perfcrawl"
)

// Config holds all options for one crawl run. It is populated from CLI
// flags (optionally backed by the YAML config file) and passed through
// the application by value injection rather than global state.
type Config struct {
	// Seeds are explicit start URLs. May be empty when Brand is set.
	Seeds []string

	// Brand is the brand filter and, absent Seeds, the crawl seed: the
	// run starts from the brand's directory page. Only records whose
	// extracted brand matches (case-folded) are persisted.
	Brand string

	// OutputPath is the CSV destination. Empty means derive it: from
	// the brand name in brand mode, otherwise DefaultOutputPath.
	OutputPath string

	// MaxPages bounds saved perfume pages. <= 0 means unbounded.
	MaxPages int

	// Delay is the base politeness delay between requests.
	Delay time.Duration

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// UserAgent pins a single User-Agent. Empty means rotate through
	// the built-in pool.
	UserAgent string

	// SessionSize is the number of saved pages per session. <= 0
	// disables cooldowns.
	SessionSize int

	// SessionBreak is the cooldown duration after each session.
	SessionBreak time.Duration

	// Proxies are proxy URLs the scheduler rotates through. Empty means
	// direct connections only.
	Proxies []string

	// RotateEvery rotates the transport identity after this many
	// processed pages. 0 disables rotation within a session.
	RotateEvery int

	// Verbose enables debug-level log output.
	Verbose bool

	// HistoryDBDir is the directory for the SQLite fetch-history
	// database. Empty disables history recording.
	HistoryDBDir string

	// MarkdownReport renders the run summary as Markdown instead of
	// plain text.
	MarkdownReport bool

	// JSONReport renders the run summary as JSON instead of plain text.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// ReportFile writes the run summary to this path instead of stdout.
	ReportFile string

	// ConfigFilePath is an explicit YAML config file path. Empty means
	// search the standard locations.
	ConfigFilePath string
}

// NewConfig creates a Config with default values. Callers override
// specific fields after creation; Validate runs once afterwards.
func NewConfig() *Config {
	return &Config{
		MaxPages:     DefaultMaxPages,
		Delay:        DefaultDelay,
		Timeout:      DefaultTimeout,
		SessionSize:  DefaultSessionSize,
		SessionBreak: DefaultSessionBreak,
		RotateEvery:  DefaultRotateEvery,
		HistoryDBDir: XDGDataDir(),
	}
}

// Validate checks the configuration and returns the first problem found.
// It runs after CLI parsing and before any network traffic, so that
// invalid argument combinations fail fast with a clear message.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 && strings.TrimSpace(c.Brand) == "" {
		return ErrNoSeeds
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.SessionBreak < 0 {
		return ErrInvalidSessionBreak
	}
	if c.RotateEvery < 0 {
		return ErrInvalidRotateEvery
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReports
	}
	return nil
}

// ResolveOutputPath returns the CSV destination for this run, deriving
// it from the brand name when no explicit override was given.
func (c *Config) ResolveOutputPath() string {
	if c.OutputPath != "" {
		return c.OutputPath
	}
	if strings.TrimSpace(c.Brand) != "" {
		return BrandCSVName(c.Brand)
	}
	return DefaultOutputPath
}

// unsafeFileRe matches characters replaced when deriving a file name
// from a brand name.
var unsafeFileRe = regexp.MustCompile(`[^A-Za-z0-9]+`)

// BrandCSVName derives a CSV file name from a brand name: runs of
// non-alphanumerics become underscores, case is preserved.
// "Eight & Bob" -> "Eight_Bob.csv".
func BrandCSVName(brand string) string {
	safe := strings.Trim(unsafeFileRe.ReplaceAllString(brand, "_"), "_")
	if safe == "" {
		safe = "brand"
	}
	return safe + ".csv"
}

// XDGDataDir returns the XDG data directory for perfcrawl.
// On Linux: ~/.local/share/perfcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for perfcrawl.
// On Linux: ~/.config/perfcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}
