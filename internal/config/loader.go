package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".perfcrawl"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Duration wraps time.Duration so YAML values can be written as
// human-readable strings ("15m") or plain numeric seconds.
type Duration struct {
	time.Duration
}

// MarshalYAML emits the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// UnmarshalYAML accepts either a duration string or numeric seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var asString string
	if err := node.Decode(&asString); err == nil {
		parsed, err := time.ParseDuration(asString)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", asString, err)
		}
		d.Duration = parsed
		return nil
	}

	var asSeconds float64
	if err := node.Decode(&asSeconds); err != nil {
		return fmt.Errorf("duration must be a string or seconds: %w", err)
	}
	d.Duration = time.Duration(asSeconds * float64(time.Second))
	return nil
}

// File represents the structure of the .perfcrawl configuration file.
// Everything in it is optional; CLI flags override file values.
type File struct {
	// Delay is the base politeness delay between requests.
	Delay Duration `yaml:"delay,omitempty"`

	// Timeout is the per-request HTTP timeout.
	Timeout Duration `yaml:"timeout,omitempty"`

	// SessionSize is the number of saved pages per session.
	SessionSize int `yaml:"sessionSize,omitempty"`

	// SessionBreak is the cooldown duration between sessions.
	SessionBreak Duration `yaml:"sessionBreak,omitempty"`

	// RotateEvery rotates the identity after this many processed pages.
	RotateEvery int `yaml:"rotateEvery,omitempty"`

	// UserAgent pins a single User-Agent string.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Proxies are proxy URLs rotated through during the crawl.
	Proxies []string `yaml:"proxies,omitempty"`

	// Brands is a default brand list for multi-brand runs.
	Brands []string `yaml:"brands,omitempty"`
}

// LoadConfigFile loads crawl settings from a YAML file.
// If the file does not exist it returns ErrConfigNotFound; callers
// decide whether that is fatal based on whether the path was explicit.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file:
// an explicit path wins, then .perfcrawl in the current directory,
// then in the user's home directory. Returns empty when none exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		candidate := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidate := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

// ReadListFile reads one entry per line from path, skipping blank lines
// and lines starting with '#'. Used for proxy lists and brand lists.
func ReadListFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return entries, nil
}

// DedupeFold removes case-insensitive duplicates while preserving the
// first occurrence and its original casing. Unicode case folding is
// used so "Hermès" and "HERMÈS" collapse to one entry.
func DedupeFold(items []string) []string {
	folder := cases.Fold()
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := folder.String(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
