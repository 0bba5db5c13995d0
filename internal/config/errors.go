package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Package-level sentinel errors allow callers to use errors.Is for
// programmatic handling while keeping human-readable messages.
var (
	// ErrNoSeeds is returned when neither seed URLs nor a brand name is
	// given; there is nothing to crawl.
	ErrNoSeeds = errors.New("no seed URL and no brand specified: nothing to crawl")

	// ErrInvalidDelay is returned when the base delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the HTTP timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidSessionBreak is returned when the cooldown duration is
	// negative.
	ErrInvalidSessionBreak = errors.New("invalid session break: must be non-negative")

	// ErrInvalidRotateEvery is returned when the rotation interval is
	// negative; use 0 to disable rotation.
	ErrInvalidRotateEvery = errors.New("invalid rotate-every: must be non-negative")

	// ErrConflictingReports is returned when both the JSON and Markdown
	// report formats are requested.
	ErrConflictingReports = errors.New("conflicting report formats: --json and --markdown are mutually exclusive")
)
