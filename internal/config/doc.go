// Package config provides configuration structures and utilities for
// perfcrawl. It defines the crawl settings (seeds, brand mode, politeness
// timing, identity pools), their defaults and validation, the optional
// YAML configuration file, and the XDG directory paths used for the
// fetch-history database.
package config
