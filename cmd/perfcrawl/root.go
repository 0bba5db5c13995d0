// Package main provides the entry point for the perfcrawl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for perfcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perfcrawl",
		Short: "Polite, resumable crawler for perfume pages",
		Long: `Perfcrawl crawls perfume detail pages on www.fragrantica.com, extracts
brand, name, rating, and vote count, and appends one CSV row per unique
page. Re-running against the same CSV never duplicates rows: existing
URLs are loaded at startup and skipped.

The crawler is deliberately slow. Requests are strictly serialized with
a jittered delay, robots.txt is honored, and long cooldown breaks are
taken between sessions.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
