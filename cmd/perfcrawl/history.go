package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/perfumedb/perfcrawl/internal/config"
	"github.com/perfumedb/perfcrawl/internal/history"
	"github.com/perfumedb/perfcrawl/internal/model"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past crawl runs and recently visited URLs",
		Long: `History reads the local crawl journal and prints past runs, newest
first. With --urls it lists recently visited URLs and their outcomes
instead. The journal lives under the XDG data directory
(~/.local/share/perfcrawl on Linux) and is written automatically by the
crawl command.`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().IntP("limit", "n", 10, "Maximum entries to show")
	cmd.Flags().StringP("brand", "b", "", "Only show runs for this brand")
	cmd.Flags().Bool("urls", false, "List recently visited URLs instead of runs")

	return cmd
}

// runHistory executes the history command.
func runHistory(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	brand, err := cmd.Flags().GetString("brand")
	if err != nil {
		return err
	}
	showURLs, err := cmd.Flags().GetBool("urls")
	if err != nil {
		return err
	}

	hdb, err := history.Open(config.XDGDataDir(), history.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return fmt.Errorf("no crawl history yet: %w", err)
	}
	defer hdb.Close()

	out := cmd.OutOrStdout()
	if showURLs {
		fetches, err := hdb.RecentFetches(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("failed to read fetch history: %w", err)
		}
		printFetches(out, fetches)
		return nil
	}

	runs, err := hdb.ListRuns(cmd.Context(), brand, limit)
	if err != nil {
		return fmt.Errorf("failed to read run history: %w", err)
	}
	printRuns(out, runs)
	return nil
}

func printFetches(out io.Writer, fetches []history.FetchRecord) {
	if len(fetches) == 0 {
		fmt.Fprintln(out, "No visited URLs recorded.")
		return
	}

	fmt.Fprintf(out, "%-20s %-10s %-12s %s\n", "WHEN", "OUTCOME", "STATUS", "URL")
	fmt.Fprintln(out, strings.Repeat("-", 78))
	for _, f := range fetches {
		status := "-"
		if f.StatusCode != 0 {
			status = fmt.Sprintf("%d", f.StatusCode)
		}
		fmt.Fprintf(out, "%-20s %-10s %-12s %s\n",
			f.Timestamp.Local().Format("2006-01-02 15:04:05"),
			f.Outcome, status, f.URL)
	}
}

func printRuns(out io.Writer, runs []history.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No crawl runs recorded.")
		return
	}

	for _, r := range runs {
		brand := r.Brand
		if brand == "" {
			brand = "(unfiltered)"
		}
		fmt.Fprintf(out, "Run #%d  %s  brand=%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), brand)
		fmt.Fprintf(out, "  saved=%d processed=%d indexes=%d links=%d elapsed=%s -> %s\n",
			r.PagesSaved, r.PagesProcessed, r.IndexPagesFetched,
			r.LinksDiscovered, r.Elapsed().Round(time.Second), r.OutputPath)
		if total := r.TotalSkips(); total > 0 {
			fmt.Fprintf(out, "  skipped=%d (%s)\n", total, formatSkips(r.Skips))
		}
	}
}

// formatSkips renders a skip map as "reason=count" pairs in a stable
// order.
func formatSkips(skips map[model.SkipReason]int) string {
	order := []model.SkipReason{
		model.SkipRobots, model.SkipDuplicate, model.SkipTransient,
		model.SkipHTTP, model.SkipServer, model.SkipNonHTML,
		model.SkipExtract, model.SkipBrandMismatch,
	}
	var parts []string
	for _, reason := range order {
		if n := skips[reason]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", reason, n))
		}
	}
	return strings.Join(parts, ", ")
}
