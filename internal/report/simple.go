package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/perfumedb/perfcrawl/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display at the end of a run.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether zero-count skip reasons are shown.
	showEmpty bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show zero-count skip reasons.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write renders the run summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.RunSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounts(&sb, summary)
	w.writeSkips(&sb, summary)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the summary header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        PERFCRAWL RUN SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	brand := summary.Brand
	if brand == "" {
		brand = "(unfiltered)"
	}
	sb.WriteString(fmt.Sprintf("Brand:       %s\n", brand))
	sb.WriteString(fmt.Sprintf("Output CSV:  %s\n", summary.OutputPath))
	sb.WriteString(fmt.Sprintf("Started:     %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:    %s\n", summary.Elapsed().Round(100*time.Millisecond)))
	sb.WriteString("\n")
}

// writeCounts writes the page and link counters.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  SAVED:      %d\n", summary.PagesSaved))
	sb.WriteString(fmt.Sprintf("  PROCESSED:  %d\n", summary.PagesProcessed))
	sb.WriteString(fmt.Sprintf("  INDEXES:    %d\n", summary.IndexPagesFetched))
	sb.WriteString(fmt.Sprintf("  ENQUEUED:   %d\n", summary.LinksDiscovered))
	sb.WriteString("\n")
}

// writeSkips writes the per-reason skip counts.
func (w *SimpleWriter) writeSkips(sb *strings.Builder, summary *model.RunSummary) {
	if summary.TotalSkips() == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SKIPPED URLS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, reason := range skipOrder {
		count := summary.Skips[reason]
		if count == 0 && !w.showEmpty {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-22s %d\n", string(reason)+":", count))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  %-22s %d\n", "total:", summary.TotalSkips()))
	sb.WriteString("\n")
}

// writeFooter writes the summary footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
