package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/perfumedb/perfcrawl/internal/model"
)

// MarkdownWriter outputs run summaries in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write renders the run summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCounts(md, summary)
	w.writeSkips(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the summary header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.RunSummary) {
	md.H1("Perfcrawl Run Summary")
	md.PlainText("")

	brand := summary.Brand
	if brand == "" {
		brand = "(unfiltered)"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Brand", brand},
			{"Output CSV", "`" + summary.OutputPath + "`"},
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Elapsed().String()},
		},
	})
	md.PlainText("")
}

// writeCounts writes the page and link counters.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Pages")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Count"},
		Rows: [][]string{
			{"Saved", strconv.Itoa(summary.PagesSaved)},
			{"Processed", strconv.Itoa(summary.PagesProcessed)},
			{"Index pages fetched", strconv.Itoa(summary.IndexPagesFetched)},
			{"Links enqueued", strconv.Itoa(summary.LinksDiscovered)},
		},
	})
	md.PlainText("")

	switch {
	case summary.PagesSaved > 0:
		md.Tipf("%d new perfume(s) appended to the CSV.", summary.PagesSaved)
	case summary.Skips[model.SkipDuplicate] > 0:
		md.Note("No new pages; every reachable perfume was already saved.")
	default:
		md.Warning("No pages were saved this run. Check the skip counts below.")
	}
	md.PlainText("")
}

// writeSkips writes the per-reason skip counts with a distribution chart.
func (w *MarkdownWriter) writeSkips(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Skipped URLs")
	md.PlainText("")

	if summary.TotalSkips() == 0 {
		md.PlainText("No URLs were skipped.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(skipOrder)+1)
	for _, reason := range skipOrder {
		if count := summary.Skips[reason]; count > 0 {
			rows = append(rows, []string{string(reason), strconv.Itoa(count)})
		}
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(summary.TotalSkips()) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Reason", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, summary)
}

// writePieChart writes a mermaid pie chart for the skip distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.RunSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Skip Reason Distribution"),
		piechart.WithShowData(true),
	)

	for _, reason := range skipOrder {
		if count := summary.Skips[reason]; count > 0 {
			chart.LabelAndIntValue(string(reason), uint64(count))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the summary footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by perfcrawl*")
}
