package report

import (
	"encoding/json"
	"io"

	"github.com/perfumedb/perfcrawl/internal/model"
)

// JSONWriter outputs run summaries in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. It's sufficient for our needs
// 3. It provides consistent behavior across Go versions
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter:   newBaseWriter(output),
		indent:       false,
		indentPrefix: "",
		indentString: "",
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// jsonSummary mirrors RunSummary with stable JSON field names.
//
// Design decision: We map the summary onto a dedicated struct rather
// than tagging RunSummary because the JSON shape is an output contract
// while RunSummary is internal state; the two should evolve separately.
type jsonSummary struct {
	Brand             string         `json:"brand,omitempty"`
	OutputPath        string         `json:"output_path"`
	PagesSaved        int            `json:"pages_saved"`
	PagesProcessed    int            `json:"pages_processed"`
	IndexPagesFetched int            `json:"index_pages_fetched"`
	LinksDiscovered   int            `json:"links_discovered"`
	Skips             map[string]int `json:"skips,omitempty"`
	StartedAt         string         `json:"started_at"`
	FinishedAt        string         `json:"finished_at"`
}

// Write renders the run summary as JSON.
func (w *JSONWriter) Write(summary *model.RunSummary) (int, error) {
	out := jsonSummary{
		Brand:             summary.Brand,
		OutputPath:        summary.OutputPath,
		PagesSaved:        summary.PagesSaved,
		PagesProcessed:    summary.PagesProcessed,
		IndexPagesFetched: summary.IndexPagesFetched,
		LinksDiscovered:   summary.LinksDiscovered,
		StartedAt:         summary.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		FinishedAt:        summary.FinishedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if len(summary.Skips) > 0 {
		out.Skips = make(map[string]int, len(summary.Skips))
		for reason, count := range summary.Skips {
			out.Skips[string(reason)] = count
		}
	}

	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(out, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(out)
	}
	if err != nil {
		return 0, err
	}

	// Trailing newline for better terminal output
	data = append(data, '\n')
	return w.output.Write(data)
}
