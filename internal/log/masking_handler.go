package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces values whose key names a secret.
const MaskValue = "***"

// secretKeys are attribute keys whose whole value is masked.
var secretKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"password":            true,
	"passwd":              true,
	"secret":              true,
	"token":               true,
	"api_key":             true,
	"apikey":              true,
	"credential":          true,
	"credentials":         true,
}

// userinfoRe matches the user:pass@ section of a URL. Only the
// credentials are replaced; scheme, host, and path stay readable so
// the log line remains useful for debugging proxy selection.
var userinfoRe = regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.-]*://)[^/@\s]+@`)

// secretValueRes match values that are secrets regardless of key name.
var secretValueRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
}

// MaskingHandler wraps an slog.Handler and masks credentials in
// attribute values before they reach the underlying handler.
//
// Design decision: a handler wrapper rather than call-site discipline.
// Proxy URLs flow through several packages (config, scheduler,
// fetcher); masking once at the handler is the only place that
// catches them all, and it works with any underlying handler.
type MaskingHandler struct {
	handler slog.Handler
}

// NewMaskingHandler creates a MaskingHandler wrapping the given
// handler. A nil handler falls back to slog.Default().Handler().
func NewMaskingHandler(handler slog.Handler) *MaskingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &MaskingHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it on.
func (h *MaskingHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.maskAttr(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

// WithAttrs returns a new handler with the given attributes added,
// masked first.
func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		maskedAttrs[i] = h.maskAttr(a)
	}
	return &MaskingHandler{handler: h.handler.WithAttrs(maskedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{handler: h.handler.WithGroup(name)}
}

// maskAttr masks a single attribute, recursively handling groups.
func (h *MaskingHandler) maskAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		maskedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			maskedAttrs[i] = h.maskAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(maskedAttrs...)}
	}

	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString {
		val := a.Value.String()
		if isSecretValue(val) {
			return slog.String(a.Key, MaskValue)
		}
		if masked := maskUserinfo(val); masked != val {
			return slog.String(a.Key, masked)
		}
	}

	return a
}

// maskUserinfo replaces URL credentials while keeping the rest of the
// URL intact: "socks5://u:p@host:1080" becomes "socks5://***@host:1080".
func maskUserinfo(s string) string {
	return userinfoRe.ReplaceAllString(s, "${1}"+MaskValue+"@")
}

func isSecretValue(value string) bool {
	for _, re := range secretValueRes {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// NewLogger creates a *slog.Logger writing text records to w with
// credential masking applied. Verbose enables debug output; the quiet
// default only surfaces warnings so crawl progress stays readable.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	return slog.New(NewMaskingHandler(textHandler))
}

// NewJSONLogger is NewLogger with JSON output, for runs whose logs are
// shipped to an aggregator.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	jsonHandler := slog.NewJSONHandler(w, opts)
	return slog.New(NewMaskingHandler(jsonHandler))
}
