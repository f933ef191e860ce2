package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

// DefaultMaxValueLength is the number of runes kept of a long string value.
const DefaultMaxValueLength = 200

// HomeMarker replaces the home directory prefix in logged values.
const HomeMarker = "~"

// CompactHandler wraps an slog.Handler to keep log lines readable.
// It shortens long string values and replaces the user's home directory with
// HomeMarker before passing records to the underlying handler.
type CompactHandler struct {
	// handler is the underlying slog handler that receives compacted records.
	handler slog.Handler

	// maxLen is the number of runes kept of a string value; 0 disables shortening.
	maxLen int

	// home is the home directory to replace; empty disables replacement.
	home string
}

// CompactOption configures a CompactHandler.
type CompactOption func(*CompactHandler)

// WithMaxValueLength sets the number of runes kept of a string value.
// Zero or a negative value disables shortening.
func WithMaxValueLength(n int) CompactOption {
	return func(h *CompactHandler) {
		h.maxLen = max(n, 0)
	}
}

// WithHomeDir sets the directory replaced by HomeMarker.
// An empty string disables replacement.
func WithHomeDir(dir string) CompactOption {
	return func(h *CompactHandler) {
		h.home = strings.TrimRight(dir, `/\`)
	}
}

// NewCompactHandler creates a new CompactHandler wrapping the given handler.
// If handler is nil, the returned CompactHandler will use slog.Default().Handler().
// The home directory defaults to os.UserHomeDir().
func NewCompactHandler(handler slog.Handler, opts ...CompactOption) *CompactHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	h := &CompactHandler{
		handler: handler,
		maxLen:  DefaultMaxValueLength,
	}
	if home, err := os.UserHomeDir(); err == nil {
		h.home = strings.TrimRight(home, `/\`)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *CompactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle compacts the record's attributes and passes it to the underlying handler.
func (h *CompactHandler) Handle(ctx context.Context, r slog.Record) error {
	compacted := slog.NewRecord(r.Time, r.Level, h.compactString(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		compacted.AddAttrs(h.compactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, compacted)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are compacted before being added.
func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	compacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		compacted[i] = h.compactAttr(a)
	}
	return h.clone(h.handler.WithAttrs(compacted))
}

// WithGroup returns a new handler with the given group name.
func (h *CompactHandler) WithGroup(name string) slog.Handler {
	return h.clone(h.handler.WithGroup(name))
}

func (h *CompactHandler) clone(handler slog.Handler) *CompactHandler {
	return &CompactHandler{handler: handler, maxLen: h.maxLen, home: h.home}
}

// compactAttr compacts a single attribute, recursively handling groups.
// Errors are logged by their message so that paths inside them are compacted too.
func (h *CompactHandler) compactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		compacted := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			compacted[i] = h.compactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(compacted...)}

	case slog.KindString:
		return slog.String(a.Key, h.compactString(v.String()))

	case slog.KindAny:
		if err, ok := v.Any().(error); ok && err != nil {
			return slog.String(a.Key, h.compactString(err.Error()))
		}
	}

	return slog.Attr{Key: a.Key, Value: v}
}

// compactString replaces the home directory and shortens s.
func (h *CompactHandler) compactString(s string) string {
	if h.home != "" && strings.Contains(s, h.home) {
		s = replaceHome(s, h.home)
	}
	if h.maxLen == 0 {
		return s
	}
	n := utf8.RuneCountInString(s)
	if n <= h.maxLen {
		return s
	}
	cut := 0
	for range h.maxLen {
		_, size := utf8.DecodeRuneInString(s[cut:])
		cut += size
	}
	return fmt.Sprintf("%s…(+%d chars)", s[:cut], n-h.maxLen)
}

// replaceHome replaces every occurrence of home that is followed by a path
// separator or the end of the string, so "/home/al" does not match inside
// "/home/alice".
func replaceHome(s, home string) string {
	var b strings.Builder
	for {
		i := strings.Index(s, home)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := i + len(home)
		b.WriteString(s[:i])
		if end == len(s) || s[end] == '/' || s[end] == '\\' {
			b.WriteString(HomeMarker)
		} else {
			b.WriteString(home)
		}
		s = s[end:]
	}
}

// newLevel returns Debug when verbose, Warn otherwise.
func newLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewLogger creates a new slog.Logger writing text lines through a CompactHandler.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewLogger(w io.Writer, verbose bool, opts ...CompactOption) *slog.Logger {
	textHandler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: newLevel(verbose)})
	return slog.New(NewCompactHandler(textHandler, opts...))
}

// NewJSONLogger creates a new slog.Logger writing JSON lines through a
// CompactHandler. Useful for structured log aggregation.
func NewJSONLogger(w io.Writer, verbose bool, opts ...CompactOption) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: newLevel(verbose)})
	return slog.New(NewCompactHandler(jsonHandler, opts...))
}
