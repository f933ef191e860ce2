package render

import (
	"io"
	"strings"

	"github.com/nao1215/idml2doc/internal/model"
)

// PlainText returns the plain-text rendering of m: one line per section
// heading, text fragment and image path, each ending in a newline.
// An empty model renders as the empty string.
func PlainText(m *model.ContentModel) string {
	var b strings.Builder
	for _, l := range layout(m) {
		b.WriteString(l.text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Lines returns the plain-text rendering split on line breaks, without the
// trailing empty element. It is what the word-processor writer consumes.
func Lines(m *model.ContentModel) []string {
	text := strings.TrimSuffix(PlainText(m), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// TextWriter outputs documents as plain text.
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...Option) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output, opts)}
}

// Write outputs the model as plain text. A title, when set, is written as the
// first line followed by a blank line.
func (w *TextWriter) Write(m *model.ContentModel) (int, error) {
	if m == nil {
		return 0, ErrNilModel
	}
	text := PlainText(m)
	if w.title != "" {
		text = w.title + "\n\n" + text
	}
	return io.WriteString(w.output, text)
}
