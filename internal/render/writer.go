package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/idml2doc/internal/model"
)

// Section headings shared by every output format.
const (
	StoriesHeading = "Stories"
	ImagesHeading  = "Images"
)

// DefaultImageClass is the style class given to image marker elements.
const DefaultImageClass = "img"

// Writer defines the interface for document output.
type Writer interface {
	// Write renders the content model to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(m *model.ContentModel) (int, error)
}

// MultiWriter writes to multiple Writers in turn.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders the model with every configured Writer.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (mw *MultiWriter) Write(m *model.ContentModel) (int, error) {
	var total int
	for _, w := range mw.writers {
		n, err := w.Write(m)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Format names an output format.
type Format string

const (
	FormatHTML     Format = "html"
	FormatDOCX     Format = "docx"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatText     Format = "text"
)

// AllFormats lists the supported formats in their canonical order.
func AllFormats() []Format {
	return []Format{FormatHTML, FormatDOCX, FormatMarkdown, FormatJSON, FormatText}
}

// ParseFormat converts a user-supplied format name. Common aliases such as
// "md", "txt" and "word" are accepted.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html", "htm":
		return FormatHTML, nil
	case "docx", "word":
		return FormatDOCX, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "text", "txt", "plain":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatHTML:
		return ".html"
	case FormatDOCX:
		return ".docx"
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// Binary reports whether the format produces non-text output.
func (f Format) Binary() bool {
	return f == FormatDOCX
}

// NewWriter creates the Writer for the given format.
func NewWriter(format Format, output io.Writer, opts ...Option) (Writer, error) {
	switch format {
	case FormatHTML:
		return NewHTMLWriter(output, opts...), nil
	case FormatDOCX:
		return NewDOCXWriter(output, opts...), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output, opts...), nil
	case FormatJSON:
		return NewJSONWriter(output, opts...), nil
	case FormatText:
		return NewTextWriter(output, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// options holds the settings shared by all writers.
type options struct {
	title      string
	name       string
	imageClass string
	indent     string
}

// Option configures a Writer.
type Option func(*options)

// WithTitle sets the document title. Writers open the body with it as a
// heading and use it as the document name; an empty title leaves both out.
func WithTitle(title string) Option {
	return func(o *options) {
		o.title = strings.TrimSpace(title)
	}
}

// WithDocumentName sets the name recorded in document metadata, such as the
// HTML title element or the DOCX core properties, when no title is set.
// Unlike a title it adds no heading to the body.
func WithDocumentName(name string) Option {
	return func(o *options) {
		o.name = strings.TrimSpace(name)
	}
}

// WithImageClass sets the style class of image marker elements.
// An empty class keeps DefaultImageClass.
func WithImageClass(class string) Option {
	return func(o *options) {
		if class = strings.TrimSpace(class); class != "" {
			o.imageClass = class
		}
	}
}

// WithIndent sets the indentation used by the JSON writer.
// An empty string produces compact output.
func WithIndent(indent string) Option {
	return func(o *options) {
		o.indent = indent
	}
}

// documentName returns the metadata name: the title when set, the document
// name otherwise.
func (o options) documentName() string {
	if o.title != "" {
		return o.title
	}
	return o.name
}

func newOptions(opts []Option) options {
	o := options{
		imageClass: DefaultImageClass,
		indent:     "  ",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// baseWriter provides common functionality for document writers.
type baseWriter struct {
	output io.Writer
	options
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer, opts []Option) baseWriter {
	return baseWriter{output: output, options: newOptions(opts)}
}

// countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

// line is one line of the plain-text layout.
type line struct {
	text    string
	heading bool
}

// layout returns the plain-text layout of m: each section heading followed by
// its items, with empty sections left out.
func layout(m *model.ContentModel) []line {
	var lines []line
	if texts := m.Texts(); len(texts) > 0 {
		lines = append(lines, line{text: StoriesHeading, heading: true})
		for _, t := range texts {
			lines = append(lines, line{text: t})
		}
	}
	if paths := m.Paths(); len(paths) > 0 {
		lines = append(lines, line{text: ImagesHeading, heading: true})
		for _, p := range paths {
			lines = append(lines, line{text: p})
		}
	}
	return lines
}
