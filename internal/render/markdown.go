package render

import (
	"io"
	"regexp"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/nao1215/idml2doc/internal/model"
)

// MarkdownWriter outputs documents in Markdown format.
//
// Fragments become paragraphs, escaped so that prose never turns into
// Markdown structure. Image paths become a bullet list of code
// spans, since link paths often hold characters Markdown would interpret.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...Option) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output, opts)}
}

// Write outputs the model in Markdown format.
func (w *MarkdownWriter) Write(m *model.ContentModel) (int, error) {
	if m == nil {
		return 0, ErrNilModel
	}

	md := markdown.NewMarkdown(w.output)

	if w.title != "" {
		md.H1(w.title)
		md.PlainText("")
	}

	w.writeStories(md, m.Texts())
	w.writeImages(md, m.Paths())

	return len(md.String()), md.Build()
}

// writeStories writes the Stories section, one paragraph per fragment.
func (w *MarkdownWriter) writeStories(md *markdown.Markdown, texts []string) {
	if len(texts) == 0 {
		return
	}
	md.H2(StoriesHeading)
	md.PlainText("")
	for _, t := range texts {
		md.PlainText(escapeText(t))
		md.PlainText("")
	}
}

// writeImages writes the Images section as a bullet list.
func (w *MarkdownWriter) writeImages(md *markdown.Markdown, paths []string) {
	if len(paths) == 0 {
		return
	}
	md.H2(ImagesHeading)
	md.PlainText("")

	items := make([]string, len(paths))
	for i, p := range paths {
		items[i] = codeSpan(p)
	}
	md.BulletList(items...)
	md.PlainText("")
}

// inlineEscaper backslash-escapes characters that start inline markup.
var inlineEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
)

// orderedListMarker matches a leading ordered list marker such as "1." or "2)".
var orderedListMarker = regexp.MustCompile(`^(\d+)([.)])`)

// escapeText escapes s for use as a Markdown paragraph. Fragments are single
// lines, so only a leading block marker needs escaping besides inline markup.
func escapeText(s string) string {
	s = inlineEscaper.Replace(s)
	if s == "" {
		return s
	}
	switch s[0] {
	case '#', '>', '-', '+', '=', '~', '|':
		return `\` + s
	}
	return orderedListMarker.ReplaceAllString(s, `$1\$2`)
}

// codeSpan wraps s in a Markdown code span, using a backtick fence longer
// than any backtick run inside s.
func codeSpan(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	fence := strings.Repeat("`", longest+1)
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		return fence + " " + s + " " + fence
	}
	return fence + s + fence
}
