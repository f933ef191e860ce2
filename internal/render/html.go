package render

import (
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/idml2doc/internal/model"
)

// HTMLWriter outputs documents as HTML5.
//
// The body holds an h2 "Stories" heading followed by one p per text
// fragment, then an h2 "Images" heading followed by one p per image marker
// carrying the image class and the raw link path as its text. Both are
// omitted when their sequence is empty. Text is escaped by the renderer.
type HTMLWriter struct {
	baseWriter
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer, opts ...Option) *HTMLWriter {
	return &HTMLWriter{baseWriter: newBaseWriter(output, opts)}
}

// Write outputs the model as an HTML document.
func (w *HTMLWriter) Write(m *model.ContentModel) (int, error) {
	if m == nil {
		return 0, ErrNilModel
	}

	cw := &countingWriter{w: w.output}
	if err := html.Render(cw, w.document(m)); err != nil {
		return cw.n, err
	}
	if _, err := io.WriteString(cw, "\n"); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// document builds the node tree for m.
func (w *HTMLWriter) document(m *model.ContentModel) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	doc.AppendChild(root)

	head := element(atom.Head)
	root.AppendChild(head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	if name := w.documentName(); name != "" {
		head.AppendChild(textElement(atom.Title, name))
	}

	body := element(atom.Body)
	root.AppendChild(newline())
	root.AppendChild(body)

	if w.title != "" {
		appendBlock(body, textElement(atom.H1, w.title))
	}

	if texts := m.Texts(); len(texts) > 0 {
		appendBlock(body, textElement(atom.H2, StoriesHeading))
		for _, t := range texts {
			appendBlock(body, textElement(atom.P, t))
		}
	}

	if paths := m.Paths(); len(paths) > 0 {
		appendBlock(body, textElement(atom.H2, ImagesHeading))
		for _, p := range paths {
			appendBlock(body, textElement(atom.P, p, html.Attribute{Key: "class", Val: w.imageClass}))
		}
	}
	body.AppendChild(newline())

	return doc
}

// element creates an element node for a.
func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

// textElement creates an element node for a holding the given text.
func textElement(a atom.Atom, text string, attrs ...html.Attribute) *html.Node {
	n := element(a, attrs...)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

// appendBlock appends n to parent on a line of its own.
func appendBlock(parent, n *html.Node) {
	parent.AppendChild(newline())
	parent.AppendChild(n)
}

func newline() *html.Node {
	return &html.Node{Type: html.TextNode, Data: "\n"}
}
