// Package render turns an assembled content model into output documents.
//
// Every writer consumes the same model.ContentModel and lays it out the same
// way: a "Stories" section with one paragraph per text fragment, then an
// "Images" section with one entry per image marker. A section whose sequence
// is empty is left out entirely, heading included.
//
// Writers:
//   - HTMLWriter: an HTML5 document built with golang.org/x/net/html
//   - DOCXWriter: a minimal Office Open XML word-processor document
//   - MarkdownWriter: Markdown via github.com/nao1215/markdown
//   - JSONWriter: the content model as JSON
//   - TextWriter: plain text, one line per heading, fragment or marker
//
// Writers implement the Writer interface and can be combined with MultiWriter.
package render
