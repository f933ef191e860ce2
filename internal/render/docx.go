package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/idml2doc/internal/model"
)

// WordprocessingML namespace of word/document.xml.
const nsWordprocessingML = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// Package parts of the generated document, in write order.
const (
	docxContentTypesPath = "[Content_Types].xml"
	docxRelsPath         = "_rels/.rels"
	docxDocumentPath     = "word/document.xml"
	docxCorePath         = "docProps/core.xml"
)

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>
`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>
`

const docxCoreTemplate = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<dc:title>%s</dc:title>
<dc:creator>idml2doc</dc:creator>
<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>
</cp:coreProperties>
`

// docxDocument is word/document.xml. Element names carry the "w" prefix
// literally; the namespace is declared on the root.
type docxDocument struct {
	XMLName xml.Name `xml:"w:document"`
	NS      string   `xml:"xmlns:w,attr"`
	Body    docxBody `xml:"w:body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"w:p"`
}

type docxParagraph struct {
	Props *docxParagraphProps `xml:"w:pPr,omitempty"`
	Run   docxRun             `xml:"w:r"`
}

type docxParagraphProps struct {
	Style docxVal `xml:"w:pStyle"`
}

type docxVal struct {
	Val string `xml:"w:val,attr"`
}

type docxRun struct {
	Props *docxRunProps `xml:"w:rPr,omitempty"`
	Text  docxText      `xml:"w:t"`
}

type docxRunProps struct {
	Bold docxVal `xml:"w:b"`
}

type docxText struct {
	Space string `xml:"xml:space,attr,omitempty"`
	Value string `xml:",chardata"`
}

// DOCXWriter outputs documents as Office Open XML word-processor files.
//
// It consumes the plain-text rendering split on line breaks: every line
// becomes one paragraph, so the paragraphs match Lines(m). Section headings
// are set in bold with the Heading2 style, and a title, when set, opens the
// document with the Title style.
type DOCXWriter struct {
	baseWriter

	// now returns the creation timestamp; replaced in tests.
	now func() time.Time
}

// NewDOCXWriter creates a DOCXWriter that outputs to the given writer.
func NewDOCXWriter(output io.Writer, opts ...Option) *DOCXWriter {
	return &DOCXWriter{
		baseWriter: newBaseWriter(output, opts),
		now:        time.Now,
	}
}

// Write outputs the model as a .docx archive.
func (w *DOCXWriter) Write(m *model.ContentModel) (int, error) {
	if m == nil {
		return 0, ErrNilModel
	}

	document, err := w.documentXML(m)
	if err != nil {
		return 0, fmt.Errorf("render docx: %w", err)
	}

	parts := []struct {
		name string
		data []byte
	}{
		{docxContentTypesPath, []byte(docxContentTypes)},
		{docxRelsPath, []byte(docxRels)},
		{docxDocumentPath, document},
		{docxCorePath, w.coreXML()},
	}

	cw := &countingWriter{w: w.output}
	zw := zip.NewWriter(cw)
	for _, p := range parts {
		fw, err := zw.Create(p.name)
		if err != nil {
			return cw.n, fmt.Errorf("render docx: create %s: %w", p.name, err)
		}
		if _, err := fw.Write(p.data); err != nil {
			return cw.n, fmt.Errorf("render docx: write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("render docx: %w", err)
	}
	return cw.n, nil
}

// documentXML marshals word/document.xml for m.
func (w *DOCXWriter) documentXML(m *model.ContentModel) ([]byte, error) {
	doc := docxDocument{NS: nsWordprocessingML}

	if w.title != "" {
		doc.Body.Paragraphs = append(doc.Body.Paragraphs, styledParagraph(w.title, "Title"))
	}

	for _, l := range layout(m) {
		for _, text := range strings.Split(l.text, "\n") {
			if l.heading {
				doc.Body.Paragraphs = append(doc.Body.Paragraphs, styledParagraph(text, "Heading2"))
				continue
			}
			doc.Body.Paragraphs = append(doc.Body.Paragraphs, docxParagraph{Run: docxRun{Text: newDocxText(text)}})
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// styledParagraph builds a bold paragraph with the given paragraph style.
func styledParagraph(text, style string) docxParagraph {
	return docxParagraph{
		Props: &docxParagraphProps{Style: docxVal{Val: style}},
		Run: docxRun{
			Props: &docxRunProps{Bold: docxVal{Val: "true"}},
			Text:  newDocxText(text),
		},
	}
}

// newDocxText keeps leading and trailing spaces, which Word drops unless
// xml:space="preserve" is set.
func newDocxText(text string) docxText {
	t := docxText{Value: text}
	if strings.TrimSpace(text) != text {
		t.Space = "preserve"
	}
	return t
}

// coreXML builds docProps/core.xml.
func (w *DOCXWriter) coreXML() []byte {
	var title bytes.Buffer
	_ = xml.EscapeText(&title, []byte(w.documentName())) //nolint:errcheck // bytes.Buffer writes never fail
	created := w.now().UTC().Format(time.RFC3339)
	return []byte(fmt.Sprintf(docxCoreTemplate, title.String(), created))
}
