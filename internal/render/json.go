package render

import (
	"encoding/json"
	"io"

	"github.com/nao1215/idml2doc/internal/model"
)

// JSONWriter outputs the content model as JSON:
//
//	{"title": "...", "stories": [{"text": "...", "entry": "..."}], "images": [{"path": "...", "entry": "..."}]}
//
// Empty sequences are written as [].
type JSONWriter struct {
	baseWriter
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
// Output is indented with two spaces unless WithIndent("") is given.
func NewJSONWriter(output io.Writer, opts ...Option) *JSONWriter {
	return &JSONWriter{baseWriter: newBaseWriter(output, opts)}
}

// jsonDocument is the wire form written by JSONWriter.
type jsonDocument struct {
	Title   string               `json:"title,omitempty"`
	Stories []model.TextFragment `json:"stories"`
	Images  []model.ImageMarker  `json:"images"`
}

// Write outputs the model in JSON format.
func (w *JSONWriter) Write(m *model.ContentModel) (int, error) {
	if m == nil {
		return 0, ErrNilModel
	}

	doc := jsonDocument{
		Title:   w.documentName(),
		Stories: m.Fragments(),
		Images:  m.Markers(),
	}
	if doc.Stories == nil {
		doc.Stories = []model.TextFragment{}
	}
	if doc.Images == nil {
		doc.Images = []model.ImageMarker{}
	}

	var data []byte
	var err error
	if w.indent != "" {
		data, err = json.MarshalIndent(doc, "", w.indent)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
