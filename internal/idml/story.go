package idml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/idml2doc/internal/model"
)

// contentElement is the story element that carries prose.
const contentElement = "Content"

// ExtractStory parses one story document and returns its text fragments in
// document order.
//
// Every Content element contributes its direct character data, trimmed and
// passed through Clean. Elements that are blank, before or after cleaning,
// contribute nothing. Malformed XML yields no fragments and an error wrapping
// ErrEntryParse; fragments read before the syntax error are discarded.
func ExtractStory(xmlText string) ([]model.TextFragment, error) {
	dec := newXMLDecoder(xmlText)

	var (
		fragments []model.TextFragment
		buf       strings.Builder
		depth     int // 0 outside Content, 1 directly inside, >1 in a child element
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEntryParse, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth > 0 {
				depth++
				continue
			}
			if t.Name.Local == contentElement {
				depth = 1
				buf.Reset()
			}

		case xml.CharData:
			if depth == 1 {
				buf.Write(t)
			}

		case xml.EndElement:
			if depth == 0 {
				continue
			}
			depth--
			if depth > 0 {
				continue
			}
			text := strings.TrimSpace(buf.String())
			if text == "" {
				continue
			}
			if cleaned := Clean(text); cleaned != "" {
				fragments = append(fragments, model.TextFragment{Text: cleaned})
			}
		}
	}

	return fragments, nil
}

// newXMLDecoder returns a strict decoder over already-decoded text.
// The text is UTF-8 by the time it gets here, so any encoding named in the
// XML declaration is accepted as-is.
func newXMLDecoder(text string) *xml.Decoder {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return dec
}
