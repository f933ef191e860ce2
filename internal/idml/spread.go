package idml

import (
	"regexp"

	"golang.org/x/net/html"

	"github.com/nao1215/idml2doc/internal/model"
)

// linkResourcePattern matches the attribute that records a placed image's
// external file. In IDML spreads it only ever appears as an attribute of
// Link elements, so a text scan finds every occurrence.
var linkResourcePattern = regexp.MustCompile(`LinkResourceURI="([^"]*)"`)

// ExtractSpread scans one spread document for linked image paths.
//
// Every occurrence yields its own marker, in order of appearance; duplicates
// are kept. XML character references in the value are resolved. A spread
// without links yields an empty slice.
func ExtractSpread(xmlText string) []model.ImageMarker {
	matches := linkResourcePattern.FindAllStringSubmatch(xmlText, -1)
	markers := make([]model.ImageMarker, 0, len(matches))
	for _, m := range matches {
		markers = append(markers, model.ImageMarker{Path: html.UnescapeString(m[1])})
	}
	return markers
}
