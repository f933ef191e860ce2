package idml

import (
	"regexp"
	"strings"
)

// whitespaceClass is every character Clean treats as whitespace: ASCII
// whitespace, NEL, the Unicode space separators, the paragraph separator and
// the zero-width no-break space that InDesign leaves behind as a BOM.
const whitespaceClass = `[\s\v\x{85}\p{Zs}\x{2029}\x{FEFF}]`

// markupRule is one removal applied by Clean.
type markupRule struct {
	name    string
	pattern *regexp.Regexp
}

// markupRules are applied in order, repeatedly, until the text stops changing.
var markupRules = []markupRule{
	{"content wrapper", regexp.MustCompile(`</?Content>`)},
	{"paragraph style range", regexp.MustCompile(`<ParagraphStyleRange(?:` + whitespaceClass + `+[^>]*)?>|</ParagraphStyleRange>`)},
	{"applied paragraph style", regexp.MustCompile(`AppliedParagraphStyle="[^"]*"`)},
	// U+2028 itself, and the three characters its UTF-8 bytes turn into
	// when the story was read as Latin-1.
	{"line separator", regexp.MustCompile(`\x{2028}|\x{00E2}\x{0080}\x{00A8}`)},
}

// whitespaceRun matches a run of one or more whitespace characters.
var whitespaceRun = regexp.MustCompile(whitespaceClass + `+`)

// Clean normalizes a raw fragment of story text into display-ready plain text.
//
// It strips the Content wrapper tags, ParagraphStyleRange tags,
// AppliedParagraphStyle attributes and forced line breaks, then collapses
// whitespace runs to a single space and trims both ends. The removals are
// repeated until nothing changes, so a tag spliced together by an earlier
// removal is removed too and Clean(Clean(s)) == Clean(s) for every s.
//
// An empty result means the fragment carries no text and must be dropped.
func Clean(raw string) string {
	s := raw
	for {
		next := stripMarkup(s)
		if next == s {
			break
		}
		s = next
	}
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripMarkup applies every markup rule once, in order.
func stripMarkup(s string) string {
	for _, rule := range markupRules {
		s = rule.pattern.ReplaceAllString(s, "")
	}
	return s
}
