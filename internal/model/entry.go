package model

// EntryClass says how the walker treats a package entry.
type EntryClass int

const (
	// EntryIgnored entries are neither stories nor spreads.
	EntryIgnored EntryClass = iota

	// EntryStory entries hold flowed text (Stories/*.xml).
	EntryStory

	// EntrySpread entries describe pages and their linked images (Spreads/*.xml).
	EntrySpread
)

// String returns the lowercase class name.
func (c EntryClass) String() string {
	switch c {
	case EntryStory:
		return "story"
	case EntrySpread:
		return "spread"
	default:
		return "ignored"
	}
}

// MarshalText implements encoding.TextMarshaler so classes read well in JSON.
func (c EntryClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *EntryClass) UnmarshalText(text []byte) error {
	switch string(text) {
	case "story":
		*c = EntryStory
	case "spread":
		*c = EntrySpread
	default:
		*c = EntryIgnored
	}
	return nil
}

// PackageEntry is one decoded entry of a package.
// It is read-only and lives for a single extraction pass.
type PackageEntry struct {
	// Path is the ZIP-internal path, e.g. "Stories/Story_u1d8.xml".
	Path string

	// Text is the entry content decoded to UTF-8.
	Text string
}

// EntryResult is the tagged outcome of extracting a single story or spread.
// A failed entry contributes nothing to the content model; the reason is kept
// here so the failure can be reported without discarding the whole package.
type EntryResult struct {
	// Path is the ZIP-internal path of the entry.
	Path string `json:"path"`

	// Class is story or spread.
	Class EntryClass `json:"class"`

	// Fragments holds the text fragments extracted from a story entry.
	Fragments []TextFragment `json:"-"`

	// Markers holds the image markers extracted from a spread entry.
	Markers []ImageMarker `json:"-"`

	// FragmentCount and MarkerCount are kept for serialization, since the
	// fragments themselves are stored in the content model.
	FragmentCount int `json:"fragments"`
	MarkerCount   int `json:"markers"`

	// Err is the failure, if any. It is not serialized.
	Err error `json:"-"`

	// ErrorMessage is the string form of Err for JSON output and storage.
	ErrorMessage string `json:"error,omitempty"`
}

// NewEntryResult builds a successful result for the given entry.
func NewEntryResult(path string, class EntryClass, fragments []TextFragment, markers []ImageMarker) EntryResult {
	return EntryResult{
		Path:          path,
		Class:         class,
		Fragments:     fragments,
		Markers:       markers,
		FragmentCount: len(fragments),
		MarkerCount:   len(markers),
	}
}

// NewFailedEntryResult builds a failed result for the given entry.
func NewFailedEntryResult(path string, class EntryClass, err error) EntryResult {
	r := EntryResult{
		Path:  path,
		Class: class,
		Err:   err,
	}
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	return r
}

// Failed reports whether the entry could not be extracted.
func (r EntryResult) Failed() bool {
	return r.Err != nil || r.ErrorMessage != ""
}
