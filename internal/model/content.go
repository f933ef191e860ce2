package model

import (
	"encoding/json"
)

// TextFragment is one cleaned run of prose taken from a story entry.
type TextFragment struct {
	// Text is the display-ready plain text. It is never empty.
	Text string `json:"text"`

	// Entry is the package path of the story the fragment came from.
	Entry string `json:"entry,omitempty"`
}

// ImageMarker is one linked image reference taken from a spread entry.
type ImageMarker struct {
	// Path is the resource link path exactly as recorded in the spread
	// (after XML character references are resolved).
	Path string `json:"path"`

	// Entry is the package path of the spread the marker came from.
	Entry string `json:"entry,omitempty"`
}

// ContentModel is the ordered result of one extraction pass.
// It holds text fragments and image markers as two parallel sequences;
// the sequences are never interleaved.
//
// A ContentModel is immutable once assembled. Accessors return copies,
// so callers cannot reorder or mutate the sequences a renderer sees.
type ContentModel struct {
	fragments []TextFragment
	markers   []ImageMarker
}

// Assemble wraps the accumulated fragments and markers into a ContentModel.
// Both sequences are copied as-is: no reordering, filtering or mutation.
func Assemble(fragments []TextFragment, markers []ImageMarker) *ContentModel {
	return &ContentModel{
		fragments: append([]TextFragment(nil), fragments...),
		markers:   append([]ImageMarker(nil), markers...),
	}
}

// Fragments returns a copy of the text fragment sequence.
func (c *ContentModel) Fragments() []TextFragment {
	if c == nil {
		return nil
	}
	return append([]TextFragment(nil), c.fragments...)
}

// Markers returns a copy of the image marker sequence.
func (c *ContentModel) Markers() []ImageMarker {
	if c == nil {
		return nil
	}
	return append([]ImageMarker(nil), c.markers...)
}

// Texts returns the fragment texts in order.
func (c *ContentModel) Texts() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.fragments))
	for i, f := range c.fragments {
		out[i] = f.Text
	}
	return out
}

// Paths returns the marker paths in order.
func (c *ContentModel) Paths() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.markers))
	for i, m := range c.markers {
		out[i] = m.Path
	}
	return out
}

// FragmentCount returns the number of text fragments.
func (c *ContentModel) FragmentCount() int {
	if c == nil {
		return 0
	}
	return len(c.fragments)
}

// MarkerCount returns the number of image markers.
func (c *ContentModel) MarkerCount() int {
	if c == nil {
		return 0
	}
	return len(c.markers)
}

// IsEmpty reports whether both sequences are empty.
func (c *ContentModel) IsEmpty() bool {
	return c.FragmentCount() == 0 && c.MarkerCount() == 0
}

// contentModelJSON is the wire form of ContentModel.
type contentModelJSON struct {
	Stories []TextFragment `json:"stories"`
	Images  []ImageMarker  `json:"images"`
}

// MarshalJSON implements json.Marshaler.
// Empty sequences are written as [] rather than null.
func (c *ContentModel) MarshalJSON() ([]byte, error) {
	w := contentModelJSON{
		Stories: c.Fragments(),
		Images:  c.Markers(),
	}
	if w.Stories == nil {
		w.Stories = []TextFragment{}
	}
	if w.Images == nil {
		w.Images = []ImageMarker{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. It is used when a stored
// conversion is loaded back from the history database.
func (c *ContentModel) UnmarshalJSON(data []byte) error {
	var w contentModelJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.fragments = w.Stories
	c.markers = w.Images
	return nil
}
