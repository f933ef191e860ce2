package idml

import (
	"cmp"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// DesignMapPath is the package entry listing the document's parts.
const DesignMapPath = "designmap.xml"

// DesignMap is the part listing of designmap.xml. InDesign writes stories and
// spreads there in document order, which is usually closer to reading order
// than the ZIP enumeration order.
type DesignMap struct {
	// Stories lists story entry paths in the order they appear.
	Stories []string

	// Spreads lists spread entry paths in the order they appear.
	Spreads []string
}

// ParseDesignMap reads the idPkg:Story and idPkg:Spread references of a
// design map. Only the src attributes are used.
func ParseDesignMap(xmlText string) (*DesignMap, error) {
	dec := newXMLDecoder(xmlText)
	dm := &DesignMap{}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrEntryParse, DesignMapPath, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		src := attrValue(start, "src")
		if src == "" {
			continue
		}
		switch start.Name.Local {
		case "Story":
			dm.Stories = append(dm.Stories, src)
		case "Spread":
			dm.Spreads = append(dm.Spreads, src)
		}
	}

	return dm, nil
}

// attrValue returns the value of the attribute with the given local name.
func attrValue(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

// rank returns the position of every listed path, stories first.
func (dm *DesignMap) rank() map[string]int {
	m := make(map[string]int, len(dm.Stories)+len(dm.Spreads))
	for _, p := range append(append([]string(nil), dm.Stories...), dm.Spreads...) {
		if _, exists := m[p]; !exists {
			m[p] = len(m)
		}
	}
	return m
}

// Order returns entries rearranged so that listed stories and spreads come
// first, in design map order, followed by every unlisted entry in its original
// order. The input slice is not modified.
func (dm *DesignMap) Order(entries []Entry) []Entry {
	rank := dm.rank()

	listed := make([]Entry, 0, len(entries))
	var unlisted []Entry
	for _, e := range entries {
		if _, ok := rank[e.Path()]; ok {
			listed = append(listed, e)
		} else {
			unlisted = append(unlisted, e)
		}
	}

	slices.SortStableFunc(listed, func(a, b Entry) int {
		return cmp.Compare(rank[a.Path()], rank[b.Path()])
	})

	return append(listed, unlisted...)
}
