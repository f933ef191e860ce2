package idml

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"
	"time"
)

// testFile is one entry of an in-memory test package.
type testFile struct {
	name    string
	content string
}

// buildTestZip builds a ZIP archive whose entries appear in the given order.
func buildTestZip(t *testing.T, files []testFile) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range files {
		fw, err := w.Create(f.name)
		if err != nil {
			t.Fatalf("create %s: %v", f.name, err)
		}
		if _, err := fw.Write([]byte(f.content)); err != nil {
			t.Fatalf("write %s: %v", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// buildTestPackage builds a package with a leading mimetype entry followed by files.
func buildTestPackage(t *testing.T, files ...testFile) []byte {
	t.Helper()

	all := append([]testFile{{name: "mimetype", content: expectedMimetype}}, files...)
	return buildTestZip(t, all)
}

// storyXML wraps contents in a minimal story document.
func storyXML(contents ...string) string {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<idPkg:Story xmlns:idPkg="http://ns.adobe.com/AdobeInDesign/idml/1.0/packaging" DOMVersion="18.0">`)
	b.WriteString(`<Story Self="u1d8"><ParagraphStyleRange AppliedParagraphStyle="ParagraphStyle/Body"><CharacterStyleRange>`)
	for _, c := range contents {
		b.WriteString("<Content>")
		b.WriteString(c)
		b.WriteString("</Content>")
	}
	b.WriteString(`</CharacterStyleRange></ParagraphStyleRange></Story></idPkg:Story>`)
	return b.String()
}

// spreadXML wraps link URIs in a minimal spread document.
func spreadXML(uris ...string) string {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<idPkg:Spread xmlns:idPkg="http://ns.adobe.com/AdobeInDesign/idml/1.0/packaging"><Spread Self="ud5">`)
	for _, u := range uris {
		b.WriteString(`<Rectangle><Image><Link Self="ue1" LinkResourceURI="`)
		b.WriteString(u)
		b.WriteString(`"/></Image></Rectangle>`)
	}
	b.WriteString(`</Spread></idPkg:Spread>`)
	return b.String()
}

// fakeEntry is an Entry with a controllable decode delay and error.
type fakeEntry struct {
	path  string
	text  string
	err   error
	delay time.Duration
}

// Path implements Entry.
func (f *fakeEntry) Path() string {
	return f.path
}

// Text implements Entry.
func (f *fakeEntry) Text(ctx context.Context) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// entryPaths returns the paths of entries in order.
func entryPaths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path()
	}
	return out
}
