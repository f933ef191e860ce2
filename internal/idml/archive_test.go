package idml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestValidateFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"lowercase", "report.idml", false},
		{"mixed case", "report.IDML", false},
		{"with directory", "/tmp/work/brochure.Idml", false},
		{"windows path", `C:\work\brochure.idml`, false},
		{"xml", "report.xml", true},
		{"no extension", "report", true},
		{"extension only in directory", "report.idml/contents", true},
		{"double extension", "report.idml.zip", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateFilename(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInputKind) {
					t.Errorf("ValidateFilename(%q) = %v; want ErrInvalidInputKind", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateFilename(%q) unexpected error: %v", tt.input, err)
			}
		})
	}
}

func TestOpenBytes(t *testing.T) {
	t.Parallel()

	t.Run("exposes entries in archive order", func(t *testing.T) {
		t.Parallel()

		data := buildTestPackage(t,
			testFile{name: "designmap.xml", content: "<Document/>"},
			testFile{name: "Stories/Story_b.xml", content: storyXML("b")},
			testFile{name: "Stories/Story_a.xml", content: storyXML("a")},
			testFile{name: "Spreads/Spread_1.xml", content: spreadXML("x.png")},
		)

		a, err := OpenBytes(data)
		if err != nil {
			t.Fatalf("OpenBytes: %v", err)
		}
		defer a.Close()

		want := []string{"mimetype", "designmap.xml", "Stories/Story_b.xml", "Stories/Story_a.xml", "Spreads/Spread_1.xml"}
		if got := entryPaths(a.Entries()); !slices.Equal(got, want) {
			t.Errorf("entries = %q, want %q", got, want)
		}
		if w := a.Warnings(); len(w) != 0 {
			t.Errorf("expected no warnings, got %q", w)
		}
	})

	t.Run("decodes entry text", func(t *testing.T) {
		t.Parallel()

		data := buildTestPackage(t, testFile{name: "Stories/Story_a.xml", content: "héllo"})
		a, err := OpenBytes(data)
		if err != nil {
			t.Fatalf("OpenBytes: %v", err)
		}

		text, err := a.Entries()[1].Text(context.Background())
		if err != nil {
			t.Fatalf("Text: %v", err)
		}
		if text != "héllo" {
			t.Errorf("text = %q, want %q", text, "héllo")
		}
	})

	t.Run("not a zip", func(t *testing.T) {
		t.Parallel()

		_, err := OpenBytes([]byte("this is not a zip archive"))
		if !errors.Is(err, ErrArchiveOpen) {
			t.Errorf("expected ErrArchiveOpen, got %v", err)
		}
	})

	t.Run("entries slice is a copy", func(t *testing.T) {
		t.Parallel()

		a, err := OpenBytes(buildTestPackage(t))
		if err != nil {
			t.Fatalf("OpenBytes: %v", err)
		}
		entries := a.Entries()
		entries[0] = &fakeEntry{path: "changed"}
		if a.Entries()[0].Path() != "mimetype" {
			t.Error("mutating the returned slice changed the archive")
		}
	})
}

func TestArchive_MimetypeWarnings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		files    []testFile
		contains string
	}{
		{"empty archive", nil, "empty ZIP archive"},
		{"mimetype not first", []testFile{{"Stories/a.xml", "<Story/>"}, {"mimetype", expectedMimetype}}, "not \"mimetype\""},
		{"wrong media type", []testFile{{"mimetype", "application/zip"}}, "unexpected mimetype"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, err := OpenBytes(buildTestZip(t, tt.files))
			if err != nil {
				t.Fatalf("OpenBytes: %v", err)
			}
			warnings := a.Warnings()
			if len(warnings) != 1 {
				t.Fatalf("expected 1 warning, got %q", warnings)
			}
			if !strings.Contains(warnings[0], tt.contains) {
				t.Errorf("warning %q does not contain %q", warnings[0], tt.contains)
			}
		})
	}
}

func TestArchive_EntrySizeLimit(t *testing.T) {
	t.Parallel()

	data := buildTestZip(t, []testFile{
		{"Stories/small.xml", "tiny"},
		{"Stories/big.xml", strings.Repeat("x", 64)},
	})

	a, err := OpenBytes(data, WithMaxEntrySize(16))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}

	entries := a.Entries()
	if _, err := entries[0].Text(context.Background()); err != nil {
		t.Errorf("small entry: unexpected error: %v", err)
	}
	if _, err := entries[1].Text(context.Background()); !errors.Is(err, ErrEntryTooLarge) {
		t.Errorf("big entry: expected ErrEntryTooLarge, got %v", err)
	}
}

func TestArchive_TextHonoursContext(t *testing.T) {
	t.Parallel()

	a, err := OpenBytes(buildTestPackage(t, testFile{"Stories/a.xml", "<Story/>"}))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.Entries()[1].Text(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("opens a package file and closes twice", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "brochure.idml")
		if err := os.WriteFile(path, buildTestPackage(t), 0o600); err != nil {
			t.Fatal(err)
		}

		a, err := Open(path)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if err := a.Close(); err != nil {
			t.Errorf("first Close: %v", err)
		}
		if err := a.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing.idml"))
		if !errors.Is(err, ErrArchiveOpen) {
			t.Errorf("expected ErrArchiveOpen, got %v", err)
		}
	})
}

func TestDecodeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"plain utf-8", []byte("<a>ü</a>"), "<a>ü</a>"},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "<a/>"...), "<a/>"},
		{"utf-16le bom", []byte{0xFF, 0xFE, '<', 0, 'a', 0, '/', 0, '>', 0}, "<a/>"},
		{"utf-16be bom", []byte{0xFE, 0xFF, 0, '<', 0, 'a', 0, '/', 0, '>'}, "<a/>"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := decodeText(tt.data)
			if err != nil {
				t.Fatalf("decodeText: %v", err)
			}
			if got != tt.want {
				t.Errorf("decodeText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsSafePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"Stories/Story_u1.xml", true},
		{"mimetype", true},
		{"Stories/../designmap.xml", true},
		{"../evil.xml", false},
		{"Stories/../../evil.xml", false},
		{"/etc/passwd", false},
		{"..", false},
	}

	for _, tt := range tests {
		if got := isSafePath(tt.path); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
