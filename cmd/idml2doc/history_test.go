package main

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/sha3"
)

// convertForHistory converts a test package into a fresh history database
// and returns the database directory.
func convertForHistory(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	pkg := writePackage(t, dir, "brochure.idml")
	cfgPath := writeConfig(t, dir, "defaults: {}\n")
	dbDir := filepath.Join(dir, "db")

	if _, stderr, err := runRoot(t, "convert", "-c", cfgPath, "--db-dir", dbDir, "-q", "-f", "json", pkg); err != nil {
		t.Fatalf("convert failed: %v\n%s", err, stderr)
	}
	return dbDir
}

func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	for _, name := range []string{"list", "list-packages", "show", "hash", "format", "db-dir"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
	if cmd.Args == nil {
		t.Error("expected Args validator")
	}
}

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	// Subtests share one database file and run in sequence.
	dbDir := convertForHistory(t)

	t.Run("lists packages", func(t *testing.T) {
		out, _, err := runRoot(t, "history", "--db-dir", dbDir, "-L")
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(out, "Converted packages (1)") || !strings.Contains(out, "- brochure.idml") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("lists conversions of a package", func(t *testing.T) {
		out, _, err := runRoot(t, "history", "--db-dir", dbDir, "--list", "brochure.idml")
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(out, "Conversion history for brochure.idml (1 conversions)") {
			t.Errorf("output = %q", out)
		}
		if !strings.Contains(out, " ok ") {
			t.Errorf("status missing: %q", out)
		}
	})

	t.Run("shows a conversion by id", func(t *testing.T) {
		out, _, err := runRoot(t, "history", "--db-dir", dbDir, "--show", "1")
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		for _, want := range []string{"Package:   brochure.idml", "SHA3-256:", "1 stories, 1 spreads", "2 text fragments, 1 image links", "brochure.json"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("renders stored content", func(t *testing.T) {
		out, _, err := runRoot(t, "history", "--db-dir", dbDir, "-f", "markdown", "brochure.idml")
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		for _, want := range []string{"## Stories", "Hello", "## Images", "`images/a.png`"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("rejects binary format", func(t *testing.T) {
		if _, _, err := runRoot(t, "history", "--db-dir", dbDir, "-f", "docx", "brochure.idml"); err == nil {
			t.Error("expected error for docx")
		}
	})

	t.Run("unknown package", func(t *testing.T) {
		_, _, err := runRoot(t, "history", "--db-dir", dbDir, "flyer.idml")
		if err == nil || !strings.Contains(err.Error(), "no conversion history for flyer.idml") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, _, err := runRoot(t, "history", "--db-dir", dbDir, "--show", "99")
		if err == nil || !strings.Contains(err.Error(), "no conversion with ID 99") {
			t.Errorf("error = %v", err)
		}
	})
}

func TestHistoryCmd_Fingerprint(t *testing.T) {
	t.Parallel()

	// Subtests share one database file and run in sequence.
	dir := t.TempDir()
	original := writePackage(t, dir, "brochure.idml")
	data, err := os.ReadFile(original)
	if err != nil {
		t.Fatal(err)
	}
	renamed := filepath.Join(dir, "copy.idml")
	if err := os.WriteFile(renamed, data, 0o600); err != nil {
		t.Fatal(err)
	}
	sum := sha3.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	cfgPath := writeConfig(t, dir, "defaults: {}\n")
	dbDir := filepath.Join(dir, "db")
	if _, stderr, err := runRoot(t, "convert", "-c", cfgPath, "--db-dir", dbDir, "-q", "-f", "json", original, renamed); err != nil {
		t.Fatalf("convert failed: %v\n%s", err, stderr)
	}

	t.Run("lists conversions by fingerprint", func(t *testing.T) {
		out, _, err := runRoot(t, "history", "--db-dir", dbDir, "--hash", strings.ToUpper(hash))
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		for _, want := range []string{"(2 conversions)", original, renamed} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("shows other sources of the same package", func(t *testing.T) {
		out, _, err := runRoot(t, "history", "--db-dir", dbDir, "brochure.idml")
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(out, "Seen before as:\n  - "+renamed) {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("unknown fingerprint", func(t *testing.T) {
		out, _, err := runRoot(t, "history", "--db-dir", dbDir, "--hash", "deadbeef")
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(out, "No conversion found for fingerprint deadbeef") {
			t.Errorf("output = %q", out)
		}
	})
}

func TestHistoryCmd_Errors(t *testing.T) {
	t.Parallel()

	t.Run("requires a package", func(t *testing.T) {
		t.Parallel()

		_, _, err := runRoot(t, "history", "--db-dir", t.TempDir())
		if err == nil || !strings.Contains(err.Error(), "package name is required") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("missing database", func(t *testing.T) {
		t.Parallel()

		_, _, err := runRoot(t, "history", "--db-dir", t.TempDir(), "-L")
		if err == nil || !strings.Contains(err.Error(), "no conversion history yet") {
			t.Errorf("error = %v", err)
		}
	})
}
