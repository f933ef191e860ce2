package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"idml2doc version ", "commit: ", "built: "} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestVersionHelpers(t *testing.T) {
	t.Parallel()

	if getVersion() == "" {
		t.Error("getVersion() returned empty string")
	}
	if getCommit() == "" {
		t.Error("getCommit() returned empty string")
	}
	if len(getCommit()) > 7 && getCommit() != commit {
		t.Errorf("getCommit() = %q, want at most 7 characters", getCommit())
	}
	if getDate() == "" {
		t.Error("getDate() returned empty string")
	}
	if buildSetting("no.such.setting") != "" {
		t.Error("unknown build setting should be empty")
	}
}
