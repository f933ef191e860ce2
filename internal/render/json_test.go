package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nao1215/idml2doc/internal/model"
)

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes stories and images", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithTitle("Brochure")).Write(createTestModel()); err != nil {
			t.Fatal(err)
		}

		var got jsonDocument
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Title != "Brochure" || len(got.Stories) != 2 || len(got.Images) != 2 {
			t.Errorf("decoded = %+v", got)
		}
		if got.Stories[1].Text != "Fish & Chips <today>" {
			t.Errorf("story text = %q", got.Stories[1].Text)
		}
		if got.Images[0].Entry != "Spreads/Spread_u2.xml" {
			t.Errorf("image entry = %q", got.Images[0].Entry)
		}
	})

	t.Run("empty model writes empty arrays", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent("")).Write(model.Assemble(nil, nil)); err != nil {
			t.Fatal(err)
		}
		if got := strings.TrimSpace(buf.String()); got != `{"stories":[],"images":[]}` {
			t.Errorf("output = %s", got)
		}
	})

	t.Run("indented by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestModel()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n  \"stories\"") {
			t.Errorf("expected indented output, got %s", buf.String())
		}
	})
}
