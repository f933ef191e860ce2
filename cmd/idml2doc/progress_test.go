package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nao1215/idml2doc/internal/pipeline"
)

func TestProgressPrinter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   pipeline.Event
		want string
	}{
		{
			name: "started",
			ev:   pipeline.Event{Kind: pipeline.EventStarted, Package: "a.idml", Progress: 25},
			want: "[ 25%] a.idml: reading package\n",
		},
		{
			name: "rendered",
			ev:   pipeline.Event{Kind: pipeline.EventRendered, Package: "a.idml", Progress: 100},
			want: "[100%] a.idml: done\n",
		},
		{
			name: "failed",
			ev:   pipeline.Event{Kind: pipeline.EventFailed, Package: "a.idml", Err: errors.New("bad zip")},
			want: "[FAIL] a.idml: bad zip\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			newProgressPrinter(&buf).Listen(tt.ev)
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
