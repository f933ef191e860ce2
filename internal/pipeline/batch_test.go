package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/idml2doc/internal/model"
	"github.com/nao1215/idml2doc/internal/render"
)

func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	factory := func(string) *Pipeline { return New() }

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(factory)

		if bp.concurrency != DefaultBatchConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultBatchConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		if bp := NewBatchProcessor(factory, WithConcurrency(5)); bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		if bp := NewBatchProcessor(factory, WithConcurrency(0)); bp.concurrency != DefaultBatchConcurrency {
			t.Errorf("expected default concurrency, got %d", bp.concurrency)
		}
	})
}

// processAll runs the batch and collects the conversions by source index.
func processAll(ctx context.Context, bp *BatchProcessor, sources []string) ([]*model.Conversion, error) {
	results := make([]*model.Conversion, len(sources))
	err := bp.ProcessBatchWithCallback(ctx, sources, func(conv *model.Conversion, index int) {
		results[index] = conv
	})
	return results, err
}

func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("maintains result order", func(t *testing.T) {
		t.Parallel()

		// Earlier packages take longer so they finish last.
		delays := map[string]time.Duration{
			"/a/first.idml":  60 * time.Millisecond,
			"/a/second.idml": 30 * time.Millisecond,
			"/a/third.idml":  0,
		}

		bp := NewBatchProcessor(func(source string) *Pipeline {
			p := New(WithLogger(quietLogger()))
			p.AddStep(&mockStep{name: "sleep", doFunc: func(context.Context, *Pass) error {
				time.Sleep(delays[source])
				return nil
			}})
			return p
		}, WithConcurrency(3), WithBatchLogger(quietLogger()))

		sources := []string{"/a/first.idml", "/a/second.idml", "/a/third.idml"}
		results, err := processAll(context.Background(), bp, sources)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, conv := range results {
			if conv == nil || conv.Source != sources[i] {
				t.Errorf("result[%d] = %+v, want source %q", i, conv, sources[i])
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		var mu sync.Mutex

		bp := NewBatchProcessor(func(string) *Pipeline {
			p := New(WithLogger(quietLogger()))
			p.AddStep(&mockStep{name: "count", doFunc: func(context.Context, *Pass) error {
				n := current.Add(1)
				mu.Lock()
				if n > peak.Load() {
					peak.Store(n)
				}
				mu.Unlock()
				time.Sleep(20 * time.Millisecond)
				current.Add(-1)
				return nil
			}})
			return p
		}, WithConcurrency(2), WithBatchLogger(quietLogger()))

		sources := make([]string, 8)
		for i := range sources {
			sources[i] = "pkg.idml"
		}

		if _, err := processAll(context.Background(), bp, sources); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("peak concurrency %d, want <= 2", peak.Load())
		}
	})

	t.Run("continues after individual failure", func(t *testing.T) {
		t.Parallel()

		errBroken := errors.New("broken package")
		bp := NewBatchProcessor(func(source string) *Pipeline {
			p := New(WithLogger(quietLogger()))
			p.AddStep(&mockStep{name: "maybe-fail", doFunc: func(context.Context, *Pass) error {
				if source == "bad.idml" {
					return errBroken
				}
				return nil
			}})
			return p
		}, WithBatchLogger(quietLogger()))

		results, err := processAll(context.Background(), bp, []string{"good.idml", "bad.idml", "other.idml"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if !errors.Is(results[1].Error, errBroken) {
			t.Errorf("result[1].Error = %v", results[1].Error)
		}
		if results[0].Error != nil || results[2].Error != nil {
			t.Errorf("other conversions should succeed: %v, %v", results[0].Error, results[2].Error)
		}
	})

	t.Run("returns error for cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(func(string) *Pipeline { return New(WithLogger(quietLogger())) },
			WithBatchLogger(quietLogger()))

		_, err := processAll(ctx, bp, []string{"a.idml", "b.idml"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("handles empty input", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(string) *Pipeline { return New() }, WithBatchLogger(quietLogger()))
		results, err := processAll(context.Background(), bp, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected no results, got %d", len(results))
		}
	})
}

func TestBatchProcessorWithCallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := make(map[int]string)

	bp := NewBatchProcessor(func(string) *Pipeline { return New(WithLogger(quietLogger())) },
		WithBatchLogger(quietLogger()))

	sources := []string{"a.idml", "b.idml", "c.idml"}
	err := bp.ProcessBatchWithCallback(context.Background(), sources, func(conv *model.Conversion, index int) {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = conv.PackageName
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, s := range sources {
		if seen[i] != s {
			t.Errorf("index %d: got %q, want %q", i, seen[i], s)
		}
	}
}

func TestBatchProcessorDefaultPipeline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeBrochure(t, dir)
	bad := filepath.Join(dir, "notes.xml")

	store := &memoryStore{}
	bp := NewBatchProcessor(func(string) *Pipeline {
		return DefaultPipeline(DefaultPipelineConfig{
			Formats:   []render.Format{render.FormatJSON},
			OutputDir: filepath.Join(dir, "out"),
			Store:     store,
			Logger:    quietLogger(),
		})
	}, WithBatchLogger(quietLogger()))

	results, err := processAll(context.Background(), bp, []string{good, bad})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !results[0].Succeeded() {
		t.Errorf("first conversion failed: %v", results[0].Error)
	}
	if results[1].Succeeded() {
		t.Error("second conversion should fail")
	}
	if want := filepath.Join(dir, "out", "brochure.json"); len(results[0].Outputs) != 1 || results[0].Outputs[0] != want {
		t.Errorf("Outputs = %v, want [%s]", results[0].Outputs, want)
	}
	if len(store.saved) != 1 {
		t.Errorf("saved %d conversions, want 1", len(store.saved))
	}
}
