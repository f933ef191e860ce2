package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/idml2doc/internal/model"
)

// DefaultBatchConcurrency is the number of packages converted at once when
// WithConcurrency is not given.
const DefaultBatchConcurrency = 2

// PipelineFactory creates the pipeline for one package. It is called once per
// package so that per-package settings can be applied and no state leaks
// between conversions.
type PipelineFactory func(source string) *Pipeline

// BatchProcessor converts multiple packages concurrently.
// It uses errgroup to manage goroutines and respect the concurrency limit.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each package.
	pipelineFactory PipelineFactory

	// concurrency is the maximum number of concurrent conversions.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent conversions.
// Non-positive values keep DefaultBatchConcurrency.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory PipelineFactory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultBatchConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatchWithCallback converts the packages at sources concurrently and
// calls callback for each finished conversion with the index of its source.
// A failed conversion carries its error and does not stop the others. The
// error return is only set when ctx is cancelled. The callback is called
// from the goroutine that ran the conversion, so it must be safe for
// concurrent use if it touches shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sources []string,
	callback func(conv *model.Conversion, index int),
) error {
	bp.logger.Debug("starting batch processing",
		"total_packages", len(sources),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, source := range sources {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			pass := NewPass(source)
			if err := bp.pipelineFactory(source).Execute(gctx, pass); err != nil {
				// Recorded in the conversion; the other packages carry on.
				bp.logger.Warn("conversion failed",
					"package", source,
					"error", err,
				)
			}

			callback(pass.Conversion, i)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	bp.logger.Debug("batch processing complete",
		"total_packages", len(sources),
		"elapsed", time.Since(startTime),
	)

	return err
}
