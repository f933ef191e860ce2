package idml

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/idml2doc/internal/model"
)

// Entry path prefixes and suffix used for classification.
const (
	storyPrefix  = "Stories/"
	spreadPrefix = "Spreads/"
	xmlSuffix    = ".xml"
)

// DefaultConcurrency is the default number of entries decoded at once.
const DefaultConcurrency = 4

// Order selects the sequence in which story and spread entries are walked.
type Order string

const (
	// OrderArchive walks entries in ZIP enumeration order.
	OrderArchive Order = "archive"

	// OrderDesignMap walks stories and spreads in designmap.xml order.
	OrderDesignMap Order = "designmap"
)

// ParseOrder converts a user-supplied order name. The empty string selects
// OrderArchive.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderArchive:
		return OrderArchive, nil
	case OrderDesignMap:
		return OrderDesignMap, nil
	default:
		return "", fmt.Errorf("unknown entry order %q (want %q or %q)", s, OrderArchive, OrderDesignMap)
	}
}

// Classify reports whether path names a story, a spread, or neither.
func Classify(path string) model.EntryClass {
	if !strings.HasSuffix(path, xmlSuffix) {
		return model.EntryIgnored
	}
	switch {
	case strings.HasPrefix(path, storyPrefix):
		return model.EntryStory
	case strings.HasPrefix(path, spreadPrefix):
		return model.EntrySpread
	default:
		return model.EntryIgnored
	}
}

// Result is the outcome of one walk.
type Result struct {
	// Fragments holds every story fragment, in entry order.
	Fragments []model.TextFragment

	// Markers holds every spread marker, in entry order.
	Markers []model.ImageMarker

	// Entries holds one result per story or spread, in entry order.
	Entries []model.EntryResult
}

// Failed returns the entries that could not be extracted.
func (r *Result) Failed() []model.EntryResult {
	var out []model.EntryResult
	for _, e := range r.Entries {
		if e.Failed() {
			out = append(out, e)
		}
	}
	return out
}

// Walker enumerates package entries, dispatches stories and spreads to their
// extractors and accumulates the results in entry order.
//
// A Walker holds only configuration and can be reused across walks.
type Walker struct {
	concurrency int
	strict      bool
	order       Order
	logger      *slog.Logger
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithConcurrency sets how many entries may be decoded at once.
// Values below 1 keep the default.
func WithConcurrency(n int) WalkerOption {
	return func(w *Walker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithStrict makes the first failing entry abort the walk.
// By default a failing entry is recorded and skipped.
func WithStrict(strict bool) WalkerOption {
	return func(w *Walker) {
		w.strict = strict
	}
}

// WithOrder selects the entry order.
func WithOrder(order Order) WalkerOption {
	return func(w *Walker) {
		if order != "" {
			w.order = order
		}
	}
}

// WithWalkerLogger sets a custom logger.
func WithWalkerLogger(logger *slog.Logger) WalkerOption {
	return func(w *Walker) {
		w.logger = logger
	}
}

// NewWalker creates a Walker with the given options.
func NewWalker(opts ...WalkerOption) *Walker {
	w := &Walker{
		concurrency: DefaultConcurrency,
		order:       OrderArchive,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Walk extracts every story and spread among entries.
//
// Entries are decoded concurrently, but each result is stored in the slot of
// its entry and the slots are read back in order, so the fragment and marker
// sequences match entry order however the decodes are scheduled.
//
// In strict mode the first failure is returned and no result is produced.
// Otherwise Walk only fails when ctx is cancelled.
func (w *Walker) Walk(ctx context.Context, entries []Entry) (*Result, error) {
	if w.order == OrderDesignMap {
		entries = w.designMapOrder(ctx, entries)
	}

	slots := make([]*model.EntryResult, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for i, entry := range entries {
		class := Classify(entry.Path())
		if class == model.EntryIgnored {
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res := w.extract(gctx, entry, class)
			slots[i] = &res

			if res.Err != nil {
				if w.strict {
					return res.Err
				}
				w.logger.Warn("skipping entry",
					"entry", res.Path,
					"class", class.String(),
					"error", res.Err,
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	for _, slot := range slots {
		if slot == nil {
			continue
		}
		res.Entries = append(res.Entries, *slot)
		res.Fragments = append(res.Fragments, slot.Fragments...)
		res.Markers = append(res.Markers, slot.Markers...)
	}

	w.logger.Debug("walk completed",
		"entries", len(res.Entries),
		"fragments", len(res.Fragments),
		"markers", len(res.Markers),
		"failed", len(res.Failed()),
	)

	return res, nil
}

// extract decodes one entry and runs the extractor for its class.
func (w *Walker) extract(ctx context.Context, entry Entry, class model.EntryClass) model.EntryResult {
	path := entry.Path()

	text, err := entry.Text(ctx)
	if err != nil {
		if !errors.Is(err, ErrEntryDecode) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %s: %w", ErrEntryDecode, path, err)
		}
		return model.NewFailedEntryResult(path, class, err)
	}

	switch class {
	case model.EntryStory:
		fragments, err := ExtractStory(text)
		if err != nil {
			return model.NewFailedEntryResult(path, class, fmt.Errorf("%s: %w", path, err))
		}
		for i := range fragments {
			fragments[i].Entry = path
		}
		w.logger.Debug("story extracted", "entry", path, "fragments", len(fragments))
		return model.NewEntryResult(path, class, fragments, nil)

	default:
		markers := ExtractSpread(text)
		for i := range markers {
			markers[i].Entry = path
		}
		w.logger.Debug("spread extracted", "entry", path, "markers", len(markers))
		return model.NewEntryResult(path, class, nil, markers)
	}
}

// designMapOrder reorders entries by designmap.xml. A missing or malformed
// design map leaves the archive order unchanged.
func (w *Walker) designMapOrder(ctx context.Context, entries []Entry) []Entry {
	for _, e := range entries {
		if e.Path() != DesignMapPath {
			continue
		}
		text, err := e.Text(ctx)
		if err != nil {
			w.logger.Warn("cannot read design map; using archive order", "error", err)
			return entries
		}
		dm, err := ParseDesignMap(text)
		if err != nil {
			w.logger.Warn("cannot parse design map; using archive order", "error", err)
			return entries
		}
		return dm.Order(entries)
	}
	w.logger.Warn("package has no design map; using archive order")
	return entries
}
