package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/nao1215/idml2doc/internal/pipeline"
)

// progressPrinter prints one line per lifecycle event.
// It is shared by concurrent conversions.
type progressPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

// newProgressPrinter creates a progressPrinter writing to out.
func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out}
}

// Listen implements pipeline.Listener.
func (p *progressPrinter) Listen(ev pipeline.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.Kind == pipeline.EventFailed {
		fmt.Fprintf(p.out, "[FAIL] %s: %v\n", ev.Package, ev.Err)
		return
	}
	fmt.Fprintf(p.out, "[%3d%%] %s: %s\n", ev.Progress, ev.Package, describeEvent(ev.Kind))
}

// describeEvent returns the progress text for an event.
func describeEvent(kind pipeline.EventKind) string {
	switch kind {
	case pipeline.EventStarted:
		return "reading package"
	case pipeline.EventArchiveOpened:
		return "extracting stories and spreads"
	case pipeline.EventExtracted:
		return "rendering"
	case pipeline.EventRendered:
		return "done"
	default:
		return string(kind)
	}
}
