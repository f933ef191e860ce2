package pipeline

// EventKind identifies a point in the lifecycle of one conversion.
type EventKind string

// Lifecycle events, in the order a successful conversion emits them.
const (
	EventStarted       EventKind = "started"
	EventArchiveOpened EventKind = "archiveOpened"
	EventExtracted     EventKind = "extracted"
	EventRendered      EventKind = "rendered"
	EventFailed        EventKind = "failed"
)

// Progress returns the completion percentage shown for the event.
// A failed conversion reports 0.
func (k EventKind) Progress() int {
	switch k {
	case EventStarted:
		return 25
	case EventArchiveOpened:
		return 50
	case EventExtracted:
		return 75
	case EventRendered:
		return 100
	default:
		return 0
	}
}

// Event is delivered to listeners as a conversion progresses.
type Event struct {
	// Kind is the lifecycle point reached.
	Kind EventKind

	// Source is the package path as given by the user.
	Source string

	// Package is the package file name.
	Package string

	// Progress is Kind.Progress(), copied for convenience.
	Progress int

	// Err is set for EventFailed.
	Err error
}

// Listener receives lifecycle events. Listeners of a BatchProcessor are
// called from several goroutines and must be safe for concurrent use.
type Listener func(Event)

// Milestone is implemented by steps whose completion is reported to
// listeners as an event.
type Milestone interface {
	// Event returns the event emitted after the step succeeds.
	Event() EventKind
}
