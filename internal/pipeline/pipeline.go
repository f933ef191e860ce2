package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/idml2doc/internal/idml"
	"github.com/nao1215/idml2doc/internal/model"
)

// Pass carries the state of one conversion between steps.
type Pass struct {
	// Conversion is the record filled in by the steps.
	Conversion *model.Conversion

	// Archive is the opened package, set by the open step.
	Archive *idml.Archive

	// Result is the walk result, set by the walk step.
	Result *idml.Result
}

// NewPass creates a Pass for the package at source.
func NewPass(source string) *Pass {
	return &Pass{Conversion: model.NewConversion(source)}
}

// Close releases the archive, if one was opened.
func (p *Pass) Close() error {
	if p.Archive == nil {
		return nil
	}
	return p.Archive.Close()
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each one receiving the Pass filled in
// by the steps before it.
type Step interface {
	// Do executes the pipeline step.
	// A returned error ends the conversion; problems that should not
	// end it are recorded in the pass instead.
	Do(ctx context.Context, pass *Pass) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// finally contains steps that run after steps whether or not they
	// succeeded, e.g. recording the conversion in the history.
	finally []Step

	// listeners receive lifecycle events.
	listeners []Listener

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithListener registers a listener for lifecycle events.
// It may be given several times.
func WithListener(l Listener) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.listeners = append(p.listeners, l)
		}
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinally appends a step that runs after the regular steps, even when
// one of them failed. Errors of final steps are logged and do not change
// the outcome of the conversion.
func (p *Pipeline) AddFinally(step Step) {
	p.finally = append(p.finally, step)
}

// Execute runs all pipeline steps in sequence and closes the pass archive
// afterwards. It emits EventStarted first, then the event of every
// Milestone step that succeeds, or EventFailed with the first error.
//
// Cancellation is checked before each step; steps handle their own
// cancellation while running.
func (p *Pipeline) Execute(ctx context.Context, pass *Pass) error {
	conv := pass.Conversion
	defer func() {
		if err := pass.Close(); err != nil {
			p.logger.Debug("failed to close package", "package", conv.Source, "error", err)
		}
	}()

	p.logger.Debug("conversion started", "package", conv.Source, "steps", p.StepNames())
	p.emit(conv, EventStarted, nil)

	err := p.run(ctx, pass)
	if err != nil {
		conv.Error = err
		conv.ErrorMessage = err.Error()
		p.emit(conv, EventFailed, err)
	}

	for _, step := range p.finally {
		if ferr := step.Do(ctx, pass); ferr != nil {
			p.logger.Warn("final step failed",
				"step", step.Name(),
				"package", conv.Source,
				"error", ferr,
			)
			continue
		}
		conv.PerformedSteps = append(conv.PerformedSteps, step.Name())
	}

	return err
}

func (p *Pipeline) run(ctx context.Context, pass *Pass) error {
	conv := pass.Conversion

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"package", conv.Source,
		)

		if err := step.Do(ctx, pass); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"package", conv.Source,
				"error", err,
			)
			return err
		}

		conv.PerformedSteps = append(conv.PerformedSteps, step.Name())

		if m, ok := step.(Milestone); ok {
			p.emit(conv, m.Event(), nil)
		}
	}

	return nil
}

func (p *Pipeline) emit(conv *model.Conversion, kind EventKind, err error) {
	ev := Event{
		Kind:     kind,
		Source:   conv.Source,
		Package:  conv.PackageName,
		Progress: kind.Progress(),
		Err:      err,
	}
	for _, l := range p.listeners {
		l(ev)
	}
}

// StepNames returns the names of all steps in execution order,
// final steps included.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps)+len(p.finally))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finally {
		names = append(names, step.Name())
	}
	return names
}
