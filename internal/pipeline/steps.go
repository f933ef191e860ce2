package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/idml2doc/internal/idml"
	"github.com/nao1215/idml2doc/internal/model"
	"github.com/nao1215/idml2doc/internal/render"
)

// ValidateStep rejects inputs whose file name does not carry the .idml
// extension before the file is touched.
type ValidateStep struct{}

// NewValidateStep creates a new validation step.
func NewValidateStep() *ValidateStep {
	return &ValidateStep{}
}

// Name returns the step name.
func (s *ValidateStep) Name() string {
	return "validate"
}

// Do executes the validation step.
func (s *ValidateStep) Do(_ context.Context, pass *Pass) error {
	return idml.ValidateFilename(pass.Conversion.PackageName)
}

// OpenStep reads the package file, fingerprints it and opens it as an
// archive. Archive warnings are copied to the conversion.
type OpenStep struct {
	// maxEntrySize is the decompression limit for one entry.
	maxEntrySize int64

	// logger for structured logging.
	logger *slog.Logger
}

// OpenStepOption configures an OpenStep.
type OpenStepOption func(*OpenStep)

// WithMaxEntrySize sets the decompression limit for one entry.
func WithMaxEntrySize(n int64) OpenStepOption {
	return func(s *OpenStep) {
		s.maxEntrySize = n
	}
}

// WithOpenLogger sets a custom logger for the open step.
func WithOpenLogger(logger *slog.Logger) OpenStepOption {
	return func(s *OpenStep) {
		s.logger = logger
	}
}

// NewOpenStep creates a new open step.
func NewOpenStep(opts ...OpenStepOption) *OpenStep {
	s := &OpenStep{
		maxEntrySize: idml.DefaultMaxEntrySize,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *OpenStep) Name() string {
	return "open"
}

// Event reports EventArchiveOpened once the package is open.
func (s *OpenStep) Event() EventKind {
	return EventArchiveOpened
}

// Do executes the open step.
func (s *OpenStep) Do(_ context.Context, pass *Pass) error {
	conv := pass.Conversion

	data, err := os.ReadFile(conv.Source)
	if err != nil {
		return fmt.Errorf("%w: %w", idml.ErrArchiveOpen, err)
	}

	sum := sha3.Sum256(data)
	conv.PackageHash = hex.EncodeToString(sum[:])
	conv.PackageSize = int64(len(data))

	archive, err := idml.OpenBytes(data, idml.WithMaxEntrySize(s.maxEntrySize))
	if err != nil {
		return fmt.Errorf("%s: %w", conv.PackageName, err)
	}
	pass.Archive = archive

	for _, w := range archive.Warnings() {
		s.logger.Warn("package warning", "package", conv.Source, "warning", w)
		conv.AddWarning(w)
	}

	s.logger.Debug("package opened",
		"package", conv.Source,
		"entries", len(archive.Entries()),
		"sha3", conv.PackageHash,
	)
	return nil
}

// WalkStep runs the package walker over the opened archive.
type WalkStep struct {
	walker *idml.Walker
}

// NewWalkStep creates a new walk step with the given walker options.
func NewWalkStep(opts ...idml.WalkerOption) *WalkStep {
	return &WalkStep{walker: idml.NewWalker(opts...)}
}

// Name returns the step name.
func (s *WalkStep) Name() string {
	return "walk"
}

// Do executes the walk step.
func (s *WalkStep) Do(ctx context.Context, pass *Pass) error {
	if pass.Archive == nil {
		return ErrNoArchive
	}

	res, err := s.walker.Walk(ctx, pass.Archive.Entries())
	if err != nil {
		return err
	}

	pass.Result = res
	pass.Conversion.Entries = res.Entries
	return nil
}

// AssembleStep builds the content model from the walk result.
type AssembleStep struct{}

// NewAssembleStep creates a new assemble step.
func NewAssembleStep() *AssembleStep {
	return &AssembleStep{}
}

// Name returns the step name.
func (s *AssembleStep) Name() string {
	return "assemble"
}

// Event reports EventExtracted once the content model exists.
func (s *AssembleStep) Event() EventKind {
	return EventExtracted
}

// Do executes the assemble step.
func (s *AssembleStep) Do(_ context.Context, pass *Pass) error {
	if pass.Result == nil {
		return ErrNoResult
	}
	pass.Conversion.Model = model.Assemble(pass.Result.Fragments, pass.Result.Markers)
	return nil
}

// RenderStep writes the content model in every configured format.
// Outputs go to files named after the package, or to a single stream
// when one is set with WithRenderStdout.
type RenderStep struct {
	// formats lists the output formats to write.
	formats []render.Format

	// outputDir is where files are written. Empty means next to the package.
	outputDir string

	// stdout receives the rendering instead of files when non-nil.
	stdout io.Writer

	// title is the body heading. Empty means none; the package base name still
	// names the document in its metadata.
	title string

	// imageClass is the style class of image markers in HTML output.
	imageClass string

	// logger for structured logging.
	logger *slog.Logger
}

// RenderStepOption configures a RenderStep.
type RenderStepOption func(*RenderStep)

// WithOutputDir sets the directory output files are written to.
func WithOutputDir(dir string) RenderStepOption {
	return func(s *RenderStep) {
		s.outputDir = dir
	}
}

// WithRenderStdout writes the rendering to w instead of files.
func WithRenderStdout(w io.Writer) RenderStepOption {
	return func(s *RenderStep) {
		s.stdout = w
	}
}

// WithRenderTitle sets the document title.
func WithRenderTitle(title string) RenderStepOption {
	return func(s *RenderStep) {
		s.title = title
	}
}

// WithRenderImageClass sets the style class of image markers in HTML output.
func WithRenderImageClass(class string) RenderStepOption {
	return func(s *RenderStep) {
		s.imageClass = class
	}
}

// WithRenderLogger sets a custom logger for the render step.
func WithRenderLogger(logger *slog.Logger) RenderStepOption {
	return func(s *RenderStep) {
		s.logger = logger
	}
}

// NewRenderStep creates a new render step for the given formats.
func NewRenderStep(formats []render.Format, opts ...RenderStepOption) *RenderStep {
	s := &RenderStep{
		formats:    formats,
		imageClass: render.DefaultImageClass,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *RenderStep) Name() string {
	return "render"
}

// Event reports EventRendered once every output is written.
func (s *RenderStep) Event() EventKind {
	return EventRendered
}

// Do executes the render step.
func (s *RenderStep) Do(_ context.Context, pass *Pass) error {
	conv := pass.Conversion
	if conv.Model == nil {
		return ErrNoModel
	}
	if len(s.formats) == 0 {
		return ErrNoFormat
	}

	opts := []render.Option{
		render.WithTitle(s.title),
		render.WithDocumentName(conv.BaseName()),
		render.WithImageClass(s.imageClass),
	}

	if s.stdout != nil {
		for _, f := range s.formats {
			if err := writeModel(f, s.stdout, conv.Model, opts); err != nil {
				return err
			}
		}
		return nil
	}

	stem := OutputStem(conv.Source, s.outputDir)
	if err := os.MkdirAll(filepath.Dir(stem), 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, f := range s.formats {
		path := stem + f.Extension()
		if err := renderFile(f, path, conv.Model, opts); err != nil {
			return err
		}
		conv.Outputs = append(conv.Outputs, path)
		s.logger.Debug("output written", "format", string(f), "path", path)
	}
	return nil
}

// OutputStem returns the path, without extension, of the files rendered for
// the package at source. Files go to outputDir, or next to the package when
// outputDir is empty.
func OutputStem(source, outputDir string) string {
	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(source)
	}
	conv := model.Conversion{PackageName: filepath.Base(source)}
	return filepath.Join(dir, conv.BaseName())
}

// renderFile writes the model to path in the given format.
func renderFile(f render.Format, path string, m *model.ContentModel, opts []render.Option) (err error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // path is built from the output directory and package name
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	return writeModel(f, file, m, opts)
}

func writeModel(f render.Format, w io.Writer, m *model.ContentModel, opts []render.Option) error {
	writer, err := render.NewWriter(f, w, opts...)
	if err != nil {
		return err
	}
	if _, err := writer.Write(m); err != nil {
		return fmt.Errorf("failed to write %s output: %w", f, err)
	}
	return nil
}

// ConversionStore persists conversion records.
type ConversionStore interface {
	SaveConversion(ctx context.Context, conv *model.Conversion) (int64, error)
}

// HistoryStep records the conversion in the history store. It is meant to
// be added with AddFinally so that failed conversions are recorded too.
type HistoryStep struct {
	store  ConversionStore
	logger *slog.Logger
}

// NewHistoryStep creates a new history step.
func NewHistoryStep(store ConversionStore, logger *slog.Logger) *HistoryStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "history"
}

// Do executes the history step. A conversion rejected before its package
// was read is not recorded.
func (s *HistoryStep) Do(ctx context.Context, pass *Pass) error {
	conv := pass.Conversion
	if errors.Is(conv.Error, idml.ErrInvalidInputKind) {
		return nil
	}

	// The conversion is recorded even when ctx was cancelled mid-pass.
	id, err := s.store.SaveConversion(context.WithoutCancel(ctx), conv)
	if err != nil {
		return err
	}
	s.logger.Debug("conversion recorded", "package", conv.PackageName, "id", id)
	return nil
}

// DefaultPipelineConfig holds the settings of the standard conversion
// pipeline built by DefaultPipeline.
type DefaultPipelineConfig struct {
	// Formats lists the output formats to write.
	Formats []render.Format

	// OutputDir is where files are written. Empty means next to the package.
	OutputDir string

	// Stdout receives the rendering instead of files when non-nil.
	Stdout io.Writer

	// Title is the body heading of every output. Empty means none.
	Title string

	// ImageClass is the style class of image markers in HTML output.
	ImageClass string

	// Order selects the entry order.
	Order idml.Order

	// Strict aborts the walk at the first failing entry.
	Strict bool

	// Concurrency is the number of entries decoded at once.
	Concurrency int

	// MaxEntrySize is the decompression limit for one entry.
	MaxEntrySize int64

	// Store records conversions when non-nil.
	Store ConversionStore

	// Logger is passed to every step.
	Logger *slog.Logger
}

// DefaultPipeline creates the standard conversion pipeline:
// validate → open → walk → assemble → render, then history when a store
// is configured.
func DefaultPipeline(cfg DefaultPipelineConfig, opts ...Option) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	imageClass := cfg.ImageClass
	if imageClass == "" {
		imageClass = render.DefaultImageClass
	}
	order := cfg.Order
	if order == "" {
		order = idml.OrderArchive
	}

	p := New(append([]Option{WithLogger(logger)}, opts...)...)

	p.AddSteps(
		NewValidateStep(),
		NewOpenStep(
			WithMaxEntrySize(cfg.MaxEntrySize),
			WithOpenLogger(logger),
		),
		NewWalkStep(
			idml.WithConcurrency(cfg.Concurrency),
			idml.WithStrict(cfg.Strict),
			idml.WithOrder(order),
			idml.WithWalkerLogger(logger),
		),
		NewAssembleStep(),
		NewRenderStep(cfg.Formats,
			WithOutputDir(cfg.OutputDir),
			WithRenderStdout(cfg.Stdout),
			WithRenderTitle(cfg.Title),
			WithRenderImageClass(imageClass),
			WithRenderLogger(logger),
		),
	)

	if cfg.Store != nil {
		p.AddFinally(NewHistoryStep(cfg.Store, logger))
	}

	return p
}
