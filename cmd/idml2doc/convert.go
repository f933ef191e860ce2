package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/idml2doc/internal/config"
	"github.com/nao1215/idml2doc/internal/database"
	"github.com/nao1215/idml2doc/internal/idml"
	applog "github.com/nao1215/idml2doc/internal/log"
	"github.com/nao1215/idml2doc/internal/model"
	"github.com/nao1215/idml2doc/internal/pipeline"
	"github.com/nao1215/idml2doc/internal/render"
)

var (
	// errConversionsFailed is returned when at least one package could not be
	// converted.
	errConversionsFailed = errors.New("conversion failed")

	// errOutputCollision is returned when two packages would be rendered to
	// the same files.
	errOutputCollision = errors.New("packages share an output file name")
)

// NewConvertCmd creates the convert command.
func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert IDML packages into readable documents",
		Long: `Convert extracts the text and linked image paths of IDML packages and
writes them as readable documents.

Each package produces one file per output format, named after the package
and written next to it unless --output-dir is given. A story that cannot be
parsed is skipped and reported; use --strict to abort the package instead.

Examples:
  # Write brochure.html and brochure.docx next to the package
  idml2doc convert brochure.idml

  # Convert several packages into a separate directory
  idml2doc convert -o out/ *.idml

  # Print Markdown to standard output
  idml2doc convert -f markdown --stdout brochure.idml

  # Follow the story order of designmap.xml
  idml2doc convert --order designmap brochure.idml

Configuration file (.idml2doc) example:
  defaults:
    formats: [html, docx]
  packages:
    brochure.idml:
      title: "Spring Brochure"
      order: designmap`,
		Args: cobra.MinimumNArgs(1),
		RunE: runConvertCmd,
	}

	// Output flags
	cmd.Flags().StringSliceP("format", "f", config.DefaultFormats(),
		"Output formats: html, docx, markdown, json, text")
	cmd.Flags().StringP("output-dir", "o", "",
		"Directory for output files (default: next to each package)")
	cmd.Flags().Bool("stdout", false,
		"Write the single text format to standard output instead of files")
	cmd.Flags().String("title", "",
		"Document title shown as a heading (default: none; metadata uses the package name)")
	cmd.Flags().String("image-class", config.DefaultImageClass,
		"Style class of image markers in HTML output")

	// Extraction flags
	cmd.Flags().String("order", string(idml.OrderArchive),
		"Story order: archive or designmap")
	cmd.Flags().Bool("strict", false,
		"Abort a package at the first story that cannot be parsed")
	cmd.Flags().IntP("concurrency", "j", config.DefaultConcurrency,
		"Number of stories and spreads decoded at once")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of packages converted at once")
	cmd.Flags().Int64("max-entry-size", config.DefaultMaxEntrySize,
		"Decompression limit for one package entry in bytes")

	// Configuration and history flags
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .idml2doc in current or home directory)")
	cmd.Flags().Bool("no-history", false,
		"Do not record conversions in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().BoolP("quiet", "q", false,
		"Suppress progress output")

	return cmd
}

// runConvertCmd executes the convert command.
func runConvertCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runConvert(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// newLogger creates the logger selected by the log format of cfg.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogFormat == config.LogFormatJSON {
		return applog.NewJSONLogger(w, cfg.Verbose)
	}
	return applog.NewLogger(w, cfg.Verbose)
}

// getLogFormatFlag retrieves the log format flag from the command or its parent.
func getLogFormatFlag(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format, err = cmd.Root().PersistentFlags().GetString("log-format")
		if err != nil {
			return config.LogFormatText
		}
	}
	return format
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.Formats, err = flags.GetStringSlice("format"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return nil, err
	}
	if cfg.ToStdout, err = flags.GetBool("stdout"); err != nil {
		return nil, err
	}
	if cfg.Title, err = flags.GetString("title"); err != nil {
		return nil, err
	}
	if cfg.ImageClass, err = flags.GetString("image-class"); err != nil {
		return nil, err
	}
	if cfg.Order, err = flags.GetString("order"); err != nil {
		return nil, err
	}
	if cfg.Strict, err = flags.GetBool("strict"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.MaxEntrySize, err = flags.GetInt64("max-entry-size"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.Quiet, err = flags.GetBool("quiet"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFormat = getLogFormatFlag(cmd)

	// Settings given on the command line win over the configuration file.
	pins := map[string]string{
		"format":      config.KeyFormats,
		"title":       config.KeyTitle,
		"image-class": config.KeyImageClass,
		"order":       config.KeyOrder,
		"strict":      config.KeyStrict,
		"concurrency": config.KeyConcurrency,
	}
	for flag, key := range pins {
		if flags.Changed(flag) {
			cfg.Pin(key)
		}
	}

	// An explicitly given config file must exist; otherwise a missing file
	// just means no package-specific settings.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.PackageConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.PackageConfigs = &config.File{
			Packages: make(map[string]config.PackageConfig),
		}
	}

	cfg.Inputs = args

	return cfg, nil
}

// runConvert converts every input package and reports the outcome to out.
// Progress lines go to errOut.
func runConvert(ctx context.Context, cfg *config.Config, logger *slog.Logger, out, errOut io.Writer) error {
	// With --stdout the rendering owns out, so status lines move to errOut.
	status := out
	if cfg.ToStdout {
		status = errOut
	}

	if !cfg.ToStdout {
		if err := checkOutputCollisions(cfg.Inputs, cfg.OutputDir); err != nil {
			return err
		}
	}

	pipelineConfigs := make(map[string]pipeline.DefaultPipelineConfig, len(cfg.Inputs))
	for _, source := range cfg.Inputs {
		pc, err := pipelineConfigFor(cfg, source)
		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		pc.Logger = logger
		if cfg.ToStdout {
			pc.Stdout = out
		}
		pipelineConfigs[source] = pc
	}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		logger.Debug("history database opened", "path", db.Path())

		for source, pc := range pipelineConfigs {
			pc.Store = db
			pipelineConfigs[source] = pc
		}
	}

	var pipelineOpts []pipeline.Option
	if !cfg.Quiet {
		pipelineOpts = append(pipelineOpts, pipeline.WithListener(newProgressPrinter(errOut).Listen))
	}

	// Renderings written to one stream must not interleave.
	batchSize := cfg.BatchSize
	if cfg.ToStdout {
		batchSize = 1
	}

	bp := pipeline.NewBatchProcessor(
		func(source string) *pipeline.Pipeline {
			return pipeline.DefaultPipeline(pipelineConfigs[source], pipelineOpts...)
		},
		pipeline.WithConcurrency(batchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()

	var mu sync.Mutex
	failed := 0
	err := bp.ProcessBatchWithCallback(ctx, cfg.Inputs, func(conv *model.Conversion, _ int) {
		mu.Lock()
		defer mu.Unlock()

		if !conv.Succeeded() {
			failed++
		}
		printConversion(status, conv)
	})
	if err != nil {
		return err
	}

	if len(cfg.Inputs) > 1 {
		fmt.Fprintf(status, "\nConverted %d of %d packages in %s\n",
			len(cfg.Inputs)-failed, len(cfg.Inputs), time.Since(startTime).Round(time.Millisecond))
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d packages", errConversionsFailed, failed, len(cfg.Inputs))
	}
	return nil
}

// checkOutputCollisions rejects inputs whose renderings would be written to
// the same path, such as a/x.idml and b/x.idml with a shared output directory.
func checkOutputCollisions(inputs []string, outputDir string) error {
	seen := make(map[string]string, len(inputs))
	for _, source := range inputs {
		stem := pipeline.OutputStem(source, outputDir)
		if prev, ok := seen[stem]; ok {
			return fmt.Errorf("%w: %s and %s both write %s.*", errOutputCollision, prev, source, stem)
		}
		seen[stem] = source
	}
	return nil
}

// pipelineConfigFor resolves the settings of one package into a pipeline
// configuration.
func pipelineConfigFor(cfg *config.Config, source string) (pipeline.DefaultPipelineConfig, error) {
	s := cfg.SettingsFor(filepath.Base(source))

	formats := make([]render.Format, 0, len(s.Formats))
	for _, name := range s.Formats {
		f, err := render.ParseFormat(name)
		if err != nil {
			return pipeline.DefaultPipelineConfig{}, err
		}
		formats = append(formats, f)
	}

	order, err := idml.ParseOrder(s.Order)
	if err != nil {
		return pipeline.DefaultPipelineConfig{}, err
	}

	return pipeline.DefaultPipelineConfig{
		Formats:      formats,
		OutputDir:    cfg.OutputDir,
		Title:        s.Title,
		ImageClass:   s.ImageClass,
		Order:        order,
		Strict:       s.Strict,
		Concurrency:  s.Concurrency,
		MaxEntrySize: cfg.MaxEntrySize,
	}, nil
}

// printConversion prints the outcome of one conversion.
func printConversion(w io.Writer, conv *model.Conversion) {
	if !conv.Succeeded() {
		fmt.Fprintf(w, "%s: failed: %s\n", conv.Source, conv.ErrorMessage)
		return
	}

	fmt.Fprintf(w, "%s: %d text fragments, %d image links\n",
		conv.Source, conv.Model.FragmentCount(), conv.Model.MarkerCount())
	for _, e := range conv.FailedEntries() {
		fmt.Fprintf(w, "  skipped %s: %s\n", e.Path, e.ErrorMessage)
	}
	for _, path := range conv.Outputs {
		fmt.Fprintf(w, "  wrote %s\n", path)
	}
}
