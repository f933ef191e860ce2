package config

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/adrg/xdg"

	"github.com/nao1215/idml2doc/internal/idml"
	"github.com/nao1215/idml2doc/internal/render"
)

// Default configuration values.
const (
	// DefaultConcurrency is the number of entries of one package decoded at once.
	DefaultConcurrency = idml.DefaultConcurrency

	// DefaultBatchSize is the number of packages converted at once.
	// Each conversion already decodes entries concurrently, so a small value
	// is enough to keep the CPU busy.
	DefaultBatchSize = 2

	// DefaultMaxEntrySize is the decompression limit for one package entry.
	DefaultMaxEntrySize = idml.DefaultMaxEntrySize

	// DefaultImageClass is the style class of image markers in HTML output.
	DefaultImageClass = render.DefaultImageClass

	// AppName is the application name used for XDG directory paths.
	AppName = "idml2doc"
)

// DefaultFormats are the output formats written when none are configured.
// They match what the original browser tool offered: an HTML preview and a
// word-processor download.
func DefaultFormats() []string {
	return []string{string(render.FormatHTML), string(render.FormatDOCX)}
}

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Setting keys used with Pin and in the configuration file.
const (
	KeyFormats     = "formats"
	KeyTitle       = "title"
	KeyImageClass  = "imageClass"
	KeyOrder       = "order"
	KeyStrict      = "strict"
	KeyConcurrency = "concurrency"
)

// Config holds all configuration options for idml2doc.
// This struct is populated from CLI flags and passed through the
// application rather than kept in global state.
type Config struct {
	// Inputs is the list of package files to convert.
	Inputs []string

	// Formats lists the output formats to write, e.g. "html", "docx".
	Formats []string

	// OutputDir is the directory output files are written to.
	// When empty, each output is written next to its package.
	OutputDir string

	// ToStdout writes the single configured format to standard output
	// instead of files.
	ToStdout bool

	// Title is the heading that opens every output. When empty, outputs have
	// no title heading and their metadata is named after the package.
	Title string

	// ImageClass is the style class of image markers in HTML output.
	ImageClass string

	// Order selects the entry order: "archive" (default) or "designmap".
	Order string

	// Strict makes the first failing story or spread abort the conversion.
	// By default a failing entry is skipped and reported.
	Strict bool

	// Concurrency is the number of entries of one package decoded at once.
	Concurrency int

	// BatchSize is the number of packages converted at once.
	BatchSize int

	// MaxEntrySize is the decompression limit for one package entry in bytes.
	// Zero keeps DefaultMaxEntrySize.
	MaxEntrySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogFormat selects the log line format: "text" (default) or "json".
	LogFormat string

	// Quiet suppresses progress output.
	Quiet bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .idml2doc in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// PackageConfigs holds the settings loaded from the config file.
	PackageConfigs *File

	// DBDir is the directory of the conversion history database.
	// Defaults to XDG data directory (~/.local/share/idml2doc on Linux).
	DBDir string

	// SaveToDB records each conversion in the history database.
	SaveToDB bool

	// pinned holds the keys of settings given explicitly on the command
	// line; the config file never overrides them.
	pinned map[string]bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Formats:      DefaultFormats(),
		ImageClass:   DefaultImageClass,
		Order:        string(idml.OrderArchive),
		Concurrency:  DefaultConcurrency,
		BatchSize:    DefaultBatchSize,
		MaxEntrySize: DefaultMaxEntrySize,
		LogFormat:    LogFormatText,
		DBDir:        XDGDataDir(),
		SaveToDB:     true,
	}
}

// Pin marks settings as given on the command line, so that values from the
// configuration file do not replace them.
func (c *Config) Pin(keys ...string) {
	if c.pinned == nil {
		c.pinned = make(map[string]bool)
	}
	for _, k := range keys {
		c.pinned[k] = true
	}
}

// Pinned reports whether the setting was given on the command line.
func (c *Config) Pinned(key string) bool {
	return c.pinned[key]
}

// Settings are the effective conversion settings for one package.
type Settings struct {
	Formats     []string
	Title       string
	ImageClass  string
	Order       string
	Strict      bool
	Concurrency int
}

// SettingsFor returns the settings for the named package: the command-line
// values, overridden by the config file's defaults and then by the entry for
// that package, except where a setting was pinned.
func (c *Config) SettingsFor(packageName string) Settings {
	s := Settings{
		Formats:     slices.Clone(c.Formats),
		Title:       c.Title,
		ImageClass:  c.ImageClass,
		Order:       c.Order,
		Strict:      c.Strict,
		Concurrency: c.Concurrency,
	}
	if c.PackageConfigs == nil {
		return s
	}

	pc := c.PackageConfigs.GetPackageConfig(packageName)
	if len(pc.Formats) > 0 && !c.Pinned(KeyFormats) {
		s.Formats = slices.Clone(pc.Formats)
	}
	if pc.Title != "" && !c.Pinned(KeyTitle) {
		s.Title = pc.Title
	}
	if pc.ImageClass != "" && !c.Pinned(KeyImageClass) {
		s.ImageClass = pc.ImageClass
	}
	if pc.Order != "" && !c.Pinned(KeyOrder) {
		s.Order = pc.Order
	}
	if pc.Strict != nil && !c.Pinned(KeyStrict) {
		s.Strict = *pc.Strict
	}
	if pc.Concurrency > 0 && !c.Pinned(KeyConcurrency) {
		s.Concurrency = pc.Concurrency
	}
	return s
}

// XDGDataDir returns the XDG data directory for idml2doc.
// On Linux: ~/.local/share/idml2doc
// On macOS: ~/Library/Application Support/idml2doc
// On Windows: %LOCALAPPDATA%\idml2doc
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for idml2doc.
// On Linux: ~/.config/idml2doc
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first error found; fixing one error often makes others
// irrelevant.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInput
	}

	if err := validateFormats(c.Formats); err != nil {
		return err
	}

	if _, err := idml.ParseOrder(c.Order); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidOrder, c.Order)
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxEntrySize < 0 {
		return ErrInvalidMaxEntrySize
	}

	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.LogFormat)
	}

	if c.ToStdout {
		if len(c.Formats) != 1 {
			return ErrStdoutFormat
		}
		if f, _ := render.ParseFormat(c.Formats[0]); f.Binary() {
			return ErrStdoutFormat
		}
	}

	if c.PackageConfigs != nil {
		if err := c.PackageConfigs.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// validateFormats checks that formats is non-empty and every name is known.
func validateFormats(formats []string) error {
	if len(formats) == 0 {
		return ErrNoFormat
	}
	for _, f := range formats {
		if _, err := render.ParseFormat(f); err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
	}
	return nil
}
