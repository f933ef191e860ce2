package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
var (
	// ErrNoInput is returned when no package file is given.
	ErrNoInput = errors.New("no input specified: provide at least one .idml file")

	// ErrNoFormat is returned when the list of output formats is empty.
	ErrNoFormat = errors.New("no output format specified")

	// ErrUnknownFormat is returned when an output format name is not supported.
	ErrUnknownFormat = errors.New("unknown output format: use html, docx, markdown, json or text")

	// ErrInvalidOrder is returned when the entry order is neither archive nor designmap.
	ErrInvalidOrder = errors.New("invalid entry order: use archive or designmap")

	// ErrInvalidConcurrency is returned when the per-package concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no package is ever converted.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxEntrySize is returned when the entry size limit is negative.
	// Use 0 to keep the default limit.
	ErrInvalidMaxEntrySize = errors.New("invalid max entry size: must be non-negative")

	// ErrInvalidLogFormat is returned when the log format is neither text nor json.
	ErrInvalidLogFormat = errors.New("invalid log format: use text or json")

	// ErrStdoutFormat is returned when --stdout is combined with more than one
	// format or with the binary docx format.
	ErrStdoutFormat = errors.New("--stdout needs exactly one text format (html, markdown, json or text)")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
