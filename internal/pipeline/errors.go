package pipeline

import "errors"

// Sentinel errors returned when steps run out of order.
var (
	// ErrNoArchive is returned by steps that need an opened archive.
	ErrNoArchive = errors.New("pipeline: package archive is not open")

	// ErrNoResult is returned by steps that need the walk result.
	ErrNoResult = errors.New("pipeline: package has not been walked")

	// ErrNoModel is returned by steps that need the assembled content model.
	ErrNoModel = errors.New("pipeline: content model has not been assembled")

	// ErrNoFormat is returned by the render step when no format is configured.
	ErrNoFormat = errors.New("pipeline: no output format")
)
