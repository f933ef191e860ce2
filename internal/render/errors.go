package render

import "errors"

var (
	// ErrUnknownFormat indicates an output format name is not supported.
	ErrUnknownFormat = errors.New("render: unknown output format")

	// ErrNilModel indicates a writer was given no content model.
	ErrNilModel = errors.New("render: nil content model")
)
