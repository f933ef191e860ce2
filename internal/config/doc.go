// Package config provides configuration structures and utilities for idml2doc.
// It defines the conversion options (output formats, entry order, error
// policy, concurrency), the optional .idml2doc YAML file with per-package
// overrides, and the XDG directories used for the conversion history.
package config
