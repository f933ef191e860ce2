package model

import (
	"path/filepath"
	"strings"
	"time"
)

// Conversion is the record of one extraction pass over one package.
// The pipeline fills it in step by step; renderers only ever see Model.
type Conversion struct {
	// Source is the path of the package file as given by the user.
	Source string `json:"source"`

	// PackageName is the base name of Source, e.g. "brochure.idml".
	PackageName string `json:"package_name"`

	// PackageHash is the hex SHA3-256 digest of the package bytes.
	PackageHash string `json:"package_hash,omitempty"`

	// PackageSize is the size of the package file in bytes.
	PackageSize int64 `json:"package_size,omitempty"`

	// DateConverted is when the pass started.
	DateConverted time.Time `json:"date_converted"`

	// Warnings are non-fatal oddities noticed while opening the package.
	Warnings []string `json:"warnings,omitempty"`

	// Entries holds one result per story or spread, in walk order.
	Entries []EntryResult `json:"entries,omitempty"`

	// Model is the assembled content. It stays nil when the pass fails.
	Model *ContentModel `json:"model,omitempty"`

	// Outputs lists the files written by the render step.
	Outputs []string `json:"outputs,omitempty"`

	// Error is the pass-level failure. It is not serialized.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error.
	ErrorMessage string `json:"error,omitempty"`

	// PerformedSteps lists the pipeline steps that completed.
	PerformedSteps []string `json:"performed_steps,omitempty"`
}

// NewConversion creates a Conversion for the package at source.
func NewConversion(source string) *Conversion {
	return &Conversion{
		Source:        source,
		PackageName:   filepath.Base(source),
		DateConverted: time.Now(),
	}
}

// BaseName returns the package name without its extension.
// It is used to name output files.
func (c *Conversion) BaseName() string {
	return strings.TrimSuffix(c.PackageName, filepath.Ext(c.PackageName))
}

// Succeeded reports whether the pass produced a content model.
func (c *Conversion) Succeeded() bool {
	return c.Model != nil && c.Error == nil && c.ErrorMessage == ""
}

// FailedEntries returns the entries that could not be extracted.
func (c *Conversion) FailedEntries() []EntryResult {
	var out []EntryResult
	for _, e := range c.Entries {
		if e.Failed() {
			out = append(out, e)
		}
	}
	return out
}

// CountEntries returns how many story and spread entries were walked.
func (c *Conversion) CountEntries() (stories, spreads int) {
	for _, e := range c.Entries {
		switch e.Class {
		case EntryStory:
			stories++
		case EntrySpread:
			spreads++
		}
	}
	return stories, spreads
}

// AddWarning records a non-fatal warning.
func (c *Conversion) AddWarning(msg string) {
	c.Warnings = append(c.Warnings, msg)
}
