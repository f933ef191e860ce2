package config

import (
	"fmt"
	"strings"

	"github.com/nao1215/idml2doc/internal/idml"
)

// PackageConfig holds package-specific conversion settings.
// Zero values mean "not set" and leave the inherited value in place.
type PackageConfig struct {
	// Formats overrides the output formats.
	Formats []string `yaml:"formats,omitempty"`

	// Title overrides the document title.
	Title string `yaml:"title,omitempty"`

	// ImageClass overrides the style class of image markers in HTML output.
	ImageClass string `yaml:"imageClass,omitempty"`

	// Order overrides the entry order ("archive" or "designmap").
	Order string `yaml:"order,omitempty"`

	// Strict overrides the entry error policy.
	Strict *bool `yaml:"strict,omitempty"`

	// Concurrency overrides the number of entries decoded at once.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// File represents the structure of the .idml2doc configuration file.
type File struct {
	// Defaults contains settings applied to all packages unless overridden
	// in the package-specific configuration.
	Defaults PackageConfig `yaml:"defaults,omitempty"`

	// Packages maps package file names (e.g. "brochure.idml") to their
	// package-specific configurations. Names are matched without regard to case.
	Packages map[string]PackageConfig `yaml:"packages,omitempty"`
}

// GetPackageConfig returns the configuration for a specific package file name.
// It merges the package-specific configuration with defaults.
func (cf *File) GetPackageConfig(packageName string) PackageConfig {
	result := cf.Defaults

	pc, ok := cf.lookup(packageName)
	if !ok {
		return result
	}

	if len(pc.Formats) > 0 {
		result.Formats = pc.Formats
	}
	if pc.Title != "" {
		result.Title = pc.Title
	}
	if pc.ImageClass != "" {
		result.ImageClass = pc.ImageClass
	}
	if pc.Order != "" {
		result.Order = pc.Order
	}
	if pc.Strict != nil {
		result.Strict = pc.Strict
	}
	if pc.Concurrency > 0 {
		result.Concurrency = pc.Concurrency
	}

	return result
}

// lookup finds the entry for packageName, preferring an exact match.
func (cf *File) lookup(packageName string) (PackageConfig, bool) {
	if pc, ok := cf.Packages[packageName]; ok {
		return pc, true
	}
	for name, pc := range cf.Packages {
		if strings.EqualFold(name, packageName) {
			return pc, true
		}
	}
	return PackageConfig{}, false
}

// Validate checks the defaults and every package entry.
func (cf *File) Validate() error {
	if err := cf.Defaults.validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for name, pc := range cf.Packages {
		if err := pc.validate(); err != nil {
			return fmt.Errorf("packages.%s: %w", name, err)
		}
	}
	return nil
}

func (pc PackageConfig) validate() error {
	if len(pc.Formats) > 0 {
		if err := validateFormats(pc.Formats); err != nil {
			return err
		}
	}
	if pc.Order != "" {
		if _, err := idml.ParseOrder(pc.Order); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidOrder, pc.Order)
		}
	}
	if pc.Concurrency < 0 {
		return ErrInvalidConcurrency
	}
	return nil
}
