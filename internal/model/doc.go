// Package model defines the core data structures used throughout idml2doc.
//
// This package contains the following main types:
//   - PackageEntry: A decoded entry of an IDML package
//   - TextFragment and ImageMarker: The units extracted from stories and spreads
//   - ContentModel: The immutable, ordered result handed to renderers
//   - EntryResult: The tagged outcome of extracting one entry
//   - Conversion: The record of one extraction pass over one package
//
// Models live in their own package because the extractor, the pipeline, the
// renderers and the history store all share them.
//
// Conversion and ContentModel serialize to JSON for report output and
// database storage.
package model
