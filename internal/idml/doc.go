// Package idml extracts plain text and linked image paths from IDML packages.
//
// An IDML package is a ZIP archive of XML parts. Flowed text lives in
// Stories/*.xml and placed images are referenced from Spreads/*.xml. This
// package walks those parts and produces the fragments and markers that
// model.Assemble turns into a content model.
//
// # Opening a package
//
//	if err := idml.ValidateFilename(path); err != nil {
//	    return err
//	}
//	pkg, err := idml.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer pkg.Close()
//
// # Walking
//
//	w := idml.NewWalker(idml.WithConcurrency(4))
//	res, err := w.Walk(ctx, pkg.Entries())
//	cm := model.Assemble(res.Fragments, res.Markers)
//
// Entries are decoded concurrently, but fragments and markers always come out
// in entry enumeration order. A malformed story is recorded as a failed
// [model.EntryResult] and skipped; use [WithStrict] to abort the walk instead.
//
// # Error Handling
//
// The package defines sentinel errors for the failure kinds of a pass:
//   - [ErrInvalidInputKind] – the file name does not end in .idml
//   - [ErrArchiveOpen] – the ZIP archive cannot be opened
//   - [ErrEntryParse] – a story's XML is malformed
//   - [ErrEntryDecode] – an entry's bytes cannot be read or decoded
package idml
