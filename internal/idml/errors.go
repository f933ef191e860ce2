package idml

import "errors"

// Sentinel errors returned by the idml package.
var (
	// ErrInvalidInputKind indicates the input file name does not carry the
	// .idml extension. It is returned before the archive is opened.
	ErrInvalidInputKind = errors.New("idml: input is not an .idml package")

	// ErrArchiveOpen indicates the package could not be opened or is not
	// a readable ZIP archive.
	ErrArchiveOpen = errors.New("idml: cannot open package archive")

	// ErrEntryParse indicates a story entry holds malformed XML.
	ErrEntryParse = errors.New("idml: cannot parse entry")

	// ErrEntryDecode indicates an entry's bytes could not be read or
	// decoded to text.
	ErrEntryDecode = errors.New("idml: cannot decode entry")

	// ErrEntryTooLarge indicates an entry exceeds the decompression limit.
	ErrEntryTooLarge = errors.New("idml: entry exceeds size limit")
)
