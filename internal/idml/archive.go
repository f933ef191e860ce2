package idml

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// DefaultMaxEntrySize is the maximum decompressed size of a single entry.
	// It guards against zip bombs. Defaults to 256 MB.
	DefaultMaxEntrySize int64 = 256 * 1024 * 1024

	// PackageExtension is the file extension of an IDML package.
	PackageExtension = ".idml"

	// expectedMimetype is the content of the "mimetype" entry of a valid package.
	expectedMimetype = "application/vnd.adobe.indesign-idml-package"
)

// Entry is an accessor for one package entry. Text decodes the entry on
// demand, so a walker can decide when, and how concurrently, to read it.
type Entry interface {
	// Path returns the ZIP-internal path, e.g. "Stories/Story_u1d8.xml".
	Path() string

	// Text returns the entry content decoded to UTF-8.
	Text(ctx context.Context) (string, error)
}

// ValidateFilename checks that name carries the .idml extension, ignoring
// case. It does not look at the file content.
func ValidateFilename(name string) error {
	if strings.EqualFold(path.Ext(strings.ReplaceAll(name, "\\", "/")), PackageExtension) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidInputKind, name)
}

// Archive is an opened IDML package.
//
// An Archive is safe for concurrent reads of distinct entries.
type Archive struct {
	zip          *zip.Reader
	closer       io.Closer // non-nil only when created via Open()
	maxEntrySize int64
	entries      []Entry
	warnings     []string
}

// ArchiveOption configures an Archive.
type ArchiveOption func(*Archive)

// WithMaxEntrySize sets the decompression limit for a single entry.
// Non-positive values keep the default.
func WithMaxEntrySize(n int64) ArchiveOption {
	return func(a *Archive) {
		if n > 0 {
			a.maxEntrySize = n
		}
	}
}

// Open opens the package at the given path.
// The caller must call Close when done.
func Open(name string, opts ...ArchiveOption) (*Archive, error) {
	zrc, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArchiveOpen, name, err)
	}
	return newArchive(&zrc.Reader, zrc, opts), nil
}

// NewArchive opens a package from an io.ReaderAt with the given size.
// The caller is responsible for the lifetime of r.
func NewArchive(r io.ReaderAt, size int64, opts ...ArchiveOption) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveOpen, err)
	}
	return newArchive(zr, nil, opts), nil
}

// OpenBytes opens a package held in memory.
func OpenBytes(data []byte, opts ...ArchiveOption) (*Archive, error) {
	return NewArchive(bytes.NewReader(data), int64(len(data)), opts...)
}

func newArchive(zr *zip.Reader, closer io.Closer, opts []ArchiveOption) *Archive {
	a := &Archive{
		zip:          zr,
		closer:       closer,
		maxEntrySize: DefaultMaxEntrySize,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.entries = make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		a.entries = append(a.entries, &zipEntry{file: f, limit: a.maxEntrySize})
	}

	a.validateMimetype()
	return a
}

// validateMimetype checks that the first entry is "mimetype" with the IDML
// media type. Deviations are recorded as warnings; InDesign itself opens
// packages that get this wrong.
func (a *Archive) validateMimetype() {
	if len(a.zip.File) == 0 {
		a.warnings = append(a.warnings, "empty ZIP archive; mimetype entry missing")
		return
	}

	first := a.zip.File[0]
	if first.Name != "mimetype" {
		a.warnings = append(a.warnings, "first ZIP entry is not \"mimetype\"")
		return
	}

	data, err := readZipFileWithLimit(first, a.maxEntrySize)
	if err != nil {
		a.warnings = append(a.warnings, fmt.Sprintf("cannot read mimetype entry: %v", err))
		return
	}

	if got := strings.TrimSpace(string(data)); got != expectedMimetype {
		a.warnings = append(a.warnings, fmt.Sprintf("unexpected mimetype: %q", got))
	}
}

// Entries returns the package entries in ZIP central-directory order.
func (a *Archive) Entries() []Entry {
	return append([]Entry(nil), a.entries...)
}

// Warnings returns the non-fatal problems noticed while opening the package.
func (a *Archive) Warnings() []string {
	return append([]string(nil), a.warnings...)
}

// Close releases the underlying file when the Archive was created via Open.
// Close is idempotent.
func (a *Archive) Close() error {
	if a.closer != nil {
		err := a.closer.Close()
		a.closer = nil
		return err
	}
	return nil
}

// zipEntry is the Entry implementation backed by a ZIP file header.
type zipEntry struct {
	file  *zip.File
	limit int64
}

// Path implements Entry.
func (e *zipEntry) Path() string {
	return e.file.Name
}

// Text implements Entry.
func (e *zipEntry) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := readZipFileWithLimit(e.file, e.limit)
	if err != nil {
		return "", err
	}
	return decodeText(data)
}

// decodeText converts entry bytes to a UTF-8 string. A byte order mark, if
// present, selects UTF-8 or UTF-16 and is removed; without one the bytes are
// taken as UTF-8.
func decodeText(data []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEntryDecode, err)
	}
	return string(out), nil
}

// readZipFileWithLimit reads the full contents of a ZIP entry, refusing
// entries whose path escapes the archive root or whose decompressed size
// exceeds limit.
func readZipFileWithLimit(f *zip.File, limit int64) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("%w: unsafe zip entry path: %s", ErrEntryDecode, f.Name)
	}

	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%w: %s: %d bytes (max %d)", ErrEntryTooLarge, f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrEntryDecode, f.Name, err)
	}
	defer rc.Close()

	// Read one byte past the limit: the declared size may be forged.
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrEntryDecode, f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s: decompressed size exceeds %d bytes", ErrEntryTooLarge, f.Name, limit)
	}

	return data, nil
}

// isSafePath reports whether p stays inside the archive root.
func isSafePath(p string) bool {
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}
