// Package database provides SQLite-based storage for the conversion history.
//
// Every conversion is recorded in the conversions table together with its
// package fingerprint, entry counts and the full conversion record as JSON,
// so that a stored content model can be rendered again later without the
// original package.
//
// SQLite is used via modernc.org/sqlite: the database is a single file and
// the driver needs no cgo.
package database
