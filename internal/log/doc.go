// Package log provides the application's logging setup, built on top of the
// standard slog package.
//
// This package extends slog to provide:
//   - Compaction of long attribute values (extracted story text can run to
//     many kilobytes)
//   - Replacement of the user's home directory with "~" in logged paths,
//     including the absolute image paths recorded inside spreads
//   - Configurable log levels with verbose mode support
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	logger.Debug("story extracted",
//	    "entry", "Stories/Story_u1d8.xml",
//	    "text", longText, // shortened to DefaultMaxValueLength runes
//	)
//
//	slog.SetDefault(logger)
package log
