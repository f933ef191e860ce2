// Package pipeline runs the conversion of one IDML package as a sequence of
// steps: validate the file name, open the archive, walk its stories and
// spreads, assemble the content model, render the outputs and record the
// conversion in the history store.
//
// Each step receives the Pass shared by the whole run and fills in its part.
// Progress is reported to Listener callbacks as lifecycle events, so the
// pipeline itself holds no presentation state.
//
// The BatchProcessor converts several packages concurrently with errgroup,
// one independent pipeline per package.
package pipeline
