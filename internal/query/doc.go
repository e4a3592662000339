// Package query derives stock-footage search phrases from caption segments.
//
// A Generator turns segment text into either a truncated full-text query or a
// short keyword query, optionally prefixed with keywords from the video title.
// When a query comes back empty from every source, Simplify produces a shorter
// retry. Phrase and stopword tables are plain data passed in through Tables, and
// all random choices go through the injected *rand.Rand so builds are
// reproducible under a fixed seed.
package query
