// Package pipeline turns caption segments and a narration track into a
// finished video.
//
// A Builder walks the segments strictly in index order: it derives a search
// query, resolves an asset against the configured sources, materializes a
// clip of exactly the segment's duration and optionally adds the caption
// text. The clips are then assembled into a timeline reconciled to the
// narration length, a soundtrack is planned, and the render engine produces
// the output file.
//
// Everything short of an empty segment list or a render failure degrades
// instead of aborting: missing assets become placeholders and a missing
// background track leaves the narration alone.
package pipeline
