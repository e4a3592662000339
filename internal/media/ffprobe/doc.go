// Package ffprobe wraps ffprobe JSON output for the clip materializer and
// audio mixer.
//
// Inspect runs ffprobe and returns the parsed Result. Prober narrows that to
// the Info the build needs: duration, first video stream dimensions, and
// whether audio or video streams are present. A duration that is missing,
// unparsable, or not positive makes a file undecodable for build purposes.
package ffprobe
