// Package segment models timed narration captions and reads or writes them
// as WebVTT and SubRip files.
//
// A Segment is immutable once parsed. Duration never reports less than
// 0.1 seconds so downstream timeline arithmetic stays positive even for
// degenerate cues; ClampMinimum lengthens very short cues before assembly.
package segment
