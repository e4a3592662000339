// Package transcribe produces caption segments from narration audio with
// WhisperX.
//
// The narration is first normalized to mono 16 kHz WAV with ffmpeg, then
// WhisperX runs through uvx and writes a JSON transcript. The transcript's
// segments become segment.Segment values (indexed by ordinal, empty text
// dropped) and can be written out as WebVTT for reuse with --captions.
package transcribe
