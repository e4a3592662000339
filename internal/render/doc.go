// Package render executes clip plans, the timeline, and the audio mix with
// ffmpeg.
//
// Each clip is encoded to an intermediate MP4 with identical codec settings
// so the parts can be joined with the concat demuxer without re-encoding.
// Clip renders fan out over a bounded worker group; the joined order is
// always the timeline order. The final mux adds the planned soundtrack and
// cuts the output to the narration length. Command lines are built with
// ffmpeg-go stream graphs and run through an injectable runner.
package render
