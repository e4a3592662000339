// Package audiomix plans the final soundtrack: the narration, optionally with
// a background track looped or trimmed to the narration length and
// attenuated underneath it.
//
// A missing background, or one that cannot be fetched or probed, yields a
// narration-only mix. The render package turns the plan into an ffmpeg audio
// graph.
package audiomix
