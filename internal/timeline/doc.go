// Package timeline concatenates clips, applies optional crossfades, and
// reconciles the total length with the narration.
//
// Fades are applied inside each clip's own span: the outgoing clip fades out
// over its last overlap seconds and the incoming clip fades in over its first
// overlap seconds. Clips are never shifted to overlap in time, so the
// timeline duration is exactly the sum of its clip durations and caption
// timing is preserved.
package timeline
