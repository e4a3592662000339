// Package clip turns a resolved asset into a render plan of exact duration.
//
// A Clip describes where its frames come from (a window of a video, a still
// image, or a solid color), how the source is stretched to the target
// duration (loop or freeze), how it is fitted to the frame, and which PNG
// layers are composited on top. The render package executes the plan; this
// package never decodes media itself beyond probing durations.
//
// Every path through Materialize yields a clip whose Duration equals the
// requested duration. Download and decode problems degrade to a
// gradient placeholder labelled with the query.
package clip
