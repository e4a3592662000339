// Package overlay rasterizes caption text into a boxed subtitle layer.
//
// Render wraps the text greedily to 90% of the frame width and returns two
// aligned layers: white glyphs on black, and an alpha mask that keeps glyphs
// opaque and the box at 60% opacity. The box is centered horizontally with
// its top edge at 82% of the frame height.
//
// Glyphs come from the first TrueType/OpenType font found on the candidate
// list. When none is readable the built-in 7x13 bitmap face is scaled up by
// whole-pixel replication so the layer is still legible.
package overlay
