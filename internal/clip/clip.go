package clip

import (
	"fmt"
	"image/color"
)

// SourceKind identifies where a clip's frames come from.
type SourceKind int

const (
	SourceColor SourceKind = iota
	SourceImage
	SourceVideo
)

func (k SourceKind) String() string {
	switch k {
	case SourceImage:
		return "image"
	case SourceVideo:
		return "video"
	default:
		return "color"
	}
}

// Extend describes how a short video reaches the target duration.
type Extend int

const (
	ExtendNone Extend = iota
	ExtendLoop
	ExtendFreeze
)

func (e Extend) String() string {
	switch e {
	case ExtendLoop:
		return "loop"
	case ExtendFreeze:
		return "freeze"
	default:
		return "none"
	}
}

// Fit controls how a source is adapted to the frame size.
type Fit string

const (
	// FitCover scales uniformly to fill the frame and crops the center.
	FitCover Fit = "cover"
	// FitStretch scales each axis independently.
	FitStretch Fit = "stretch"
)

// ParseFit maps a config value to a Fit; anything unknown is cover.
func ParseFit(s string) Fit {
	if Fit(s) == FitStretch {
		return FitStretch
	}
	return FitCover
}

// Layer is a PNG composited at X,Y over the clip for its whole duration.
type Layer struct {
	Path string
	X, Y int
}

// Clip is a render plan for one timeline entry.
type Clip struct {
	Width, Height int
	Duration      float64

	Source SourceKind
	Path   string
	Color  color.RGBA

	// Offset is the window start within the source video.
	Offset float64
	// SourceDuration is the probed length of the source video.
	SourceDuration float64
	Extend         Extend
	// Loops is the number of times the source is played back to back.
	Loops int

	Fit      Fit
	Overlays []Layer

	FadeIn, FadeOut float64

	Placeholder bool
	Label       string
}

// Solid returns a color clip.
func Solid(w, h int, duration float64, c color.RGBA) Clip {
	return Clip{Width: w, Height: h, Duration: duration, Source: SourceColor, Color: c, Fit: FitStretch, Label: "solid"}
}

// WithDuration returns a copy with Duration set to d.
func (c Clip) WithDuration(d float64) Clip {
	c.Duration = d
	return c
}

// WithLayer returns a copy with l appended to the overlays.
func (c Clip) WithLayer(l Layer) Clip {
	c.Overlays = append(append([]Layer(nil), c.Overlays...), l)
	return c
}

func (c Clip) String() string {
	return fmt.Sprintf("%s %.3fs %dx%d %s", c.Source, c.Duration, c.Width, c.Height, c.Label)
}
