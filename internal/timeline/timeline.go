package timeline

import (
	"image/color"
	"math"

	"storyreel/internal/clip"
)

const (
	// maxOverlap caps the crossfade length in seconds.
	maxOverlap = 0.25
	// overlapShare caps the crossfade as a fraction of each adjacent clip.
	overlapShare = 0.25
	// overlapFrames is the preferred crossfade length in frames.
	overlapFrames = 6
	// epsilon is the tolerance for duration equality.
	epsilon = 1e-9
)

// Options controls assembly.
type Options struct {
	FPS       int
	Crossfade bool
	// Width and Height size the filler clip; zero uses the first clip's frame.
	Width, Height int
}

// Timeline is an ordered clip sequence.
type Timeline struct {
	Clips []clip.Clip
	// Padded is the duration of black filler appended during reconciliation.
	Padded float64
	// Trimmed is the duration cut from the end during reconciliation.
	Trimmed float64
}

// Duration is the sum of member clip durations.
func (t Timeline) Duration() float64 {
	total := 0.0
	for _, c := range t.Clips {
		total += c.Duration
	}
	return total
}

// SafeOverlap returns the crossfade length between clips of length prev and
// next: min(6/fps, 0.25, prev/4, next/4). It reports false when that is
// shorter than one frame, meaning the clips should hard cut.
func SafeOverlap(prev, next float64, fps int) (float64, bool) {
	if fps <= 0 {
		return 0, false
	}
	frame := 1.0 / float64(fps)
	overlap := math.Min(math.Min(overlapFrames*frame, maxOverlap), math.Min(prev*overlapShare, next*overlapShare))
	if overlap < frame {
		return 0, false
	}
	return overlap, true
}

// Assemble joins clips in order, applies crossfades when enabled, and
// reconciles the result to narration seconds.
func Assemble(clips []clip.Clip, opts Options, narration float64) Timeline {
	t := Timeline{Clips: append([]clip.Clip(nil), clips...)}
	if opts.Crossfade {
		applyCrossfades(t.Clips, opts.FPS)
	}
	w, h := opts.Width, opts.Height
	if (w <= 0 || h <= 0) && len(t.Clips) > 0 {
		w, h = t.Clips[0].Width, t.Clips[0].Height
	}
	return t.Reconcile(narration, w, h)
}

func applyCrossfades(clips []clip.Clip, fps int) {
	for i := 1; i < len(clips); i++ {
		overlap, ok := SafeOverlap(clips[i-1].Duration, clips[i].Duration, fps)
		if !ok {
			continue
		}
		clips[i-1].FadeOut = overlap
		clips[i].FadeIn = overlap
	}
}

// Reconcile trims or pads t so its duration equals narration. Clips after
// the cut are dropped and the straddling clip is shortened with its fade-out
// cleared; a shortfall is filled with a black w x h clip.
func (t Timeline) Reconcile(narration float64, w, h int) Timeline {
	total := t.Duration()
	switch {
	case math.Abs(total-narration) <= epsilon:
		return t
	case total > narration:
		kept := make([]clip.Clip, 0, len(t.Clips))
		elapsed := 0.0
		for _, c := range t.Clips {
			remaining := narration - elapsed
			if remaining <= epsilon {
				break
			}
			if c.Duration > remaining {
				c = c.WithDuration(remaining)
				c.FadeOut = 0
				c.FadeIn = math.Min(c.FadeIn, remaining*overlapShare)
			}
			kept = append(kept, c)
			elapsed += c.Duration
		}
		t.Trimmed += total - narration
		t.Clips = kept
	default:
		missing := narration - total
		filler := clip.Solid(w, h, missing, color.RGBA{A: 255})
		filler.Label = "filler"
		t.Clips = append(append([]clip.Clip(nil), t.Clips...), filler)
		t.Padded += missing
	}
	return t
}
