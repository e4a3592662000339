package audiomix

import "math"

// DefaultVolume is the background gain relative to the narration.
const DefaultVolume = 0.1

// Track is an audio file and its duration in seconds.
type Track struct {
	Path     string
	Duration float64
}

// Background is the background track as it will be played.
type Background struct {
	Track
	// Loops is the number of back-to-back plays before trimming.
	Loops int
	Gain  float64
}

// Mix is the planned soundtrack of Target seconds.
type Mix struct {
	Narration  Track
	Background *Background
	Target     float64
}

// NarrationOnly reports whether the mix has no background.
func (m Mix) NarrationOnly() bool { return m.Background == nil }

// Plan builds a mix for target seconds. A nil or empty background yields the
// narration alone; a shorter background is looped floor(target/d)+1 times and
// then trimmed, a longer one is trimmed.
func Plan(narration Track, background *Track, volume, target float64) Mix {
	mix := Mix{Narration: narration, Target: target}
	if background == nil || background.Path == "" || background.Duration <= 0 {
		return mix
	}
	if volume < 0 || math.IsNaN(volume) {
		volume = DefaultVolume
	}
	loops := 1
	if background.Duration < target {
		loops = int(target/background.Duration) + 1
	}
	mix.Background = &Background{Track: *background, Loops: loops, Gain: volume}
	return mix
}
