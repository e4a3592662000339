package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrUndecodable marks media without a positive duration or a sized video stream.
var ErrUndecodable = errors.New("media is not decodable")

// Info is the subset of probe output the build consumes.
type Info struct {
	Duration float64
	Width    int
	Height   int
	FPS      float64
	HasVideo bool
	HasAudio bool
}

// Prober inspects media files with a fixed ffprobe binary.
type Prober struct {
	binary string
	run    Runner
}

// NewProber returns a Prober using binary (default "ffprobe").
func NewProber(binary string) *Prober {
	return &Prober{binary: binary, run: runFFprobe}
}

// WithRunner swaps the command runner (for testing).
func (p *Prober) WithRunner(run Runner) *Prober {
	p.run = run
	return p
}

// Probe returns Info for path, or ErrUndecodable when the duration is unusable.
func (p *Prober) Probe(ctx context.Context, path string) (Info, error) {
	result, err := inspectWith(ctx, p.run, p.binary, path)
	if err != nil {
		return Info{}, err
	}
	return result.Info(path)
}

// ProbeStill returns Info for a still image. Image demuxers report no
// reliable duration, so only a video stream with real dimensions is required.
func (p *Prober) ProbeStill(ctx context.Context, path string) (Info, error) {
	result, err := inspectWith(ctx, p.run, p.binary, path)
	if err != nil {
		return Info{}, err
	}
	return result.StillInfo(path)
}

// StillInfo converts a Result for an image, rejecting files without a video
// stream of positive size.
func (r Result) StillInfo(path string) (Info, error) {
	v, ok := r.VideoStream()
	if !ok || v.Width <= 0 || v.Height <= 0 {
		return Info{}, fmt.Errorf("%s: no image stream: %w", path, ErrUndecodable)
	}
	return Info{HasVideo: true, Width: v.Width, Height: v.Height}, nil
}

// Info converts a Result, rejecting non-positive or unparsable durations.
func (r Result) Info(path string) (Info, error) {
	d := r.DurationSeconds()
	if math.IsNaN(d) || d <= 0 {
		return Info{}, fmt.Errorf("%s: %w", path, ErrUndecodable)
	}
	info := Info{Duration: d, HasAudio: r.AudioStreamCount() > 0}
	if v, ok := r.VideoStream(); ok {
		info.HasVideo = true
		info.Width = v.Width
		info.Height = v.Height
		info.FPS = FrameRate(v.AvgFrameRate)
	}
	return info, nil
}
