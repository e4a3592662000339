package render

import (
	"fmt"
	"math"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"storyreel/internal/audiomix"
	"storyreel/internal/clip"
)

var quietArgs = []string{"-hide_banner", "-loglevel", "error", "-nostdin"}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// ClipArgs returns the ffmpeg arguments that encode frames frames of c to out.
func (e *Engine) ClipArgs(c clip.Clip, frames int, out string) []string {
	stream := e.clipInput(c)

	w, h := strconv.Itoa(c.Width), strconv.Itoa(c.Height)
	if c.Fit == clip.FitStretch {
		stream = stream.Filter("scale", ffmpeg.Args{w, h})
	} else {
		stream = stream.
			Filter("scale", ffmpeg.Args{w, h}, ffmpeg.KwArgs{"force_original_aspect_ratio": "increase"}).
			Filter("crop", ffmpeg.Args{w, h})
	}
	stream = stream.
		Filter("setsar", ffmpeg.Args{"1"}).
		Filter("fps", ffmpeg.Args{strconv.Itoa(e.opts.FPS)})
	if c.Source == clip.SourceVideo && c.Extend != clip.ExtendFreeze {
		// Frame rounding can ask for one frame more than the source holds.
		stream = stream.Filter("tpad", ffmpeg.Args{}, ffmpeg.KwArgs{"stop_mode": "clone", "stop": 1})
	}

	for _, layer := range c.Overlays {
		stream = stream.Overlay(ffmpeg.Input(layer.Path), "", ffmpeg.KwArgs{"x": layer.X, "y": layer.Y})
	}
	if c.FadeIn > 0 {
		stream = stream.Filter("fade", ffmpeg.Args{}, ffmpeg.KwArgs{"t": "in", "st": "0", "d": seconds(c.FadeIn)})
	}
	if c.FadeOut > 0 {
		length := float64(frames) / float64(e.opts.FPS)
		stream = stream.Filter("fade", ffmpeg.Args{}, ffmpeg.KwArgs{"t": "out", "st": seconds(max(0, length-c.FadeOut)), "d": seconds(c.FadeOut)})
	}

	kw := ffmpeg.KwArgs{
		"frames:v": frames,
		"c:v":     e.opts.Codec,
		"preset":  e.opts.Preset,
		"pix_fmt": "yuv420p",
		"r":       e.opts.FPS,
	}
	if e.opts.Threads > 0 {
		kw["threads"] = e.opts.Threads
	}
	return stream.Output(out, kw).GlobalArgs(quietArgs...).OverWriteOutput().GetArgs()
}

func (e *Engine) clipInput(c clip.Clip) *ffmpeg.Stream {
	switch c.Source {
	case clip.SourceVideo:
		kw := ffmpeg.KwArgs{}
		switch c.Extend {
		case clip.ExtendLoop:
			if c.Loops > 1 {
				kw["stream_loop"] = c.Loops - 1
			}
		case clip.ExtendNone:
			if c.Offset > 0 {
				kw["ss"] = seconds(c.Offset)
			}
		}
		stream := ffmpeg.Input(c.Path, kw).Video()
		if c.Extend == clip.ExtendFreeze {
			hold := max(0, c.Duration-c.SourceDuration)
			stream = stream.Filter("tpad", ffmpeg.Args{}, ffmpeg.KwArgs{"stop_mode": "clone", "stop_duration": seconds(hold)})
		}
		return stream
	case clip.SourceImage:
		return ffmpeg.Input(c.Path, ffmpeg.KwArgs{"loop": 1, "framerate": e.opts.FPS}).Video()
	default:
		src := fmt.Sprintf("color=c=0x%02X%02X%02X:s=%dx%d:r=%d", c.Color.R, c.Color.G, c.Color.B, c.Width, c.Height, e.opts.FPS)
		return ffmpeg.Input(src, ffmpeg.KwArgs{"f": "lavfi"})
	}
}

// FrameCounts gives each clip a whole number of frames by rounding its
// cumulative end position, so the joined video stays on the timeline clock:
// clip i gets round(end_i*fps) - round(start_i*fps). Very short clips may get 0.
func FrameCounts(clips []clip.Clip, fps int) []int {
	counts := make([]int, len(clips))
	var end float64
	prev := 0
	for i, c := range clips {
		end += c.Duration
		next := int(math.Round(end * float64(fps)))
		counts[i] = max(0, next-prev)
		prev = max(prev, next)
	}
	return counts
}

// ConcatArgs returns the arguments that join the parts listed in listPath.
func (e *Engine) ConcatArgs(listPath, out string) []string {
	return ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": 0}).
		Output(out, ffmpeg.KwArgs{"c": "copy"}).
		GlobalArgs(quietArgs...).
		OverWriteOutput().
		GetArgs()
}

// MuxArgs returns the arguments that combine video with the planned mix.
func (e *Engine) MuxArgs(video string, mix audiomix.Mix, out string) []string {
	target := seconds(mix.Target)
	narration := ffmpeg.Input(mix.Narration.Path).Audio().
		Filter("atrim", ffmpeg.Args{}, ffmpeg.KwArgs{"start": "0", "end": target}).
		Filter("asetpts", ffmpeg.Args{"PTS-STARTPTS"})

	audio := narration
	if bg := mix.Background; bg != nil {
		kw := ffmpeg.KwArgs{}
		if bg.Loops > 1 {
			kw["stream_loop"] = bg.Loops - 1
		}
		background := ffmpeg.Input(bg.Path, kw).Audio().
			Filter("atrim", ffmpeg.Args{}, ffmpeg.KwArgs{"start": "0", "end": target}).
			Filter("asetpts", ffmpeg.Args{"PTS-STARTPTS"}).
			Filter("volume", ffmpeg.Args{strconv.FormatFloat(bg.Gain, 'f', -1, 64)})
		audio = ffmpeg.Filter([]*ffmpeg.Stream{narration, background}, "amix", ffmpeg.Args{},
			ffmpeg.KwArgs{"inputs": 2, "duration": "first", "dropout_transition": 0, "normalize": 0})
	}

	kw := ffmpeg.KwArgs{
		"c:v":      "copy",
		"c:a":      e.opts.AudioCodec,
		"b:a":      "192k",
		"t":        target,
		"movflags": "+faststart",
	}
	return ffmpeg.Output([]*ffmpeg.Stream{ffmpeg.Input(video).Video(), audio}, out, kw).
		GlobalArgs(quietArgs...).
		OverWriteOutput().
		GetArgs()
}
