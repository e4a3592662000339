package render

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"storyreel/internal/audiomix"
	"storyreel/internal/clip"
	"storyreel/internal/timeline"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	fail  func(args []string) error
}

func (r *recorder) run(_ context.Context, _ string, args ...string) error {
	r.mu.Lock()
	r.calls = append(r.calls, args)
	r.mu.Unlock()
	for _, a := range args {
		if strings.HasPrefix(filepath.Base(a), ".mux-") {
			if err := os.WriteFile(a, []byte("muxed"), 0o644); err != nil {
				return err
			}
		}
	}
	if r.fail != nil {
		return r.fail(args)
	}
	return nil
}

func newTestEngine(t *testing.T, rec *recorder) *Engine {
	t.Helper()
	return NewEngine(Options{FPS: 30, Workers: 2, Threads: 4, WorkDir: t.TempDir()}, nil).WithRunner(rec.run)
}

func joined(args []string) string { return strings.Join(args, " ") }

func TestClipArgsLoopedCoverVideo(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	c := clip.Clip{
		Width: 1280, Height: 720, Duration: 5,
		Source: clip.SourceVideo, Path: "/cache/a.mp4",
		SourceDuration: 2, Extend: clip.ExtendLoop, Loops: 3,
		Fit:    clip.FitCover,
		FadeIn: 0.2, FadeOut: 0.2,
		Overlays: []clip.Layer{{Path: "/work/overlay-00001.png", X: 100, Y: 590}},
	}
	got := joined(e.ClipArgs(c, 150, "/work/clip-0000.mp4"))
	for _, want := range []string{
		"-stream_loop 2",
		"-i /cache/a.mp4",
		"force_original_aspect_ratio=increase",
		"crop=1280:720",
		"-i /work/overlay-00001.png",
		"overlay",
		"fade",
		"-frames:v 150",
		"-c:v libx264",
		"-preset medium",
		"-threads 4",
		"/work/clip-0000.mp4",
		"-y",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("args missing %q:\n%s", want, got)
		}
	}
}

func TestClipArgsFreezeAndWindow(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	freeze := joined(e.ClipArgs(clip.Clip{
		Width: 64, Height: 36, Duration: 2, Source: clip.SourceVideo, Path: "a.mp4",
		SourceDuration: 0.3, Extend: clip.ExtendFreeze, Fit: clip.FitStretch,
	}, 60, "out.mp4"))
	if !strings.Contains(freeze, "tpad") || !strings.Contains(freeze, "stop_mode=clone") || !strings.Contains(freeze, "stop_duration=1.700") {
		t.Fatalf("freeze args missing tpad clone: %s", freeze)
	}
	if strings.Contains(freeze, "force_original_aspect_ratio") {
		t.Fatalf("stretch fit should not preserve aspect: %s", freeze)
	}

	window := joined(e.ClipArgs(clip.Clip{
		Width: 64, Height: 36, Duration: 5, Source: clip.SourceVideo, Path: "a.mp4",
		SourceDuration: 20, Offset: 7.25, Fit: clip.FitCover,
	}, 150, "out.mp4"))
	if !strings.Contains(window, "-ss 7.250") || strings.Contains(window, "stream_loop") {
		t.Fatalf("window args unexpected: %s", window)
	}
}

func TestClipArgsStillAndColor(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	still := joined(e.ClipArgs(clip.Clip{Width: 64, Height: 36, Duration: 1, Source: clip.SourceImage, Path: "p.jpg"}, 30, "o.mp4"))
	if !strings.Contains(still, "-loop 1") || !strings.Contains(still, "-i p.jpg") {
		t.Fatalf("still args: %s", still)
	}
	solid := joined(e.ClipArgs(clip.Solid(64, 36, 1, color.RGBA{R: 30, G: 40, B: 80, A: 255}), 30, "o.mp4"))
	if !strings.Contains(solid, "-f lavfi") || !strings.Contains(solid, "color=c=0x1E2850:s=64x36:r=30") {
		t.Fatalf("solid args: %s", solid)
	}
}

func TestFrameCountsFollowTimelineClock(t *testing.T) {
	clips := []clip.Clip{
		clip.Solid(64, 36, 1.01, color.RGBA{A: 255}),
		clip.Solid(64, 36, 1.01, color.RGBA{A: 255}),
		clip.Solid(64, 36, 1.01, color.RGBA{A: 255}),
	}
	counts := FrameCounts(clips, 30)
	total := 0
	for _, n := range counts {
		total += n
	}
	if want := int(math.Round(3.03 * 30)); total != want {
		t.Fatalf("total frames = %d (%v), want %d", total, counts, want)
	}
	if counts[0] != 30 || counts[1] != 31 || counts[2] != 30 {
		t.Fatalf("unexpected per-clip frames %v", counts)
	}

	tiny := FrameCounts([]clip.Clip{
		clip.Solid(64, 36, 2, color.RGBA{A: 255}),
		clip.Solid(64, 36, 0.0004, color.RGBA{A: 255}),
	}, 30)
	if tiny[0] != 60 || tiny[1] != 0 {
		t.Fatalf("expected sub-frame clip to get 0 frames, got %v", tiny)
	}
}

func TestClipArgsFadeOutEndsOnLastFrame(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	c := clip.Solid(64, 36, 1.234, color.RGBA{A: 255})
	c.FadeOut = 0.2
	got := joined(e.ClipArgs(c, 38, "o.mp4"))
	// 38 frames at 30 fps last 1.2667s, so the fade starts at 1.067.
	if !strings.Contains(got, "st=1.067") || !strings.Contains(got, "-frames:v 38") {
		t.Fatalf("fade out not aligned to frame count: %s", got)
	}
}

func TestRenderSkipsSubFrameClips(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(t, rec)
	tl := timeline.Timeline{Clips: []clip.Clip{
		clip.Solid(64, 36, 2, color.RGBA{A: 255}),
		clip.Solid(64, 36, 0.0004, color.RGBA{A: 255}),
	}}
	mix := audiomix.Plan(audiomix.Track{Path: "n.wav", Duration: 2.0004}, nil, 0.1, 2.0004)
	if err := e.Render(context.Background(), tl, mix, filepath.Join(t.TempDir(), "o.mp4")); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(rec.calls) != 3 {
		t.Fatalf("expected 1 clip render + concat + mux, got %d", len(rec.calls))
	}
	for _, call := range rec.calls {
		if strings.Contains(joined(call), "clip-0001") {
			t.Fatalf("sub-frame clip was rendered: %v", call)
		}
	}
}

func TestMuxArgs(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	narr := audiomix.Track{Path: "narration.wav", Duration: 25}

	only := joined(e.MuxArgs("timeline.mp4", audiomix.Plan(narr, nil, 0.1, 25), "out.mp4"))
	if strings.Contains(only, "amix") || !strings.Contains(only, "-i narration.wav") || !strings.Contains(only, "-t 25.000") {
		t.Fatalf("narration-only mux: %s", only)
	}

	mixed := joined(e.MuxArgs("timeline.mp4", audiomix.Plan(narr, &audiomix.Track{Path: "bg.mp3", Duration: 10}, 0.1, 25), "out.mp4"))
	for _, want := range []string{"-stream_loop 2", "-i bg.mp3", "amix", "volume=0.1", "-c:v copy", "-c:a aac"} {
		if !strings.Contains(mixed, want) {
			t.Fatalf("mixed mux missing %q: %s", want, mixed)
		}
	}
}

func TestRenderRunsStepsInOrder(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(t, rec)
	tl := timeline.Assemble([]clip.Clip{
		clip.Solid(64, 36, 1, color.RGBA{A: 255}),
		clip.Solid(64, 36, 2, color.RGBA{A: 255}),
		clip.Solid(64, 36, 1, color.RGBA{A: 255}),
	}, timeline.Options{FPS: 30}, 4)
	out := filepath.Join(t.TempDir(), "final.mp4")

	mix := audiomix.Plan(audiomix.Track{Path: "n.wav", Duration: 4}, nil, 0.1, 4)
	if err := e.Render(context.Background(), tl, mix, out); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(rec.calls) != 5 {
		t.Fatalf("expected 3 clip renders + concat + mux, got %d", len(rec.calls))
	}
	if !strings.Contains(joined(rec.calls[3]), "concat") {
		t.Fatalf("expected concat as 4th call: %v", rec.calls[3])
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output renamed into place: %v", err)
	}

	list, err := os.ReadFile(filepath.Join(e.opts.WorkDir, "concat.txt"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(list)), "\n")
	for i, line := range lines {
		if !strings.Contains(line, fmt.Sprintf("clip-%04d.mp4", i)) {
			t.Fatalf("concat order wrong at %d: %s", i, line)
		}
	}
}

func TestRenderClipFailureAborts(t *testing.T) {
	rec := &recorder{fail: func(args []string) error {
		if strings.Contains(joined(args), "clip-0001") {
			return errors.New("exit status 1")
		}
		return nil
	}}
	e := newTestEngine(t, rec)
	tl := timeline.Timeline{Clips: []clip.Clip{
		clip.Solid(64, 36, 1, color.RGBA{A: 255}),
		clip.Solid(64, 36, 1, color.RGBA{A: 255}),
	}}
	err := e.Render(context.Background(), tl, audiomix.Mix{Narration: audiomix.Track{Path: "n.wav"}, Target: 2}, filepath.Join(t.TempDir(), "o.mp4"))
	if err == nil || !strings.Contains(err.Error(), "clip 1") {
		t.Fatalf("expected clip failure, got %v", err)
	}
}

func TestRenderEmptyTimeline(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	if err := e.Render(context.Background(), timeline.Timeline{}, audiomix.Mix{}, "o.mp4"); err == nil {
		t.Fatal("expected error for empty timeline")
	}
}
