package pipeline_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/internal/audiomix"
	"storyreel/internal/clip"
	"storyreel/internal/logging"
	"storyreel/internal/media/ffprobe"
	"storyreel/internal/pipeline"
	"storyreel/internal/query"
	"storyreel/internal/resolve"
	"storyreel/internal/segment"
	"storyreel/internal/services"
	"storyreel/internal/sources"
	"storyreel/internal/timeline"
)

type stubQueries struct {
	simplified []string
}

func (s *stubQueries) Generate(seg segment.Segment, _ query.Style) string {
	return "q:" + seg.Text
}

func (s *stubQueries) Simplify(failed string, _ query.Style) string {
	s.simplified = append(s.simplified, failed)
	return "simple:" + failed
}

type stubResolver struct {
	assets  map[string]resolve.Asset
	queries []string
}

func (r *stubResolver) Resolve(_ context.Context, q string, used *resolve.UsedSet) resolve.Asset {
	r.queries = append(r.queries, q)
	if a, ok := r.assets[q]; ok {
		used.Add(resolve.Locator(a))
		return a
	}
	return resolve.NoAsset{Query: q}
}

type stubMaterializer struct {
	drift     float64
	subtitles []string
}

func (m *stubMaterializer) Materialize(_ context.Context, req clip.Request) clip.Clip {
	c := clip.Clip{Width: 64, Height: 36, Duration: req.Duration + m.drift, Label: req.Query}
	if req.Asset.Kind() == resolve.KindNone {
		c.Placeholder = true
	}
	return c
}

func (m *stubMaterializer) WithSubtitle(c clip.Clip, text string) clip.Clip {
	m.subtitles = append(m.subtitles, text)
	return c.WithLayer(clip.Layer{Path: text})
}

type stubRenderer struct {
	timeline timeline.Timeline
	mix      audiomix.Mix
	out      string
	err      error
}

func (r *stubRenderer) Render(_ context.Context, tl timeline.Timeline, mix audiomix.Mix, out string) error {
	r.timeline, r.mix, r.out = tl, mix, out
	return r.err
}

type stubProber struct {
	infos map[string]ffprobe.Info
}

func (p stubProber) Probe(_ context.Context, path string) (ffprobe.Info, error) {
	if info, ok := p.infos[path]; ok {
		return info, nil
	}
	return ffprobe.Info{}, errors.New("not found")
}

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, locator string, _ sources.Kind) (string, error) {
	return locator, nil
}

type stubLocker struct {
	locked, unlocked int
	err              error
}

func (l *stubLocker) Lock(context.Context) error {
	l.locked++
	return l.err
}

func (l *stubLocker) Unlock() error {
	l.unlocked++
	return nil
}

type fixture struct {
	queries      *stubQueries
	resolver     *stubResolver
	materializer *stubMaterializer
	renderer     *stubRenderer
	locker       *stubLocker
	prober       stubProber
}

func newFixture() *fixture {
	return &fixture{
		queries: &stubQueries{},
		resolver: &stubResolver{assets: map[string]resolve.Asset{
			"q:city":  resolve.VideoAsset{Locator: "https://v/1.mp4", Source: "pexels"},
			"q:ocean": resolve.VideoAsset{Locator: "https://v/2.mp4", Source: "pixabay", Reused: true},
			"custom":  resolve.ImageAsset{Locator: "https://i/1.jpg", Source: "pexels"},
		}},
		materializer: &stubMaterializer{},
		renderer:     &stubRenderer{},
		locker:       &stubLocker{},
		prober: stubProber{infos: map[string]ffprobe.Info{
			"narration.wav": {Duration: 10, HasAudio: true},
			"music.mp3":     {Duration: 4, HasAudio: true},
		}},
	}
}

func (f *fixture) builder() *pipeline.Builder {
	return pipeline.NewBuilder(pipeline.Deps{
		Queries:      f.queries,
		Resolver:     f.resolver,
		Materializer: f.materializer,
		Renderer:     f.renderer,
		Fetcher:      stubFetcher{},
		Prober:       f.prober,
		Locker:       f.locker,
	}, pipeline.Frame{Width: 64, Height: 36, FPS: 30}, logging.NewNop())
}

func segments() []segment.Segment {
	return []segment.Segment{
		{Index: 0, Start: 0, End: 3, Text: "city"},
		{Index: 1, Start: 3, End: 6, Text: "ocean"},
		{Index: 2, Start: 6, End: 8, Text: "nothing"},
	}
}

func TestBuildAssemblesSegmentsInOrder(t *testing.T) {
	f := newFixture()
	res, err := f.builder().Build(context.Background(), pipeline.Request{
		Segments:  segments(),
		Narration: "narration.wav",
		Output:    "out.mp4",
		Style:     query.StyleGeneral,
		Subtitles: true,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.BuildID == "" {
		t.Fatal("expected build id")
	}
	if len(res.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(res.Rows))
	}

	first, second, third := res.Rows[0], res.Rows[1], res.Rows[2]
	if first.Kind != "video" || first.Source != "pexels" || first.Locator != "https://v/1.mp4" || first.Reused {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if !second.Reused || second.Source != "pixabay" {
		t.Fatalf("unexpected second row: %+v", second)
	}
	if third.Kind != pipeline.KindPlaceholder || third.Simplified != "simple:q:nothing" {
		t.Fatalf("unexpected third row: %+v", third)
	}
	if res.Placeholders() != 1 || res.Reused() != 1 {
		t.Fatalf("unexpected counts: placeholders=%d reused=%d", res.Placeholders(), res.Reused())
	}

	wantQueries := []string{"q:city", "q:ocean", "q:nothing", "simple:q:nothing"}
	if strings.Join(f.resolver.queries, ",") != strings.Join(wantQueries, ",") {
		t.Fatalf("unexpected resolve order: %v", f.resolver.queries)
	}
	if strings.Join(f.materializer.subtitles, ",") != "city,ocean,nothing" {
		t.Fatalf("unexpected subtitles: %v", f.materializer.subtitles)
	}

	// Captions cover 8s of a 10s narration, so 2s of filler is appended.
	tl := f.renderer.timeline
	if math.Abs(tl.Duration()-10) > 1e-9 {
		t.Fatalf("expected timeline of 10s, got %v", tl.Duration())
	}
	if math.Abs(res.Padded-2) > 1e-9 || res.Trimmed != 0 {
		t.Fatalf("unexpected reconciliation: padded=%v trimmed=%v", res.Padded, res.Trimmed)
	}
	if len(tl.Clips) != 4 || tl.Clips[0].Label != "q:city" {
		t.Fatalf("unexpected clips: %v", tl.Clips)
	}
	if f.renderer.out != "out.mp4" {
		t.Fatalf("unexpected output %q", f.renderer.out)
	}
	if !f.renderer.mix.NarrationOnly() || res.Music {
		t.Fatal("expected narration-only mix without music")
	}
	if f.locker.locked != 1 || f.locker.unlocked != 1 {
		t.Fatalf("expected one lock/unlock, got %d/%d", f.locker.locked, f.locker.unlocked)
	}
}

func TestBuildCustomQueryBypassesGenerator(t *testing.T) {
	f := newFixture()
	res, err := f.builder().Build(context.Background(), pipeline.Request{
		Segments:      segments()[:1],
		Narration:     "narration.wav",
		Output:        "out.mp4",
		CustomQueries: map[int]string{0: " custom "},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	row := res.Rows[0]
	if row.Query != "custom" || !row.Custom || row.Kind != "image" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if len(f.materializer.subtitles) != 0 {
		t.Fatal("subtitles disabled but overlay requested")
	}
}

func TestBuildTrimsToShorterNarration(t *testing.T) {
	f := newFixture()
	f.prober.infos["narration.wav"] = ffprobe.Info{Duration: 4, HasAudio: true}
	res, err := f.builder().Build(context.Background(), pipeline.Request{
		Segments:  segments(),
		Narration: "narration.wav",
		Output:    "out.mp4",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if math.Abs(f.renderer.timeline.Duration()-4) > 1e-9 {
		t.Fatalf("expected 4s timeline, got %v", f.renderer.timeline.Duration())
	}
	if math.Abs(res.Trimmed-4) > 1e-9 {
		t.Fatalf("expected 4s trimmed, got %v", res.Trimmed)
	}
	// The report still lists every segment that was planned.
	if len(res.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(res.Rows))
	}
}

func TestBuildMissingNarrationFallsBackToCaptionEnd(t *testing.T) {
	f := newFixture()
	res, err := f.builder().Build(context.Background(), pipeline.Request{
		Segments:  segments(),
		Narration: "missing.wav",
		Output:    "out.mp4",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Narration != 8 || res.Padded != 0 || res.Trimmed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestBuildNarrationFallbackUsesLatestCaptionEnd(t *testing.T) {
	f := newFixture()
	res, err := f.builder().Build(context.Background(), pipeline.Request{
		Segments: []segment.Segment{
			{Index: 0, Start: 0, End: 3, Text: "city"},
			{Index: 1, Start: 3, End: 9, Text: "ocean"},
			{Index: 2, Start: 6, End: 8, Text: "nothing"},
		},
		Narration: "missing.wav",
		Output:    "out.mp4",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Narration != 9 {
		t.Fatalf("narration fallback = %v, want 9", res.Narration)
	}
	if math.Abs(res.Duration-9) > 1e-9 {
		t.Fatalf("timeline duration = %v, want 9", res.Duration)
	}
}

func TestBuildMixesBackgroundMusic(t *testing.T) {
	f := newFixture()
	res, err := f.builder().Build(context.Background(), pipeline.Request{
		Segments:    segments(),
		Narration:   "narration.wav",
		Output:      "out.mp4",
		Music:       "music.mp3",
		MusicVolume: 0.2,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	bg := f.renderer.mix.Background
	if !res.Music || bg == nil {
		t.Fatal("expected background music in mix")
	}
	if bg.Loops != 3 || bg.Gain != 0.2 || f.renderer.mix.Target != 10 {
		t.Fatalf("unexpected background plan: %+v target=%v", bg, f.renderer.mix.Target)
	}
}

func TestBuildUnusableMusicDegrades(t *testing.T) {
	f := newFixture()
	res, err := f.builder().Build(context.Background(), pipeline.Request{
		Segments:  segments(),
		Narration: "narration.wav",
		Output:    "out.mp4",
		Music:     "broken.mp3",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Music || !f.renderer.mix.NarrationOnly() {
		t.Fatal("expected narration-only mix")
	}
}

func TestBuildEmptySegmentsAborts(t *testing.T) {
	f := newFixture()
	_, err := f.builder().Build(context.Background(), pipeline.Request{Narration: "narration.wav", Output: "out.mp4"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.locker.locked != 0 || f.renderer.out != "" {
		t.Fatal("empty build should not lock or render")
	}
}

func TestBuildRenderFailureAborts(t *testing.T) {
	f := newFixture()
	f.renderer.err = services.Wrap(services.ErrExternalTool, "render", "mux", "ffmpeg failed", nil)
	_, err := f.builder().Build(context.Background(), pipeline.Request{
		Segments:  segments(),
		Narration: "narration.wav",
		Output:    "out.mp4",
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if f.locker.unlocked != 1 {
		t.Fatal("expected cache unlock after failure")
	}
}

func TestBuildLockFailureAborts(t *testing.T) {
	f := newFixture()
	f.locker.err = errors.New("held")
	_, err := f.builder().Build(context.Background(), pipeline.Request{
		Segments:  segments(),
		Narration: "narration.wav",
		Output:    "out.mp4",
	})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if len(f.resolver.queries) != 0 {
		t.Fatal("no segment should be resolved without the lock")
	}
}

func TestBuildPanicsOnDurationDrift(t *testing.T) {
	f := newFixture()
	f.materializer.drift = 0.5
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for clip duration mismatch")
		}
	}()
	_, _ = f.builder().Build(context.Background(), pipeline.Request{
		Segments:  segments(),
		Narration: "narration.wav",
		Output:    "out.mp4",
	})
}

func TestBuildClampsShortSegments(t *testing.T) {
	f := newFixture()
	_, err := f.builder().Build(context.Background(), pipeline.Request{
		Segments:   []segment.Segment{{Index: 0, Start: 1, End: 1.05, Text: "city"}},
		Narration:  "missing.wav",
		Output:     "out.mp4",
		MinSegment: 0.5,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := f.renderer.timeline.Clips[0].Duration; math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected clamped 0.5s clip, got %v", got)
	}
}

func TestLoadCustomQueries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.json")
	if err := os.WriteFile(path, []byte(`{"0": "city lights", "4": "  ", "12": "forest"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := pipeline.LoadCustomQueries(path)
	if err != nil {
		t.Fatalf("LoadCustomQueries: %v", err)
	}
	if len(got) != 2 || got[0] != "city lights" || got[12] != "forest" {
		t.Fatalf("unexpected queries: %v", got)
	}
}

func TestParseCustomQueriesRejectsBadInput(t *testing.T) {
	for name, body := range map[string]string{
		"not json":   `{"0": `,
		"array":      `["a"]`,
		"bad key":    `{"first": "a"}`,
		"negative":   `{"-1": "a"}`,
		"non string": `{"0": 3}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := pipeline.ParseCustomQueries([]byte(body)); !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}

	if _, err := pipeline.LoadCustomQueries(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing file, got %v", err)
	}
}

func TestBuildKeepsCallerID(t *testing.T) {
	f := newFixture()
	res, err := f.builder().Build(context.Background(), pipeline.Request{
		ID:        "run-42",
		Segments:  segments()[:1],
		Narration: "narration.wav",
		Output:    "out.mp4",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.BuildID != "run-42" {
		t.Fatalf("expected caller id, got %q", res.BuildID)
	}
}
