package resolve_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"storyreel/internal/resolve"
	"storyreel/internal/sources"
)

type fakeSource struct {
	name   string
	kind   sources.Kind
	result sources.Result
	calls  int
}

func (f *fakeSource) Name() string       { return f.name }
func (f *fakeSource) Kind() sources.Kind { return f.kind }
func (f *fakeSource) Search(context.Context, string, int) sources.Result {
	f.calls++
	return f.result
}

func newResolver(chain resolve.Chain) *resolve.Resolver {
	return resolve.NewResolver(chain, 6, rand.New(rand.NewPCG(7, 7)), nil)
}

func TestResolveAvoidsReuseUntilExhausted(t *testing.T) {
	primary := &fakeSource{name: "pexels", result: sources.Found("pexels", []string{"a", "b", "c"})}
	r := newResolver(resolve.Chain{Primary: primary})
	used := resolve.NewUsedSet()

	seen := map[string]bool{}
	for i := range 3 {
		asset := r.Resolve(context.Background(), "ocean", used)
		video, ok := asset.(resolve.VideoAsset)
		if !ok {
			t.Fatalf("resolve %d: expected video asset, got %T", i, asset)
		}
		if video.Reused {
			t.Fatalf("resolve %d: unexpected reuse of %q", i, video.Locator)
		}
		if seen[video.Locator] {
			t.Fatalf("resolve %d: locator %q returned twice", i, video.Locator)
		}
		seen[video.Locator] = true
	}

	fourth, ok := r.Resolve(context.Background(), "ocean", used).(resolve.VideoAsset)
	if !ok {
		t.Fatal("expected fourth resolve to still return a video")
	}
	if !fourth.Reused || !seen[fourth.Locator] {
		t.Fatalf("expected reuse of an earlier locator, got %+v", fourth)
	}
	if used.Len() != 3 {
		t.Fatalf("expected 3 distinct locators used, got %d", used.Len())
	}
}

func TestResolveMergesPrimaryAndFallback(t *testing.T) {
	primary := &fakeSource{name: "pexels", result: sources.Found("pexels", []string{"shared"})}
	fallback := &fakeSource{name: "pixabay", result: sources.Found("pixabay", []string{"shared", "other"})}
	r := newResolver(resolve.Chain{Primary: primary, Fallback: fallback})
	used := resolve.NewUsedSet()

	first := r.Resolve(context.Background(), "q", used)
	second := r.Resolve(context.Background(), "q", used)
	if resolve.Locator(first) == resolve.Locator(second) {
		t.Fatalf("expected distinct locators across merged candidates, got %q twice", resolve.Locator(first))
	}
	if primary.calls != 2 || fallback.calls != 2 {
		t.Fatalf("expected both sources queried each time, got %d/%d", primary.calls, fallback.calls)
	}
}

func TestResolveFallsBackToImages(t *testing.T) {
	primary := &fakeSource{name: "pexels"}
	images := &fakeSource{name: "pexels-photos", kind: sources.KindImage, result: sources.Found("pexels-photos", []string{"img-1"})}
	r := newResolver(resolve.Chain{Primary: primary, Images: images})

	asset := r.Resolve(context.Background(), "desert", resolve.NewUsedSet())
	img, ok := asset.(resolve.ImageAsset)
	if !ok {
		t.Fatalf("expected image asset, got %T", asset)
	}
	if img.Locator != "img-1" || img.Source != "pexels-photos" {
		t.Fatalf("unexpected image asset %+v", img)
	}
	if asset.Kind() != resolve.KindImage {
		t.Fatalf("unexpected kind %v", asset.Kind())
	}
}

func TestResolveTreatsFailureAsEmpty(t *testing.T) {
	primary := &fakeSource{name: "pexels", result: sources.Failed("pexels", errors.New("timeout"))}
	fallback := &fakeSource{name: "pixabay", result: sources.Found("pixabay", []string{"px-1"})}
	r := newResolver(resolve.Chain{Primary: primary, Fallback: fallback})

	asset := r.Resolve(context.Background(), "forest", resolve.NewUsedSet())
	if got := resolve.SourceName(asset); got != "pixabay" {
		t.Fatalf("expected fallback source, got %q (%T)", got, asset)
	}
}

func TestResolveNoAsset(t *testing.T) {
	failing := &fakeSource{name: "pexels", result: sources.Failed("pexels", errors.New("boom"))}
	r := newResolver(resolve.Chain{Primary: failing, Images: &fakeSource{name: "pixabay-images", kind: sources.KindImage}})

	asset := r.Resolve(context.Background(), "nothing", resolve.NewUsedSet())
	none, ok := asset.(resolve.NoAsset)
	if !ok {
		t.Fatalf("expected NoAsset, got %T", asset)
	}
	if none.Query != "nothing" || resolve.Locator(asset) != "" {
		t.Fatalf("unexpected NoAsset %+v", none)
	}
}

func TestResolveWithEmptyChain(t *testing.T) {
	r := newResolver(resolve.Chain{})
	if _, ok := r.Resolve(context.Background(), "x", resolve.NewUsedSet()).(resolve.NoAsset); !ok {
		t.Fatal("expected NoAsset for an empty chain")
	}
}
