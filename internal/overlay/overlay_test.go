package overlay

import (
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// bitmapRenderer avoids depending on fonts installed on the test host.
func bitmapRenderer() *Renderer {
	return NewRenderer([]string{}, nil)
}

func TestRenderEmptyText(t *testing.T) {
	r := bitmapRenderer()
	for _, text := range []string{"", "   ", "\n\t"} {
		if o, ok := r.Render(text, 1920, 1080, DefaultOptions()); ok || o != nil {
			t.Fatalf("expected no overlay for %q", text)
		}
	}
}

func TestRenderSingleCharacter(t *testing.T) {
	r := bitmapRenderer()
	o, ok := r.Render("A", 1920, 1080, DefaultOptions())
	if !ok {
		t.Fatal("expected overlay")
	}
	if o.Width() < 2 || o.Height() < 2 {
		t.Fatalf("box too small: %dx%d", o.Width(), o.Height())
	}
	frameH := 1080
	if o.Y != int(float64(frameH)*0.82) {
		t.Fatalf("unexpected top %d", o.Y)
	}
	if o.X != (1920-o.Width())/2 {
		t.Fatalf("box not centered: x=%d w=%d", o.X, o.Width())
	}
	if o.Mask.Bounds() != o.RGB.Bounds() {
		t.Fatal("layers misaligned")
	}
	if got := o.Mask.AlphaAt(0, 0).A; got != boxAlpha {
		t.Fatalf("expected box alpha %d at corner, got %d", boxAlpha, got)
	}
	var opaque int
	for y := range o.Height() {
		for x := range o.Width() {
			if o.Mask.AlphaAt(x, y).A == 255 {
				opaque++
				if c := o.RGB.RGBAAt(x, y); c.R != 255 || c.G != 255 || c.B != 255 {
					t.Fatalf("glyph pixel not white at %d,%d: %+v", x, y, c)
				}
			}
		}
	}
	if opaque == 0 {
		t.Fatal("expected glyph pixels in mask")
	}
}

func TestRenderTinyFrame(t *testing.T) {
	r := bitmapRenderer()
	o, ok := r.Render("x", 1, 1, Options{FontSize: 1, Padding: 0})
	if !ok {
		t.Fatal("expected overlay")
	}
	if o.Width() < 2 || o.Height() < 2 {
		t.Fatalf("box below minimum: %dx%d", o.Width(), o.Height())
	}
}

func TestRenderWrapsToFrameWidth(t *testing.T) {
	r := bitmapRenderer()
	text := strings.Repeat("narration words ", 20)
	o, ok := r.Render(text, 640, 360, DefaultOptions())
	if !ok {
		t.Fatal("expected overlay")
	}
	if len(o.Lines) < 2 {
		t.Fatalf("expected wrapping, got %d line(s)", len(o.Lines))
	}
	if o.Width() > int(640*0.9) {
		t.Fatalf("box wider than 90%% of frame: %d", o.Width())
	}
	if strings.Join(o.Lines, " ") != strings.Join(strings.Fields(text), " ") {
		t.Fatal("wrapping lost or reordered words")
	}
}

func TestWrap(t *testing.T) {
	measure := func(s string) int { return len(s) }
	got := wrap("aa bb cc dddddddddd e", 5, measure)
	want := []string{"aa bb", "cc", "dddddddddd", "e"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("wrap = %q, want %q", got, want)
	}
}

func TestWritePNG(t *testing.T) {
	r := bitmapRenderer()
	o, _ := r.Render("hello", 320, 240, DefaultOptions())
	path := filepath.Join(t.TempDir(), "sub.png")
	if err := o.WritePNG(path); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != o.Width() || img.Bounds().Dy() != o.Height() {
		t.Fatalf("png size %v, overlay %dx%d", img.Bounds(), o.Width(), o.Height())
	}
}
