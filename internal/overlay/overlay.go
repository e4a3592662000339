package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"strings"
	"sync"

	"storyreel/internal/logging"
)

const (
	// boxAlpha is the mask value behind the glyphs (60% opacity).
	boxAlpha = 153
	// anchorRatio places the box top relative to the frame height.
	anchorRatio = 0.82
)

// Options controls text size and box padding.
type Options struct {
	FontSize float64
	Padding  int
}

// DefaultOptions returns the caption defaults.
func DefaultOptions() Options {
	return Options{FontSize: 50, Padding: 22}
}

// Overlay is a rendered subtitle box positioned on a frame.
type Overlay struct {
	// RGB holds white glyphs on a black box.
	RGB *image.RGBA
	// Mask is 255 under glyphs and boxAlpha elsewhere.
	Mask  *image.Alpha
	X, Y  int
	Lines []string
}

// Width returns the box width in pixels.
func (o *Overlay) Width() int { return o.RGB.Bounds().Dx() }

// Height returns the box height in pixels.
func (o *Overlay) Height() int { return o.RGB.Bounds().Dy() }

// Composite returns the RGB layer with the mask applied as alpha.
func (o *Overlay) Composite() *image.NRGBA {
	b := o.RGB.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := o.RGB.RGBAAt(x, y)
			out.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: o.Mask.AlphaAt(x, y).A})
		}
	}
	return out
}

// WritePNG writes the composited layer to path.
func (o *Overlay) WritePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create overlay png: %w", err)
	}
	if err := png.Encode(f, o.Composite()); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode overlay png: %w", err)
	}
	return f.Close()
}

// Renderer rasterizes captions. Faces are loaded lazily per font size.
type Renderer struct {
	fontPaths []string
	logger    *slog.Logger

	mu    sync.Mutex
	faces map[float64]glyphs
}

// NewRenderer returns a renderer trying fontPaths in order; nil uses DefaultFontPaths.
func NewRenderer(fontPaths []string, logger *slog.Logger) *Renderer {
	if fontPaths == nil {
		fontPaths = DefaultFontPaths
	}
	return &Renderer{
		fontPaths: fontPaths,
		logger:    logging.NewComponentLogger(logger, "overlay"),
		faces:     make(map[float64]glyphs),
	}
}

// Close releases loaded font faces.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for size, g := range r.faces {
		_ = g.close()
		delete(r.faces, size)
	}
	return nil
}

func (r *Renderer) glyphsFor(size float64) glyphs {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.faces[size]; ok {
		return g
	}
	g, path := loadGlyphs(r.fontPaths, size)
	if path == "" {
		r.logger.Debug("no system font found, using bitmap face", logging.Float64("font_size", size))
	} else {
		r.logger.Debug("loaded subtitle font", logging.String("path", path), logging.Float64("font_size", size))
	}
	r.faces[size] = g
	return g
}

// Render lays out text for a frameW x frameH frame. It reports false when
// text is empty or whitespace.
func (r *Renderer) Render(text string, frameW, frameH int, opts Options) (*Overlay, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultOptions().FontSize
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	}
	g := r.glyphsFor(opts.FontSize)

	maxW := max(10, int(float64(frameW)*0.9))
	lines := wrap(text, maxW, g.measure)

	lineH := max(2, g.ascent()+g.descent())
	gap := max(1, int(float64(lineH)*0.25))
	textH := len(lines)*lineH + max(0, len(lines)-1)*gap
	textW := 0
	for _, ln := range lines {
		textW = max(textW, g.measure(ln))
	}

	boxW := max(2, min(maxW, textW+2*opts.Padding))
	boxH := max(2, textH+2*opts.Padding)

	glyphMask := image.NewAlpha(image.Rect(0, 0, boxW, boxH))
	y := opts.Padding
	for _, ln := range lines {
		x := max(0, (boxW-g.measure(ln))/2)
		g.draw(glyphMask, x, y, ln)
		y += lineH + gap
	}

	rgb := image.NewRGBA(glyphMask.Bounds())
	fill(rgb, image.NewUniform(color.RGBA{A: 255}))
	mask := image.NewAlpha(glyphMask.Bounds())
	fill(mask, image.NewUniform(color.Alpha{A: boxAlpha}))
	for py := range boxH {
		for px := range boxW {
			a := glyphMask.AlphaAt(px, py).A
			if a == 0 {
				continue
			}
			rgb.SetRGBA(px, py, blendWhite(a))
			mask.SetAlpha(px, py, color.Alpha{A: max(boxAlpha, a)})
		}
	}

	return &Overlay{
		RGB:   rgb,
		Mask:  mask,
		X:     max(0, (frameW-boxW)/2),
		Y:     int(float64(frameH) * anchorRatio),
		Lines: lines,
	}, true
}

// blendWhite mixes white glyph coverage a over the black box.
func blendWhite(a uint8) color.RGBA {
	return color.RGBA{R: a, G: a, B: a, A: 255}
}

// wrap splits text on whitespace and packs words greedily into lines whose
// measured width is at most maxW. A single word wider than maxW keeps its own line.
func wrap(text string, maxW int, measure func(string) int) []string {
	var (
		lines []string
		line  string
	)
	for _, word := range strings.Fields(text) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if measure(candidate) <= maxW {
			line = candidate
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}
		line = word
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
