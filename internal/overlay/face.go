package overlay

import (
	"image"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// DefaultFontPaths lists system fonts tried in order.
var DefaultFontPaths = []string{
	"/Library/Fonts/Arial.ttf",
	"/System/Library/Fonts/Supplemental/Arial Unicode.ttf",
	"/System/Library/Fonts/Supplemental/Helvetica.ttc",
	"/Library/Fonts/Helvetica.ttc",
	"/Library/Fonts/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
}

// glyphs measures and draws single lines of text into an alpha layer.
type glyphs interface {
	measure(s string) int
	ascent() int
	descent() int
	draw(dst *image.Alpha, x, top int, s string)
	close() error
}

type vectorGlyphs struct {
	face font.Face
}

func (g vectorGlyphs) measure(s string) int { return font.MeasureString(g.face, s).Ceil() }
func (g vectorGlyphs) ascent() int          { return g.face.Metrics().Ascent.Ceil() }
func (g vectorGlyphs) descent() int         { return g.face.Metrics().Descent.Ceil() }
func (g vectorGlyphs) close() error         { return g.face.Close() }

func (g vectorGlyphs) draw(dst *image.Alpha, x, top int, s string) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.Opaque,
		Face: g.face,
		Dot:  fixed.P(x, top+g.ascent()),
	}
	d.DrawString(s)
}

// bitmapGlyphs scales basicfont.Face7x13 by an integer factor.
type bitmapGlyphs struct {
	scale int
}

func newBitmapGlyphs(size float64) bitmapGlyphs {
	scale := int(math.Round(size / float64(basicfont.Face7x13.Height)))
	return bitmapGlyphs{scale: max(1, scale)}
}

func (g bitmapGlyphs) measure(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil() * g.scale
}
func (g bitmapGlyphs) ascent() int  { return basicfont.Face7x13.Ascent * g.scale }
func (g bitmapGlyphs) descent() int { return basicfont.Face7x13.Descent * g.scale }
func (g bitmapGlyphs) close() error { return nil }

func (g bitmapGlyphs) draw(dst *image.Alpha, x, top int, s string) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	h := face.Ascent + face.Descent
	if w <= 0 || h <= 0 {
		return
	}
	small := image.NewAlpha(image.Rect(0, 0, w, h))
	d := font.Drawer{Dst: small, Src: image.Opaque, Face: face, Dot: fixed.P(0, face.Ascent)}
	d.DrawString(s)

	bounds := dst.Bounds()
	for sy := range h {
		for sx := range w {
			a := small.AlphaAt(sx, sy)
			if a.A == 0 {
				continue
			}
			for dy := range g.scale {
				for dx := range g.scale {
					px, py := x+sx*g.scale+dx, top+sy*g.scale+dy
					if image.Pt(px, py).In(bounds) {
						dst.SetAlpha(px, py, a)
					}
				}
			}
		}
	}
}

// loadGlyphs returns a face for the first parsable font in paths, or the
// scaled bitmap face.
func loadGlyphs(paths []string, size float64) (glyphs, string) {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		f, err := parseFont(path, data)
		if err != nil {
			continue
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			continue
		}
		return vectorGlyphs{face: face}, path
	}
	return newBitmapGlyphs(size), ""
}

func parseFont(path string, data []byte) (*opentype.Font, error) {
	if strings.EqualFold(filepath.Ext(path), ".ttc") {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		return coll.Font(0)
	}
	return opentype.Parse(data)
}

// fill paints every pixel of dst from c.
func fill(dst draw.Image, c image.Image) {
	draw.Draw(dst, dst.Bounds(), c, image.Point{}, draw.Src)
}
