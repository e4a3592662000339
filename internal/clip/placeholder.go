package clip

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// PlaceholderColor is used when the gradient image cannot be produced.
var PlaceholderColor = color.RGBA{R: 30, G: 40, B: 80, A: 255}

// GradientAt returns the placeholder gradient color for row y of h.
func GradientAt(y, h int) color.RGBA {
	f := 0.0
	if h > 0 {
		f = float64(y) / float64(h)
	}
	return color.RGBA{
		R: uint8(30 + f*50),
		G: uint8(30 + f*30),
		B: uint8(60 + f*80),
		A: 255,
	}
}

// Gradient builds the vertical placeholder gradient image.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		c := GradientAt(y, h)
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// WriteGradient writes a w x h gradient PNG to path.
func WriteGradient(path string, w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid gradient size %dx%d", w, h)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, Gradient(w, h)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
