package raster

import (
	"image"
	"image/color"

	"github.com/gogpu/gg"
)

// colorAt is the sampling half of gg's gradient brushes.
type colorAt interface {
	ColorAt(x, y float64) gg.RGBA
}

// brushImage exposes a gg brush as an image, sampled at pixel centres.
type brushImage struct {
	src  colorAt
	rect image.Rectangle
}

func (b brushImage) ColorModel() color.Model { return color.NRGBAModel }
func (b brushImage) Bounds() image.Rectangle { return b.rect }

func (b brushImage) At(x, y int) color.Color {
	c := b.src.ColorAt(float64(x)+0.5, float64(y)+0.5)
	return color.NRGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: to8(c.A)}
}

func uniform(c color.NRGBA, size int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// checker is the placeholder fill for a frame image that failed to load.
func checker(size int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	cell := size / 32
	if cell < 2 {
		cell = 2
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := placeholderFill
			if (x/cell+y/cell)%2 == 1 {
				c = placeholderDetail
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func to8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
