package compose

import (
	"fmt"

	"github.com/gogpu/gg"

	"github.com/koios/frame-renderer/internal/geometry"
	"github.com/koios/frame-renderer/pkg/models"
)

// StickerBase is the edge length, in display units, of a sticker at scale 1.
const StickerBase = 64.0

// Placement maps sticker-local coordinates (the unit box centred on the
// origin) to normalized canvas coordinates: T(x,y) · R(rotation) · S(k) with
// k = scale · StickerBase / Display.
func Placement(s models.StickerConfig, sizes models.RenderSizes) gg.Matrix {
	k := s.Scale * sizes.Normalize(StickerBase)
	return gg.Translate(s.X, s.Y).
		Multiply(geometry.Rotation(s.Rotation)).
		Multiply(gg.Scale(k, k))
}

// Unplace maps a normalized canvas point back into sticker-local
// coordinates. It fails only for non-positive scales.
func Unplace(s models.StickerConfig, sizes models.RenderSizes, p gg.Point) (gg.Point, error) {
	m := Placement(s, sizes)
	if !geometry.Invertible(m) {
		return gg.Point{}, fmt.Errorf("sticker %q has a singular placement (scale %v)", s.ID, s.Scale)
	}
	return m.Invert().TransformPoint(p), nil
}

// HitTest reports whether the normalized canvas point p lands on the sticker's box.
func HitTest(s models.StickerConfig, sizes models.RenderSizes, p gg.Point) bool {
	local, err := Unplace(s, sizes, p)
	if err != nil {
		return false
	}
	return local.X >= -0.5 && local.X <= 0.5 && local.Y >= -0.5 && local.Y <= 0.5
}

// TextPlacement positions a text layer like a sticker, with one local unit
// equal to one em: S(fontSize / Display).
func TextPlacement(t models.TextLayer, sizes models.RenderSizes) gg.Matrix {
	k := sizes.Normalize(t.FontSize)
	return gg.Translate(t.X, t.Y).
		Multiply(geometry.Rotation(t.Rotation)).
		Multiply(gg.Scale(k, k))
}
