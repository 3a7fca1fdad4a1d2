package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/koios/frame-renderer/internal/compose"
	"github.com/koios/frame-renderer/internal/geometry"
)

// Placeholder colours for elements whose asset failed to load.
var (
	placeholderFill   = color.NRGBA{0xbd, 0xbd, 0xbd, 0xff}
	placeholderDetail = color.NRGBA{0x75, 0x75, 0x75, 0xff}
)

// renderer is the per-invocation drawing state. It owns its surface.
type renderer struct {
	dc      *gg.Context
	size    int
	px      float64
	quality Quality
	fonts   *fontSet
}

func (r *renderer) toPx() gg.Matrix {
	return gg.Scale(r.px, r.px)
}

func (r *renderer) avatar(l compose.AvatarLayer) error {
	clip := l.Clip.Transform(r.toPx())
	if l.Image == nil {
		if err := r.fillSolid(clip, gg.FillRuleNonZero, placeholderFill); err != nil {
			return err
		}
		// head and shoulders
		person := geometry.Circle(0.5, 0.4, 0.14)
		geometry.Append(person, geometry.Circle(0.5, 0.85, 0.28))
		return r.composite(uniform(placeholderDetail, r.size), person.Transform(r.toPx()), gg.FillRuleNonZero, gg.BlendNormal, clip)
	}

	src := r.cover(l.Image, gg.Point{}, gg.Pt(r.px, r.px))
	return r.composite(src, clip, gg.FillRuleNonZero, gg.BlendNormal, nil)
}

func (r *renderer) chrome(l compose.ChromeLayer) error {
	s := geometry.Chrome{Shapes: []geometry.Shape{l.Shape}}.Scale(r.px).Shapes[0]

	switch p := s.Paint.(type) {
	case geometry.Solid:
		if s.Blend == gg.BlendNormal {
			return r.fillSolid(s.Path, s.Rule, p.Color)
		}
		return r.composite(uniform(p.Color, r.size), s.Path, s.Rule, s.Blend, nil)
	case geometry.LinearGradient:
		b := gg.NewLinearGradientBrush(p.Start.X, p.Start.Y, p.End.X, p.End.Y)
		for _, stop := range p.Stops {
			b.AddColorStop(stop.Offset, rgba(stop.Color))
		}
		return r.composite(brushImage{src: b, rect: r.bounds()}, s.Path, s.Rule, s.Blend, nil)
	case geometry.RadialGradient:
		b := gg.NewRadialGradientBrush(p.Center.X, p.Center.Y, p.R0, p.R1)
		for _, stop := range p.Stops {
			b.AddColorStop(stop.Offset, rgba(stop.Color))
		}
		return r.composite(brushImage{src: b, rect: r.bounds()}, s.Path, s.Rule, s.Blend, nil)
	case geometry.ImageFill:
		if l.Image == nil {
			return r.composite(checker(r.size), s.Path, s.Rule, gg.BlendNormal, nil)
		}
		return r.composite(r.cover(l.Image, p.Min, p.Max), s.Path, s.Rule, s.Blend, nil)
	default:
		return nil
	}
}

func (r *renderer) sticker(l compose.StickerLayer) error {
	m := r.toPx().Multiply(l.Transform)

	switch {
	case l.Glyph != nil:
		return r.fillSolid(l.Glyph.Path.Transform(m), l.Glyph.Rule, l.Glyph.Color)
	case l.Image != nil:
		b := l.Image.Bounds()
		w, h := float64(b.Dx()), float64(b.Dy())
		if w == 0 || h == 0 {
			return nil
		}
		k := 1 / math.Max(w, h)
		// contain the image inside the local unit box
		local := gg.Translate(-w*k/2, -h*k/2).
			Multiply(gg.Scale(k, k)).
			Multiply(gg.Translate(-float64(b.Min.X), -float64(b.Min.Y)))
		return r.drawTransformed(l.Image, m.Multiply(local))
	default:
		box := geometry.Polygon([]gg.Point{gg.Pt(-0.4, -0.4), gg.Pt(0.4, -0.4), gg.Pt(0.4, 0.4), gg.Pt(-0.4, 0.4)})
		if err := r.fillSolid(box.Transform(m), gg.FillRuleNonZero, placeholderFill); err != nil {
			return err
		}
		return r.fillSolid(geometry.Circle(0, 0, 0.15).Transform(m), gg.FillRuleNonZero, placeholderDetail)
	}
}

func (r *renderer) text(l compose.TextItem) error {
	if l.Text == "" {
		return nil
	}
	m := r.toPx().Multiply(l.Transform)
	em := math.Sqrt(math.Abs(geometry.Det(m)))
	if em < 1 {
		return nil
	}

	sprite, err := r.fonts.sprite(l.Text, l.Font, em, l.Color)
	if err != nil {
		return err
	}
	sw, sh := float64(sprite.Bounds().Dx()), float64(sprite.Bounds().Dy())

	// sprite pixels → local em units, centred on the origin
	local := gg.Scale(1/em, 1/em).Multiply(gg.Translate(-sw/2, -sh/2))
	return r.drawTransformed(sprite, m.Multiply(local))
}

// fillSolid fills p (pixel space) straight onto the canvas.
func (r *renderer) fillSolid(p *gg.Path, rule gg.FillRule, c color.NRGBA) error {
	replay(r.dc, p)
	r.dc.SetFillRule(rule)
	r.dc.SetFillBrush(gg.Solid(rgba(c)))
	return r.dc.Fill()
}

// composite paints src through the anti-aliased coverage of p, optionally
// intersected with clip, and blends the result onto the canvas.
func (r *renderer) composite(src image.Image, p *gg.Path, rule gg.FillRule, blend gg.BlendMode, clip *gg.Path) error {
	rect := r.pathRect(p)
	if rect.Empty() {
		return nil
	}

	mask, err := r.coverage(p, rule)
	if err != nil {
		return err
	}
	if !geometry.Empty(clip) {
		clipMask, err := r.coverage(clip, gg.FillRuleNonZero)
		if err != nil {
			return err
		}
		intersect(mask, clipMask, rect)
	}

	layer := image.NewNRGBA(r.bounds())
	draw.DrawMask(layer, rect, src, rect.Min, mask, rect.Min, draw.Src)
	r.blit(layer, blend)
	return nil
}

// coverage rasterizes p into an alpha mask the size of the canvas.
func (r *renderer) coverage(p *gg.Path, rule gg.FillRule) (*image.Alpha, error) {
	mc := gg.NewContext(r.size, r.size)
	defer mc.Close()
	mc.SetRasterizerMode(r.quality.rasterizer())

	replay(mc, p)
	mc.SetFillRule(rule)
	mc.SetFillBrush(gg.Solid(gg.White))
	if err := mc.Fill(); err != nil {
		return nil, err
	}

	img := straight(mc.Image())
	mask := image.NewAlpha(img.Rect)
	for i := 0; i < len(mask.Pix); i++ {
		mask.Pix[i] = img.Pix[i*4+3]
	}
	return mask, nil
}

// drawTransformed resamples img through m (source pixels → canvas pixels)
// and blends it over the canvas.
func (r *renderer) drawTransformed(img image.Image, m gg.Matrix) error {
	layer := image.NewNRGBA(r.bounds())
	r.quality.interpolator().Transform(layer, aff3(m), img, img.Bounds(), draw.Over, nil)
	r.blit(layer, gg.BlendNormal)
	return nil
}

// cover resamples img so it covers the pixel square [min, max], centred.
func (r *renderer) cover(img image.Image, min, max gg.Point) image.Image {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	dst := image.NewNRGBA(r.bounds())
	if w == 0 || h == 0 {
		return dst
	}
	tw, th := max.X-min.X, max.Y-min.Y
	k := math.Max(tw/w, th/h)
	m := gg.Translate(min.X+(tw-w*k)/2, min.Y+(th-h*k)/2).
		Multiply(gg.Scale(k, k)).
		Multiply(gg.Translate(-float64(b.Min.X), -float64(b.Min.Y)))
	r.quality.interpolator().Transform(dst, aff3(m), img, b, draw.Src, nil)
	return dst
}

func (r *renderer) blit(layer *image.NRGBA, mode gg.BlendMode) {
	r.dc.DrawImageEx(gg.ImageBufFromImage(layer), gg.DrawImageOptions{
		DstWidth:  r.px,
		DstHeight: r.px,
		Opacity:   1,
		BlendMode: mode,
	})
}

func (r *renderer) bounds() image.Rectangle {
	return image.Rect(0, 0, r.size, r.size)
}

// pathRect is the pixel rectangle that can receive coverage from p.
func (r *renderer) pathRect(p *gg.Path) image.Rectangle {
	if geometry.Empty(p) {
		return image.Rectangle{}
	}
	box := p.BoundingBox()
	rect := image.Rect(
		int(math.Floor(box.Min.X))-1, int(math.Floor(box.Min.Y))-1,
		int(math.Ceil(box.Max.X))+1, int(math.Ceil(box.Max.Y))+1,
	)
	return rect.Intersect(r.bounds())
}

func intersect(mask, clip *image.Alpha, rect image.Rectangle) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			i := mask.PixOffset(x, y)
			mask.Pix[i] = uint8(uint16(mask.Pix[i]) * uint16(clip.Pix[i]) / 255)
		}
	}
}

// replay feeds p into the context's current path.
func replay(dc *gg.Context, p *gg.Path) {
	if p == nil {
		return
	}
	for _, el := range p.Elements() {
		switch e := el.(type) {
		case gg.MoveTo:
			dc.MoveTo(e.Point.X, e.Point.Y)
		case gg.LineTo:
			dc.LineTo(e.Point.X, e.Point.Y)
		case gg.QuadTo:
			dc.QuadraticTo(e.Control.X, e.Control.Y, e.Point.X, e.Point.Y)
		case gg.CubicTo:
			dc.CubicTo(e.Control1.X, e.Control1.Y, e.Control2.X, e.Control2.Y, e.Point.X, e.Point.Y)
		case gg.Close:
			dc.ClosePath()
		}
	}
}

func rgba(c color.NRGBA) gg.RGBA {
	return gg.RGBA{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
		A: float64(c.A) / 255,
	}
}

// aff3 hands m to x/image/draw, which does the rotated resampling that
// DrawImageEx cannot.
func aff3(m gg.Matrix) f64.Aff3 {
	return f64.Aff3{m.A, m.B, m.C, m.D, m.E, m.F}
}
