package geometry

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/gogpu/gg"

	"github.com/koios/frame-renderer/pkg/models"
)

// ErrUnknownType is returned for frame types outside the closed variant set.
var ErrUnknownType = errors.New("unknown frame type")

// Normalized canvas: the avatar's bounding circle is centred in the unit
// square and touches its edges.
const (
	center      = 0.5
	outerRadius = 0.5
)

// Shape is one filled region of frame chrome.
type Shape struct {
	Path  *gg.Path
	Paint Paint
	Rule  gg.FillRule
	Blend gg.BlendMode
}

// Chrome is the resolution-independent description of a frame's border.
// Inner is the boundary the avatar is clipped to.
type Chrome struct {
	Type   models.FrameType
	Shapes []Shape
	Inner  *gg.Path
}

// Scale returns the chrome mapped from the unit square to a px-sized square.
func (c Chrome) Scale(px float64) Chrome {
	m := gg.Scale(px, px)
	out := Chrome{Type: c.Type}
	if c.Inner != nil {
		out.Inner = c.Inner.Transform(m)
	}
	if c.Shapes != nil {
		out.Shapes = make([]Shape, len(c.Shapes))
		for i, s := range c.Shapes {
			out.Shapes[i] = Shape{
				Path:  s.Path.Transform(m),
				Paint: s.Paint.scaled(px),
				Rule:  s.Rule,
				Blend: s.Blend,
			}
		}
	}
	return out
}

// ringParams is the per-build input shared by variant builders.
type ringParams struct {
	w      float64 // normalized thickness
	inner  float64 // inner radius of the ring
	color1 color.NRGBA
	color2 color.NRGBA
	url    string
}

// Build computes the chrome for cfg. Geometry is expressed in the unit square,
// so the same Chrome renders identically at any target size.
func Build(cfg models.FrameConfig, sizes models.RenderSizes) (Chrome, error) {
	if !cfg.Type.Known() {
		return Chrome{}, fmt.Errorf("%w: %q", ErrUnknownType, string(cfg.Type))
	}
	if err := sizes.Check(); err != nil {
		return Chrome{}, err
	}

	full := Chrome{Type: cfg.Type, Inner: Circle(center, center, outerRadius)}
	if !cfg.HasChrome() {
		return full, nil
	}

	s := ringParams{
		w:   sizes.Normalize(cfg.Width),
		url: cfg.ImageURL,
	}
	s.w = math.Min(s.w, outerRadius)
	s.inner = outerRadius - s.w

	var err error
	if s.color1, err = models.ParseColor(cfg.Color1); err != nil && cfg.Type != models.FrameCustomImage {
		return Chrome{}, fmt.Errorf("color1: %w", err)
	}
	if cfg.Type.NeedsSecondColor() {
		if s.color2, err = models.ParseColor(cfg.Color2); err != nil {
			return Chrome{}, fmt.Errorf("color2: %w", err)
		}
	}

	ch := Chrome{Type: cfg.Type, Inner: Circle(center, center, s.inner)}
	switch cfg.Type {
	case models.FrameNone:
		return full, nil
	case models.FrameSolid:
		ch.Shapes = solid(s)
	case models.FrameGradient:
		ch.Shapes = gradient(s)
	case models.FrameNeon:
		ch.Shapes = neon(s)
	case models.FrameDashed:
		ch.Shapes = dashed(s)
	case models.FrameDouble:
		ch.Shapes = double(s)
	case models.FrameMemphis:
		ch.Shapes = memphis(s)
	case models.FrameGeometric:
		ch.Shapes = geometric(s)
	case models.FrameStar:
		ch.Shapes = silhouettes(s, starShape)
	case models.FrameHeart:
		ch.Shapes = silhouettes(s, heartShape)
	case models.FrameHexagon:
		ch.Shapes, ch.Inner = hexagon(s)
	case models.FrameCustomImage:
		ch.Shapes = customImage(s)
	default:
		return Chrome{}, fmt.Errorf("%w: %q", ErrUnknownType, string(cfg.Type))
	}
	return ch, nil
}

func ring(outer, inner float64, paint Paint) Shape {
	return Shape{Path: Ring(center, center, outer, inner), Paint: paint, Rule: gg.FillRuleEvenOdd}
}

func solid(s ringParams) []Shape {
	return []Shape{ring(outerRadius, s.inner, Solid{s.color1})}
}

// gradient runs diagonally from the ring's top-left extreme to its
// bottom-right extreme.
func gradient(s ringParams) []Shape {
	d := outerRadius / math.Sqrt2
	return []Shape{ring(outerRadius, s.inner, LinearGradient{
		Start: gg.Pt(center-d, center-d),
		End:   gg.Pt(center+d, center+d),
		Stops: []GradientStop{{0, s.color1}, {1, s.color2}},
	})}
}

// neon draws a halo of half the thickness on both sides of the ring, then the
// ring itself on top.
func neon(s ringParams) []Shape {
	halo := s.w / 2
	r0 := math.Max(0, s.inner-halo)
	r1 := outerRadius + halo
	mid := func(r float64) float64 { return (r - r0) / (r1 - r0) }

	peak := s.color2
	peak.A = uint8(float64(peak.A) * 0.9)
	fade := s.color2
	fade.A = 0

	glow := Shape{
		Path: Ring(center, center, r1, r0),
		Paint: RadialGradient{
			Center: gg.Pt(center, center),
			R0:     r0,
			R1:     r1,
			Stops: []GradientStop{
				{0, fade},
				{mid(s.inner), peak},
				{mid(outerRadius), peak},
				{1, fade},
			},
		},
		Rule:  gg.FillRuleEvenOdd,
		Blend: gg.BlendScreen,
	}
	return []Shape{glow, ring(outerRadius, s.inner, Solid{s.color1})}
}

const dashSegments = 24

// dashed splits the ring into equal arcs and fills every other one.
func dashed(s ringParams) []Shape {
	p := gg.NewPath()
	step := 2 * math.Pi / dashSegments
	for i := 0; i < dashSegments; i += 2 {
		a0 := -math.Pi/2 + float64(i)*step
		Append(p, Sector(center, center, outerRadius, s.inner, a0, a0+step))
	}
	return []Shape{{Path: p, Paint: Solid{s.color1}, Rule: gg.FillRuleNonZero}}
}

// double splits the thickness in thirds: outer band, gap, inner band.
func double(s ringParams) []Shape {
	third := s.w / 3
	return []Shape{
		ring(outerRadius, outerRadius-third, Solid{s.color1}),
		ring(outerRadius-2*third, s.inner, Solid{s.color2}),
	}
}

func memphis(s ringParams) []Shape {
	base := ring(outerRadius, outerRadius-0.4*s.w, Solid{s.color1})

	// zig-zag band between 45% and 85% of the thickness
	const teeth = 36
	hi := outerRadius - 0.45*s.w
	lo := outerRadius - 0.85*s.w
	band := 0.1 * s.w
	outer := make([]gg.Point, 0, teeth*2)
	inner := make([]gg.Point, 0, teeth*2)
	for i := 0; i < teeth*2; i++ {
		a := -math.Pi/2 + math.Pi*float64(i)/teeth
		r := hi
		if i%2 == 1 {
			r = lo + band
		}
		cos, sin := math.Cos(a), math.Sin(a)
		outer = append(outer, gg.Pt(center+r*cos, center+r*sin))
		inner = append(inner, gg.Pt(center+(r-band)*cos, center+(r-band)*sin))
	}
	zig := Polygon(outer)
	Append(zig, Polygon(inner))

	// dots along the inner edge, between the teeth
	dots := gg.NewPath()
	dotR := 0.07 * s.w
	for i := 0; i < teeth; i += 2 {
		a := -math.Pi/2 + math.Pi*(float64(i*2)+1)/teeth
		rr := s.inner + dotR
		dots.Circle(center+rr*math.Cos(a), center+rr*math.Sin(a), dotR)
	}

	return []Shape{
		base,
		{Path: zig, Paint: Solid{s.color1}, Rule: gg.FillRuleEvenOdd},
		{Path: dots, Paint: Solid{s.color1}, Rule: gg.FillRuleNonZero},
	}
}

// geometric is a base band with inward-pointing triangles.
func geometric(s ringParams) []Shape {
	baseInner := outerRadius - 0.35*s.w
	const count = 18
	tri := gg.NewPath()
	step := 2 * math.Pi / count
	for i := 0; i < count; i++ {
		a0 := -math.Pi/2 + float64(i)*step
		a1 := a0 + step
		am := (a0 + a1) / 2
		Append(tri, Polygon([]gg.Point{
			gg.Pt(center+baseInner*math.Cos(a0), center+baseInner*math.Sin(a0)),
			gg.Pt(center+baseInner*math.Cos(a1), center+baseInner*math.Sin(a1)),
			gg.Pt(center+s.inner*math.Cos(am), center+s.inner*math.Sin(am)),
		}))
	}
	return []Shape{
		ring(outerRadius, baseInner, Solid{s.color1}),
		{Path: tri, Paint: Solid{s.color1}, Rule: gg.FillRuleNonZero},
	}
}

// silhouettes distributes unit-box shapes around the ring centreline, each
// rotated so its top points outward, over a thin base ring.
func silhouettes(s ringParams, unit func() *gg.Path) []Shape {
	mid := outerRadius - s.w/2
	size := s.w * 0.95
	n := int(2 * math.Pi * mid / (s.w * 1.1))
	n = max(6, min(n, 48))

	p := gg.NewPath()
	for i := 0; i < n; i++ {
		deg := 360 * float64(i) / float64(n)
		a := (deg - 90) * math.Pi / 180
		m := gg.Translate(center+mid*math.Cos(a), center+mid*math.Sin(a)).
			Multiply(Rotation(deg)).
			Multiply(gg.Scale(size, size))
		Append(p, unit().Transform(m))
	}
	return []Shape{
		ring(outerRadius, outerRadius-0.2*s.w, Solid{s.color1}),
		{Path: p, Paint: Solid{s.color1}, Rule: gg.FillRuleNonZero},
	}
}

// hexagon returns a pointy-top hexagonal band inset by the thickness and the
// inner hexagon as the avatar boundary.
func hexagon(s ringParams) ([]Shape, *gg.Path) {
	start := -math.Pi / 2
	outer := RegularPolygon(center, center, outerRadius, 6, start)
	innerR := math.Max(0, outerRadius-s.w/math.Cos(math.Pi/6))
	innerPts := RegularPolygon(center, center, innerR, 6, start)

	band := Polygon(outer)
	inner := Polygon(innerPts)
	Append(band, inner)
	return []Shape{{Path: band, Paint: Solid{s.color1}, Rule: gg.FillRuleEvenOdd}}, inner
}

func customImage(s ringParams) []Shape {
	return []Shape{ring(outerRadius, s.inner, ImageFill{
		URL: s.url,
		Min: gg.Pt(0, 0),
		Max: gg.Pt(1, 1),
	})}
}
