package geometry

import (
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/gogpu/gg"
)

// Glyph is a built-in vector sticker drawn inside the unit box centred on the
// origin, [-0.5, 0.5]².
type Glyph struct {
	Name  string
	Path  *gg.Path
	Rule  gg.FillRule
	Color color.NRGBA
}

var glyphs = map[string]func() Glyph{
	"star": func() Glyph {
		return Glyph{Name: "star", Path: starShape(), Color: color.NRGBA{0xff, 0xd7, 0x00, 0xff}}
	},
	"heart": func() Glyph {
		return Glyph{Name: "heart", Path: heartShape(), Color: color.NRGBA{0xff, 0x4d, 0x6d, 0xff}}
	},
	"sparkle": func() Glyph {
		return Glyph{Name: "sparkle", Path: sparkleShape(), Color: color.NRGBA{0xff, 0xf1, 0x76, 0xff}}
	},
	"crown": func() Glyph {
		return Glyph{Name: "crown", Path: crownShape(), Color: color.NRGBA{0xff, 0xc1, 0x07, 0xff}}
	},
	"circle": func() Glyph {
		return Glyph{Name: "circle", Path: Circle(0, 0, 0.5), Color: color.NRGBA{0xff, 0xff, 0xff, 0xff}}
	},
	"diamond": func() Glyph {
		return Glyph{Name: "diamond", Path: Polygon([]gg.Point{{X: 0, Y: -0.5}, {X: 0.38, Y: 0}, {X: 0, Y: 0.5}, {X: -0.38, Y: 0}}), Color: color.NRGBA{0x4f, 0xc3, 0xf7, 0xff}}
	},
	"flower": func() Glyph {
		return Glyph{Name: "flower", Path: flowerShape(), Color: color.NRGBA{0xff, 0x80, 0xab, 0xff}}
	},
	"bolt": func() Glyph {
		return Glyph{Name: "bolt", Path: Polygon([]gg.Point{
			{X: 0.1, Y: -0.5}, {X: -0.3, Y: 0.05}, {X: -0.02, Y: 0.05}, {X: -0.12, Y: 0.5}, {X: 0.3, Y: -0.08}, {X: 0.03, Y: -0.08},
		}), Color: color.NRGBA{0xff, 0xeb, 0x3b, 0xff}}
	},
}

// LookupGlyph returns the catalog glyph for a symbolic icon name. Names are
// case-insensitive.
func LookupGlyph(name string) (Glyph, bool) {
	build, ok := glyphs[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Glyph{}, false
	}
	return build(), true
}

// GlyphNames lists the catalog in sorted order.
func GlyphNames() []string {
	names := make([]string, 0, len(glyphs))
	for name := range glyphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// starShape is a five-point star with its first point up.
func starShape() *gg.Path {
	pts := make([]gg.Point, 10)
	for i := range pts {
		r := 0.5
		if i%2 == 1 {
			r = 0.5 * 0.42
		}
		a := -math.Pi/2 + math.Pi*float64(i)/5
		pts[i] = gg.Pt(r*math.Cos(a), r*math.Sin(a)+0.04)
	}
	return Polygon(pts)
}

// heartShape has its lobes at the top and its point at the bottom.
func heartShape() *gg.Path {
	p := gg.NewPath()
	p.MoveTo(0, 0.45)
	p.CubicTo(-0.1, 0.33, -0.5, 0.12, -0.5, -0.14)
	p.CubicTo(-0.5, -0.38, -0.22, -0.5, 0, -0.28)
	p.CubicTo(0.22, -0.5, 0.5, -0.38, 0.5, -0.14)
	p.CubicTo(0.5, 0.12, 0.1, 0.33, 0, 0.45)
	p.Close()
	return p
}

func sparkleShape() *gg.Path {
	p := gg.NewPath()
	p.MoveTo(0, -0.5)
	p.CubicTo(0.04, -0.12, 0.12, -0.04, 0.5, 0)
	p.CubicTo(0.12, 0.04, 0.04, 0.12, 0, 0.5)
	p.CubicTo(-0.04, 0.12, -0.12, 0.04, -0.5, 0)
	p.CubicTo(-0.12, -0.04, -0.04, -0.12, 0, -0.5)
	p.Close()
	return p
}

func crownShape() *gg.Path {
	return Polygon([]gg.Point{
		{X: -0.5, Y: -0.3}, {X: -0.25, Y: 0}, {X: 0, Y: -0.4}, {X: 0.25, Y: 0}, {X: 0.5, Y: -0.3},
		{X: 0.42, Y: 0.35}, {X: -0.42, Y: 0.35},
	})
}

func flowerShape() *gg.Path {
	p := gg.NewPath()
	for i := 0; i < 5; i++ {
		a := -math.Pi/2 + 2*math.Pi*float64(i)/5
		p.Circle(0.27*math.Cos(a), 0.27*math.Sin(a), 0.22)
	}
	p.Circle(0, 0, 0.16)
	return p
}
