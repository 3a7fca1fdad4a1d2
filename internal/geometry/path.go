package geometry

import (
	"math"

	"github.com/gogpu/gg"
)

// Circle returns a closed circle.
func Circle(cx, cy, r float64) *gg.Path {
	p := gg.NewPath()
	p.Circle(cx, cy, r)
	return p
}

// Ring returns an annulus as two circles. Fill it with the even-odd rule.
func Ring(cx, cy, outer, inner float64) *gg.Path {
	p := Circle(cx, cy, outer)
	if inner > 0 {
		p.Circle(cx, cy, inner)
	}
	return p
}

// Sector returns the closed annular sector between angles a0 < a1 (radians,
// clockwise in y-down space).
func Sector(cx, cy, outer, inner, a0, a1 float64) *gg.Path {
	p := gg.NewPath()
	p.Arc(cx, cy, outer, a0, a1)
	back := gg.NewPath()
	back.Arc(cx, cy, inner, a0, a1)
	join(p, back.Reversed())
	p.Close()
	return p
}

// Polygon returns a closed polygon through pts.
func Polygon(pts []gg.Point) *gg.Path {
	p := gg.NewPath()
	if len(pts) == 0 {
		return p
	}
	p.MoveTo(pts[0].X, pts[0].Y)
	for _, pt := range pts[1:] {
		p.LineTo(pt.X, pt.Y)
	}
	p.Close()
	return p
}

// RegularPolygon returns the vertices of an n-gon with circumradius r whose
// first vertex sits at angle start.
func RegularPolygon(cx, cy, r float64, n int, start float64) []gg.Point {
	pts := make([]gg.Point, n)
	for i := range pts {
		a := start + 2*math.Pi*float64(i)/float64(n)
		pts[i] = gg.Pt(cx+r*math.Cos(a), cy+r*math.Sin(a))
	}
	return pts
}

// Append adds every subpath of src to dst.
func Append(dst, src *gg.Path) {
	replay(dst, src, false)
}

// join continues dst's current subpath into src.
func join(dst, src *gg.Path) {
	replay(dst, src, true)
}

func replay(dst, src *gg.Path, connect bool) {
	for i, el := range src.Elements() {
		switch e := el.(type) {
		case gg.MoveTo:
			if connect && i == 0 {
				dst.LineTo(e.Point.X, e.Point.Y)
			} else {
				dst.MoveTo(e.Point.X, e.Point.Y)
			}
		case gg.LineTo:
			dst.LineTo(e.Point.X, e.Point.Y)
		case gg.QuadTo:
			dst.QuadraticTo(e.Control.X, e.Control.Y, e.Point.X, e.Point.Y)
		case gg.CubicTo:
			dst.CubicTo(e.Control1.X, e.Control1.Y, e.Control2.X, e.Control2.Y, e.Point.X, e.Point.Y)
		case gg.Close:
			dst.Close()
		}
	}
}

// Empty reports whether p has no elements.
func Empty(p *gg.Path) bool {
	return p == nil || len(p.Elements()) == 0
}

// Rotation rotates by deg degrees, clockwise in y-down space.
func Rotation(deg float64) gg.Matrix {
	return gg.Rotate(deg * math.Pi / 180)
}

// Det is the determinant of m's linear part.
func Det(m gg.Matrix) float64 {
	return m.A*m.E - m.B*m.D
}

// Invertible reports whether m has a usable inverse.
func Invertible(m gg.Matrix) bool {
	d := Det(m)
	return math.Abs(d) > 1e-12 && !math.IsNaN(d) && !math.IsInf(d, 0)
}
