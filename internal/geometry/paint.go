package geometry

import (
	"image/color"

	"github.com/gogpu/gg"
)

// Paint is the closed set of fills a Shape can carry.
type Paint interface {
	// scaled returns the paint with every coordinate multiplied by s.
	scaled(s float64) Paint
}

// Solid is a flat colour.
type Solid struct {
	Color color.NRGBA
}

// GradientStop is a colour at a position in [0,1] along a gradient.
type GradientStop struct {
	Offset float64
	Color  color.NRGBA
}

// LinearGradient interpolates along the segment Start→End.
type LinearGradient struct {
	Start, End gg.Point
	Stops      []GradientStop
}

// RadialGradient interpolates from radius R0 to R1 around Center.
type RadialGradient struct {
	Center gg.Point
	R0, R1 float64
	Stops  []GradientStop
}

// ImageFill maps an external image onto the square [Min, Max], covering it.
type ImageFill struct {
	URL      string
	Min, Max gg.Point
}

func (s Solid) scaled(float64) Paint { return s }

func (g LinearGradient) scaled(s float64) Paint {
	g.Start = g.Start.Mul(s)
	g.End = g.End.Mul(s)
	return g
}

func (g RadialGradient) scaled(s float64) Paint {
	g.Center = g.Center.Mul(s)
	g.R0 *= s
	g.R1 *= s
	return g
}

func (f ImageFill) scaled(s float64) Paint {
	f.Min = f.Min.Mul(s)
	f.Max = f.Max.Mul(s)
	return f
}
