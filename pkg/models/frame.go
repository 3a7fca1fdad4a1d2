package models

import (
	"strings"
)

// FrameType identifies one member of the closed set of frame chrome variants.
type FrameType string

const (
	FrameNone        FrameType = "NONE"
	FrameSolid       FrameType = "SOLID"
	FrameGradient    FrameType = "GRADIENT"
	FrameNeon        FrameType = "NEON"
	FrameDashed      FrameType = "DASHED"
	FrameDouble      FrameType = "DOUBLE"
	FrameMemphis     FrameType = "MEMPHIS"
	FrameGeometric   FrameType = "GEOMETRIC"
	FrameStar        FrameType = "STAR"
	FrameHeart       FrameType = "HEART"
	FrameHexagon     FrameType = "HEXAGON"
	FrameCustomImage FrameType = "CUSTOM_IMAGE"
)

// FrameTypes lists every known variant in catalog order.
var FrameTypes = []FrameType{
	FrameNone, FrameSolid, FrameGradient, FrameNeon, FrameDashed, FrameDouble,
	FrameMemphis, FrameGeometric, FrameStar, FrameHeart, FrameHexagon, FrameCustomImage,
}

// ParseFrameType canonicalizes s. Unknown values are returned upper-cased with ok=false
// so validation can report them instead of guessing a geometry.
func ParseFrameType(s string) (FrameType, bool) {
	t := FrameType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Known()
}

// Known reports whether t is part of the closed variant set.
func (t FrameType) Known() bool {
	for _, k := range FrameTypes {
		if t == k {
			return true
		}
	}
	return false
}

// NeedsSecondColor reports whether color2 is required for t.
func (t FrameType) NeedsSecondColor() bool {
	switch t {
	case FrameGradient, FrameNeon, FrameDouble:
		return true
	default:
		return false
	}
}

// FrameConfig is the complete description of a decorated avatar.
// Values are exchanged by copy; use Clone before mutating nested slices.
type FrameConfig struct {
	ID         string          `json:"id"`
	Type       FrameType       `json:"type"`
	Name       string          `json:"name"`
	Color1     string          `json:"color1"`
	Color2     string          `json:"color2,omitempty"`
	Width      float64         `json:"width"`
	ImageURL   string          `json:"imageUrl,omitempty"`
	Stickers   []StickerConfig `json:"stickers,omitempty"`
	TextLayers []TextLayer     `json:"textLayers,omitempty"`
}

// StickerConfig places one icon on the canvas. X and Y are normalized to [0,1].
type StickerConfig struct {
	ID       string  `json:"id"`
	Icon     Icon    `json:"icon"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
}

// TextLayer is a positioned, styled text box. FontSize is expressed in
// display units, like frame width.
type TextLayer struct {
	ID       string  `json:"id,omitempty"`
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"fontSize"`
	Color    string  `json:"color"`
	Font     string  `json:"font"`
	Rotation float64 `json:"rotation"`
}

// Text layer fonts.
const (
	FontSans = "sans"
	FontBold = "bold"
	FontMono = "mono"
)

// Documented defaults applied when a field is absent from external input.
const (
	DefaultStickerScale = 1.0
	DefaultTextFontSize = 24.0
	DefaultTextColor    = "#ffffff"
	DefaultTextFont     = FontSans
	DefaultTextPosition = 0.5
)

// DefaultConfig is the empty configuration used when a restore or remix fails.
func DefaultConfig() FrameConfig {
	return FrameConfig{
		Type:   FrameNone,
		Name:   "No frame",
		Color1: "#ffffff",
		Width:  0,
	}
}

// Clone returns a deep copy of c.
func (c FrameConfig) Clone() FrameConfig {
	out := c
	if c.Stickers != nil {
		out.Stickers = make([]StickerConfig, len(c.Stickers))
		copy(out.Stickers, c.Stickers)
	}
	if c.TextLayers != nil {
		out.TextLayers = make([]TextLayer, len(c.TextLayers))
		copy(out.TextLayers, c.TextLayers)
	}
	return out
}

// HasChrome reports whether the frame draws any border at all.
func (c FrameConfig) HasChrome() bool {
	return c.Type != FrameNone && c.Width > 0
}
