package models

import (
	"fmt"
	"image/color"
	"math"
	"net/url"
	"strings"

	"github.com/mazznoer/csscolorparser"
)

// Validation codes.
const (
	CodeRequired      = "required"
	CodeUnknownType   = "unknown_type"
	CodeInvalidColor  = "invalid_color"
	CodeNegativeWidth = "negative_width"
	CodeWidthTooLarge = "width_too_large"
	CodeInvalidNumber = "invalid_number"
	CodeInvalidURL    = "invalid_url"
	CodeInvalidIcon   = "invalid_icon"
	CodeInvalidScale  = "invalid_scale"
	CodeOutOfRange    = "out_of_range"
	CodeInvalidSize   = "invalid_size"
	CodeInvalidFont   = "invalid_font"
)

// ValidationError represents a validation error for a specific field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ConfigValidationError lists every invariant a FrameConfig violates.
type ConfigValidationError struct {
	Errors []ValidationError
}

func (e *ConfigValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		parts[i] = ve.Field + ": " + ve.Message
	}
	return "invalid frame config: " + strings.Join(parts, "; ")
}

// Has reports whether any error carries code on field.
func (e *ConfigValidationError) Has(field, code string) bool {
	for _, ve := range e.Errors {
		if ve.Field == field && ve.Code == code {
			return true
		}
	}
	return false
}

// Validate checks c against every invariant. It is pure and can run both before
// storage and right before rendering.
func (c FrameConfig) Validate(sizes RenderSizes) error {
	v := &validator{}

	if !c.Type.Known() {
		v.add("type", CodeUnknownType, fmt.Sprintf("Unknown frame type %q", string(c.Type)))
	}

	switch {
	case c.Color1 == "" && c.Type != FrameNone:
		v.required("color1")
	case c.Color1 != "" && !IsValidColor(c.Color1):
		v.add("color1", CodeInvalidColor, "Field 'color1' must be a valid color (e.g., #FF0000)")
	}

	if c.Type.NeedsSecondColor() {
		switch {
		case c.Color2 == "":
			v.add("color2", CodeRequired, fmt.Sprintf("Field 'color2' is required for %s frames", c.Type))
		case !IsValidColor(c.Color2):
			v.add("color2", CodeInvalidColor, "Field 'color2' must be a valid color (e.g., #FF0000)")
		}
	}

	switch {
	case !finite(c.Width):
		v.add("width", CodeInvalidNumber, "Field 'width' must be a finite number")
	case c.Width < 0:
		v.add("width", CodeNegativeWidth, "Field 'width' must be >= 0")
	case c.Width*2 >= float64(sizes.Display):
		v.add("width", CodeWidthTooLarge, fmt.Sprintf("Field 'width' must be less than %d", sizes.Display/2))
	}

	if c.Type == FrameCustomImage {
		switch {
		case c.ImageURL == "":
			v.add("imageUrl", CodeRequired, "Field 'imageUrl' is required for CUSTOM_IMAGE frames")
		case !IsValidAssetURL(c.ImageURL):
			v.add("imageUrl", CodeInvalidURL, "Field 'imageUrl' must be an http(s), data or file URL")
		}
	}

	for i, s := range c.Stickers {
		validateSticker(v, fmt.Sprintf("stickers[%d]", i), s)
	}
	for i, t := range c.TextLayers {
		validateText(v, fmt.Sprintf("textLayers[%d]", i), t)
	}

	return v.err()
}

func validateSticker(v *validator, prefix string, s StickerConfig) {
	switch {
	case strings.TrimSpace(s.Icon.Ref) == "":
		v.required(prefix + ".icon")
	case s.Icon.IsImage() && !IsValidAssetURL(s.Icon.Ref):
		v.add(prefix+".icon", CodeInvalidIcon, "Image icons must be http(s), data or file URLs")
	}
	v.unit(prefix+".x", s.X)
	v.unit(prefix+".y", s.Y)
	if !finite(s.Scale) || s.Scale <= 0 {
		v.add(prefix+".scale", CodeInvalidScale, "Field 'scale' must be > 0")
	}
	if !finite(s.Rotation) {
		v.add(prefix+".rotation", CodeInvalidNumber, "Field 'rotation' must be a finite number")
	}
}

func validateText(v *validator, prefix string, t TextLayer) {
	if strings.TrimSpace(t.Text) == "" {
		v.required(prefix + ".text")
	}
	v.unit(prefix+".x", t.X)
	v.unit(prefix+".y", t.Y)
	if !finite(t.FontSize) || t.FontSize <= 0 {
		v.add(prefix+".fontSize", CodeInvalidSize, "Field 'fontSize' must be > 0")
	}
	if !IsValidColor(t.Color) {
		v.add(prefix+".color", CodeInvalidColor, "Field 'color' must be a valid color (e.g., #FF0000)")
	}
	switch t.Font {
	case FontSans, FontBold, FontMono:
	default:
		v.add(prefix+".font", CodeInvalidFont, fmt.Sprintf("Field 'font' must be one of: %s, %s, %s", FontSans, FontBold, FontMono))
	}
	if !finite(t.Rotation) {
		v.add(prefix+".rotation", CodeInvalidNumber, "Field 'rotation' must be a finite number")
	}
}

// Sanitize applies the fail-closed policy: an invalid config is replaced by the
// NONE variant with its still-valid stickers and text layers, and the
// validation error is returned alongside.
func Sanitize(c FrameConfig, sizes RenderSizes) (FrameConfig, error) {
	err := c.Validate(sizes)
	if err == nil {
		return c, nil
	}

	out := c.Clone()
	out.Type = FrameNone
	out.Width = 0
	out.Color2 = ""
	out.ImageURL = ""
	if out.Color1 != "" && !IsValidColor(out.Color1) {
		out.Color1 = DefaultConfig().Color1
	}

	out.Stickers = nil
	for i, s := range c.Stickers {
		v := &validator{}
		validateSticker(v, fmt.Sprintf("stickers[%d]", i), s)
		if v.err() == nil {
			out.Stickers = append(out.Stickers, s)
		}
	}
	out.TextLayers = nil
	for i, t := range c.TextLayers {
		v := &validator{}
		validateText(v, fmt.Sprintf("textLayers[%d]", i), t)
		if v.err() == nil {
			out.TextLayers = append(out.TextLayers, t)
		}
	}
	return out, err
}

// IsValidColor accepts any CSS color: hex forms, rgb()/hsl() functions and names.
func IsValidColor(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	_, err := csscolorparser.Parse(s)
	return err == nil
}

// ParseColor converts a CSS color into a non-premultiplied RGBA value.
func ParseColor(s string) (color.NRGBA, error) {
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{
		R: to8(c.R),
		G: to8(c.G),
		B: to8(c.B),
		A: to8(c.A),
	}, nil
}

// IsValidAssetURL accepts the URL schemes the asset loader can fetch.
func IsValidAssetURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	case "data":
		return strings.Contains(u.Opaque, ",")
	case "file":
		return u.Path != ""
	default:
		return false
	}
}

type validator struct {
	errors []ValidationError
}

func (v *validator) add(field, code, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: msg, Code: code})
}

func (v *validator) required(field string) {
	v.add(field, CodeRequired, fmt.Sprintf("Field '%s' is required", field))
}

func (v *validator) unit(field string, f float64) {
	if !finite(f) || f < 0 || f > 1 {
		v.add(field, CodeOutOfRange, fmt.Sprintf("Field '%s' must be within [0, 1]", field))
	}
}

func (v *validator) err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ConfigValidationError{Errors: v.errors}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func to8(f float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, f)) * 255))
}
