package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// RawConfig is the externally supplied form of a FrameConfig. Every field is a
// pointer so absent values can be told apart from zero values.
type RawConfig struct {
	ID         *string      `json:"id"`
	Type       *string      `json:"type"`
	Name       *string      `json:"name"`
	Color1     *string      `json:"color1"`
	Color2     *string      `json:"color2"`
	Width      *float64     `json:"width"`
	ImageURL   *string      `json:"imageUrl"`
	Stickers   []RawSticker `json:"stickers"`
	TextLayers []RawText    `json:"textLayers"`
}

// RawSticker is the external form of a StickerConfig.
type RawSticker struct {
	ID       *string  `json:"id"`
	Icon     *string  `json:"icon"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Scale    *float64 `json:"scale"`
	Rotation *float64 `json:"rotation"`
}

// RawText is the external form of a TextLayer.
type RawText struct {
	ID       *string  `json:"id"`
	Text     *string  `json:"text"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	FontSize *float64 `json:"fontSize"`
	Color    *string  `json:"color"`
	Font     *string  `json:"font"`
	Rotation *float64 `json:"rotation"`
}

// DecodeRaw strictly decodes a JSON document: unknown fields, wrong types and
// trailing data are all rejected.
func DecodeRaw(data []byte) (RawConfig, error) {
	var raw RawConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return RawConfig{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return RawConfig{}, fmt.Errorf("unexpected data after config document")
	}
	return raw, nil
}

// Build converts raw input into a FrameConfig, applying only the documented
// defaults, and validates the result. The returned config is usable only when
// the error is nil.
func Build(raw RawConfig, sizes RenderSizes) (FrameConfig, error) {
	var missing []ValidationError
	require := func(field string) {
		missing = append(missing, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("Field '%s' is required", field),
			Code:    CodeRequired,
		})
	}

	cfg := FrameConfig{
		ID:       deref(raw.ID),
		Name:     deref(raw.Name),
		Color1:   deref(raw.Color1),
		Color2:   deref(raw.Color2),
		ImageURL: deref(raw.ImageURL),
	}
	if raw.Type == nil {
		require("type")
	} else {
		cfg.Type, _ = ParseFrameType(*raw.Type)
	}
	if raw.Width == nil {
		require("width")
	} else {
		cfg.Width = *raw.Width
	}

	if raw.Stickers != nil {
		cfg.Stickers = make([]StickerConfig, len(raw.Stickers))
		for i, rs := range raw.Stickers {
			s := StickerConfig{
				ID:       deref(rs.ID),
				Scale:    DefaultStickerScale,
				Rotation: derefFloat(rs.Rotation, 0),
			}
			if rs.Icon == nil {
				require(fmt.Sprintf("stickers[%d].icon", i))
			} else {
				s.Icon = ParseIcon(*rs.Icon)
			}
			if rs.X == nil {
				require(fmt.Sprintf("stickers[%d].x", i))
			} else {
				s.X = *rs.X
			}
			if rs.Y == nil {
				require(fmt.Sprintf("stickers[%d].y", i))
			} else {
				s.Y = *rs.Y
			}
			if rs.Scale != nil {
				s.Scale = *rs.Scale
			}
			cfg.Stickers[i] = s
		}
	}

	if raw.TextLayers != nil {
		cfg.TextLayers = make([]TextLayer, len(raw.TextLayers))
		for i, rt := range raw.TextLayers {
			t := TextLayer{
				ID:       deref(rt.ID),
				X:        derefFloat(rt.X, DefaultTextPosition),
				Y:        derefFloat(rt.Y, DefaultTextPosition),
				FontSize: derefFloat(rt.FontSize, DefaultTextFontSize),
				Color:    DefaultTextColor,
				Font:     DefaultTextFont,
				Rotation: derefFloat(rt.Rotation, 0),
			}
			if rt.Text == nil {
				require(fmt.Sprintf("textLayers[%d].text", i))
			} else {
				t.Text = *rt.Text
			}
			if rt.Color != nil {
				t.Color = *rt.Color
			}
			if rt.Font != nil {
				t.Font = *rt.Font
			}
			cfg.TextLayers[i] = t
		}
	}

	var errs []ValidationError
	errs = append(errs, missing...)
	if err := cfg.Validate(sizes); err != nil {
		var verr *ConfigValidationError
		if errors.As(err, &verr) {
			errs = append(errs, verr.Errors...)
		}
	}
	if len(errs) > 0 {
		return cfg, &ConfigValidationError{Errors: dedupe(errs)}
	}
	return cfg, nil
}

// dedupe drops value errors reported for fields that were already missing.
func dedupe(errs []ValidationError) []ValidationError {
	seen := make(map[string]bool, len(errs))
	out := errs[:0]
	for _, e := range errs {
		if seen[e.Field] {
			continue
		}
		seen[e.Field] = true
		out = append(out, e)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64, def float64) float64 {
	if f == nil {
		return def
	}
	return *f
}
