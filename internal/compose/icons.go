package compose

import (
	"fmt"
	"image"

	"github.com/koios/frame-renderer/internal/assets"
	"github.com/koios/frame-renderer/internal/geometry"
	"github.com/koios/frame-renderer/pkg/models"
)

// ResolvedIcon is the drawable form of a sticker icon: exactly one field is set.
type ResolvedIcon struct {
	Glyph *geometry.Glyph
	Image image.Image
}

// IconResolver turns an icon reference into something drawable.
type IconResolver interface {
	Resolve(icon models.Icon, set *assets.Set) (ResolvedIcon, error)
}

// DefaultIcons resolves symbolic icons from the built-in glyph catalog and
// image icons from the loaded asset set.
type DefaultIcons struct{}

func (DefaultIcons) Resolve(icon models.Icon, set *assets.Set) (ResolvedIcon, error) {
	switch icon.Kind {
	case models.IconImage:
		img, ok := set.Image(icon.Ref)
		if !ok {
			return ResolvedIcon{}, fmt.Errorf("image icon not loaded")
		}
		return ResolvedIcon{Image: img}, nil
	default:
		g, ok := geometry.LookupGlyph(icon.Ref)
		if !ok {
			return ResolvedIcon{}, fmt.Errorf("unknown glyph %q", icon.Ref)
		}
		return ResolvedIcon{Glyph: &g}, nil
	}
}
