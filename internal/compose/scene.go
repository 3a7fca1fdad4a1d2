package compose

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gg"

	"github.com/koios/frame-renderer/internal/assets"
	"github.com/koios/frame-renderer/internal/geometry"
	"github.com/koios/frame-renderer/pkg/models"
)

// Layer is one entry of a scene, drawn in slice order.
type Layer interface {
	layer()
}

// AvatarLayer is the source picture, covering the unit square and clipped to Clip.
// A nil Image means the avatar failed to load and a placeholder is drawn.
type AvatarLayer struct {
	Image image.Image
	Clip  *gg.Path
}

// ChromeLayer is one shape of frame chrome. Image is set for ImageFill paints;
// nil with an ImageFill paint means the frame asset failed to load.
type ChromeLayer struct {
	Shape geometry.Shape
	Image image.Image
}

// StickerLayer draws either a vector glyph or an image inside the unit box
// mapped by Transform. Neither set means a placeholder.
type StickerLayer struct {
	ID        string
	Transform gg.Matrix
	Glyph     *geometry.Glyph
	Image     image.Image
}

// TextItem draws a single line of text centred on the origin of Transform.
type TextItem struct {
	ID        string
	Transform gg.Matrix
	Text      string
	Font      string
	Color     color.NRGBA
}

func (AvatarLayer) layer()  {}
func (ChromeLayer) layer()  {}
func (StickerLayer) layer() {}
func (TextItem) layer()     {}

// Scene is the complete, ordered, resolution-independent description of a
// composite. All geometry is in the normalized unit square.
type Scene struct {
	Sizes    models.RenderSizes
	Type     models.FrameType
	Layers   []Layer
	Failures []models.AssetFailure
}

// Compositor assembles scenes.
type Compositor struct {
	Sizes models.RenderSizes
	Icons IconResolver
}

// NewCompositor creates a compositor using the default icon resolution.
func NewCompositor(sizes models.RenderSizes) *Compositor {
	return &Compositor{Sizes: sizes, Icons: DefaultIcons{}}
}

// Compose orders the avatar, chrome, stickers and text of cfg into a scene.
// set must be the complete result of loading the config's assets. avatarURL
// may be empty when there is no source picture.
func (c *Compositor) Compose(cfg models.FrameConfig, avatarURL string, set *assets.Set) (*Scene, error) {
	if set == nil {
		return nil, errors.New("compose: asset set is required")
	}
	chrome, err := geometry.Build(cfg, c.Sizes)
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}

	scene := &Scene{Sizes: c.Sizes, Type: cfg.Type}
	fail := func(element, url string, err error) {
		scene.Failures = append(scene.Failures, models.AssetFailure{Element: element, URL: url, Error: err.Error()})
	}

	if avatarURL != "" {
		layer := AvatarLayer{Clip: chrome.Inner}
		if img, ok := set.Image(avatarURL); ok {
			layer.Image = img
		} else {
			fail(assets.ElementAvatar, avatarURL, loadError(set, assets.ElementAvatar))
		}
		scene.Layers = append(scene.Layers, layer)
	}

	for _, shape := range chrome.Shapes {
		layer := ChromeLayer{Shape: shape}
		if fill, ok := shape.Paint.(geometry.ImageFill); ok {
			if img, ok := set.Image(fill.URL); ok {
				layer.Image = img
			} else {
				fail(assets.ElementFrame, fill.URL, loadError(set, assets.ElementFrame))
			}
		}
		scene.Layers = append(scene.Layers, layer)
	}

	for i, s := range cfg.Stickers {
		layer := StickerLayer{ID: s.ID, Transform: Placement(s, c.Sizes)}
		resolved, err := c.Icons.Resolve(s.Icon, set)
		if err != nil {
			element := assets.StickerElement(i)
			if le, ok := set.Failure(element); ok {
				err = le.Err
			}
			url := ""
			if s.Icon.IsImage() {
				url = s.Icon.Ref
			}
			fail(element, url, err)
		} else {
			layer.Glyph = resolved.Glyph
			layer.Image = resolved.Image
		}
		scene.Layers = append(scene.Layers, layer)
	}

	for _, t := range cfg.TextLayers {
		col, err := models.ParseColor(t.Color)
		if err != nil {
			col = color.NRGBA{0xff, 0xff, 0xff, 0xff}
		}
		scene.Layers = append(scene.Layers, TextItem{
			ID:        t.ID,
			Transform: TextPlacement(t, c.Sizes),
			Text:      t.Text,
			Font:      t.Font,
			Color:     col,
		})
	}

	return scene, nil
}

func loadError(set *assets.Set, element string) error {
	if le, ok := set.Failure(element); ok {
		return le.Err
	}
	return errors.New("asset not loaded")
}
