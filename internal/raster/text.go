package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/koios/frame-renderer/pkg/models"
)

// fontSet holds the parsed bundled fonts. Glyph rasterization is serialized.
type fontSet struct {
	mu      sync.Mutex
	sources map[string]*text.FontSource
}

func loadFonts() (*fontSet, error) {
	files := map[string][]byte{
		models.FontSans: goregular.TTF,
		models.FontBold: gobold.TTF,
		models.FontMono: gomono.TTF,
	}
	fs := &fontSet{sources: make(map[string]*text.FontSource, len(files))}
	for name, data := range files {
		src, err := text.NewFontSource(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s font: %w", name, err)
		}
		fs.sources[name] = src
	}
	return fs, nil
}

// sprite renders s on a transparent image tight around its line box, at em
// pixels per em.
func (fs *fontSet) sprite(s, font string, em float64, c color.NRGBA) (*image.NRGBA, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	src, ok := fs.sources[font]
	if !ok {
		src = fs.sources[models.FontSans]
	}
	face := src.Face(em)
	metrics := face.Metrics()

	pad := math.Ceil(em / 8)
	w := int(math.Ceil(face.Advance(s) + 2*pad))
	h := int(math.Ceil(metrics.Ascent + metrics.Descent + 2*pad))
	if w <= 0 || h <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 1, 1)), nil
	}

	dc := gg.NewContext(w, h)
	defer dc.Close()
	dc.SetFont(face)
	dc.SetFillBrush(gg.Solid(rgba(c)))
	dc.DrawString(s, pad, pad+metrics.Ascent)

	// the context is closed on return, so detach the pixels
	img := straight(dc.Image())
	out := image.NewNRGBA(img.Rect)
	copy(out.Pix, img.Pix)
	return out, nil
}
