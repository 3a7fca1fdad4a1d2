package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"

	"github.com/koios/frame-renderer/internal/compose"
	"github.com/koios/frame-renderer/pkg/models"
)

// Quality selects the anti-aliasing and resampling settings of a render.
type Quality int

const (
	// QualityPreview is the fast interactive path.
	QualityPreview Quality = iota
	// QualityExport is the full-quality download path.
	QualityExport
)

func (q Quality) String() string {
	if q == QualityExport {
		return "export"
	}
	return "preview"
}

// ParseQuality accepts "preview" and "export".
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "preview":
		return QualityPreview, nil
	case "export":
		return QualityExport, nil
	default:
		return 0, fmt.Errorf("unknown quality %q", s)
	}
}

func (q Quality) rasterizer() gg.RasterizerMode {
	if q == QualityExport {
		return gg.RasterizerAuto
	}
	return gg.RasterizerAnalytic
}

func (q Quality) interpolator() draw.Interpolator {
	if q == QualityExport {
		return draw.CatmullRom
	}
	return draw.ApproxBiLinear
}

// Target is a square output size in pixels and a quality level.
type Target struct {
	Size    int
	Quality Quality
}

// Preview is the interactive target at the display size.
func Preview(sizes models.RenderSizes) Target {
	return Target{Size: sizes.Display, Quality: QualityPreview}
}

// Export is the full-resolution target at the canvas size.
func Export(sizes models.RenderSizes) Target {
	return Target{Size: sizes.Canvas, Quality: QualityExport}
}

// For returns the standard target for q.
func For(q Quality, sizes models.RenderSizes) Target {
	if q == QualityExport {
		return Export(sizes)
	}
	return Preview(sizes)
}

// Output is a finished render.
type Output struct {
	Image    *image.NRGBA
	PNG      []byte
	Failures []models.AssetFailure
}

// Exporter rasterizes scenes. It holds no per-render state, so one Exporter
// serves concurrent renders.
type Exporter struct {
	fonts *fontSet
}

// NewExporter parses the bundled fonts.
func NewExporter() (*Exporter, error) {
	fonts, err := loadFonts()
	if err != nil {
		return nil, err
	}
	return &Exporter{fonts: fonts}, nil
}

// Render draws scene directly at target.Size. Vector geometry is always
// re-rasterized at the requested size; nothing is upsampled from a smaller render.
func (e *Exporter) Render(ctx context.Context, scene *compose.Scene, target Target) (*image.NRGBA, error) {
	if scene == nil {
		return nil, fmt.Errorf("render: nil scene")
	}
	if target.Size <= 0 {
		return nil, fmt.Errorf("render: invalid target size %d", target.Size)
	}

	dc := gg.NewContext(target.Size, target.Size)
	defer dc.Close()
	dc.SetRasterizerMode(target.Quality.rasterizer())

	r := &renderer{
		dc:      dc,
		size:    target.Size,
		px:      float64(target.Size),
		quality: target.Quality,
		fonts:   e.fonts,
	}

	for _, layer := range scene.Layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch l := layer.(type) {
		case compose.AvatarLayer:
			err = r.avatar(l)
		case compose.ChromeLayer:
			err = r.chrome(l)
		case compose.StickerLayer:
			err = r.sticker(l)
		case compose.TextItem:
			err = r.text(l)
		default:
			err = fmt.Errorf("unsupported layer %T", layer)
		}
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
	}

	return straight(dc.Image()), nil
}

// Export renders scene and encodes it as PNG.
func (e *Exporter) Export(ctx context.Context, scene *compose.Scene, target Target) (*Output, error) {
	img, err := e.Render(ctx, scene, target)
	if err != nil {
		return nil, err
	}
	data, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return &Output{Image: img, PNG: data, Failures: scene.Failures}, nil
}

// EncodePNG losslessly encodes img.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// straight views gg output as NRGBA. gg pixmaps hold non-premultiplied bytes
// and Image copies them into an RGBA struct unchanged.
func straight(img image.Image) *image.NRGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return &image.NRGBA{Pix: rgba.Pix, Stride: rgba.Stride, Rect: rgba.Rect}
	}
	out := image.NewNRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
