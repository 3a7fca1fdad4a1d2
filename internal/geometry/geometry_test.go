package geometry

import (
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/gogpu/gg"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koios/frame-renderer/pkg/models"
)

func cfgFor(t models.FrameType, width float64) models.FrameConfig {
	return models.FrameConfig{
		Type:     t,
		Color1:   "#ff0000",
		Color2:   "#0000ff",
		Width:    width,
		ImageURL: "https://cdn.example.com/ring.png",
	}
}

// samePath compares paths by their elements.
var samePath = cmp.Comparer(func(a, b *gg.Path) bool {
	if a == nil || b == nil {
		return a == b
	}
	return cmp.Equal(a.Elements(), b.Elements())
})

func TestBuild_EveryVariant(t *testing.T) {
	sizes := models.DefaultSizes()
	for _, ft := range models.FrameTypes {
		t.Run(string(ft), func(t *testing.T) {
			ch, err := Build(cfgFor(ft, 20), sizes)
			require.NoError(t, err)
			assert.Equal(t, ft, ch.Type)
			assert.False(t, Empty(ch.Inner), "inner boundary must be set")
			if ft == models.FrameNone {
				assert.Empty(t, ch.Shapes)
				return
			}
			require.NotEmpty(t, ch.Shapes)
			for _, s := range ch.Shapes {
				assert.False(t, Empty(s.Path))
				assert.NotNil(t, s.Paint)
			}
		})
	}
}

func TestBuild_UnknownTypeFails(t *testing.T) {
	_, err := Build(cfgFor("TRIANGLE", 10), models.DefaultSizes())
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestBuild_ZeroWidthHasNoChrome(t *testing.T) {
	for _, ft := range models.FrameTypes {
		ch, err := Build(cfgFor(ft, 0), models.DefaultSizes())
		require.NoError(t, err)
		assert.Empty(t, ch.Shapes, "type %s", ft)

		box := ch.Inner.BoundingBox()
		assert.InDelta(t, 0, box.Min.X, 1e-9)
		assert.InDelta(t, 1, box.Max.X, 1e-9)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	for _, ft := range models.FrameTypes {
		a, err := Build(cfgFor(ft, 30), models.DefaultSizes())
		require.NoError(t, err)
		b, err := Build(cfgFor(ft, 30), models.DefaultSizes())
		require.NoError(t, err)
		assert.True(t, cmp.Equal(a, b, samePath), "type %s not deterministic", ft)
	}
}

func TestBuild_SolidRingRadii(t *testing.T) {
	ch, err := Build(cfgFor(models.FrameSolid, 25), models.DefaultSizes())
	require.NoError(t, err)
	require.Len(t, ch.Shapes, 1)

	s := ch.Shapes[0]
	assert.Equal(t, gg.FillRuleEvenOdd, s.Rule)
	assert.Equal(t, Solid{color.NRGBA{0xff, 0, 0, 0xff}}, s.Paint)

	box := s.Path.BoundingBox()
	assert.InDelta(t, 0, box.Min.X, 1e-9)
	assert.InDelta(t, 1, box.Max.Y, 1e-9)

	inner := ch.Inner.BoundingBox()
	w := 25.0 / 320.0
	assert.InDelta(t, w, inner.Min.X, 1e-9)
	assert.InDelta(t, 1-w, inner.Max.X, 1e-9)

	// even-odd leaves the avatar area open
	assert.True(t, s.Path.Contains(gg.Pt(0.01, 0.5)))
	assert.Equal(t, 0, s.Path.Winding(gg.Pt(0.5, 0.5))%2)
}

func TestBuild_GradientIsDiagonal(t *testing.T) {
	cfg := models.FrameConfig{Type: models.FrameGradient, Color1: "#00c6ff", Color2: "#0072ff", Width: 25}
	ch, err := Build(cfg, models.DefaultSizes())
	require.NoError(t, err)

	g, ok := ch.Shapes[0].Paint.(LinearGradient)
	require.True(t, ok, "paint is %T", ch.Shapes[0].Paint)
	assert.Equal(t, color.NRGBA{0x00, 0xc6, 0xff, 0xff}, g.Stops[0].Color)
	assert.Equal(t, color.NRGBA{0x00, 0x72, 0xff, 0xff}, g.Stops[1].Color)
	assert.Less(t, g.Start.X, g.End.X)
	assert.Less(t, g.Start.Y, g.End.Y)
	assert.InDelta(t, g.End.X-g.Start.X, g.End.Y-g.Start.Y, 1e-12)
}

func TestBuild_NeonGlowUsesScreen(t *testing.T) {
	ch, err := Build(cfgFor(models.FrameNeon, 20), models.DefaultSizes())
	require.NoError(t, err)
	require.Len(t, ch.Shapes, 2)

	assert.Equal(t, gg.BlendScreen, ch.Shapes[0].Blend)
	_, ok := ch.Shapes[0].Paint.(RadialGradient)
	assert.True(t, ok)
	assert.Equal(t, gg.BlendNormal, ch.Shapes[1].Blend)

	box := ch.Shapes[0].Path.BoundingBox()
	assert.Greater(t, box.Max.X, 1.0, "halo extends past the ring")
}

func TestBuild_DoubleBands(t *testing.T) {
	ch, err := Build(cfgFor(models.FrameDouble, 30), models.DefaultSizes())
	require.NoError(t, err)
	require.Len(t, ch.Shapes, 2)
	assert.Equal(t, Solid{color.NRGBA{0xff, 0, 0, 0xff}}, ch.Shapes[0].Paint)
	assert.Equal(t, Solid{color.NRGBA{0, 0, 0xff, 0xff}}, ch.Shapes[1].Paint)
}

func TestBuild_HexagonInnerIsHexagon(t *testing.T) {
	ch, err := Build(cfgFor(models.FrameHexagon, 20), models.DefaultSizes())
	require.NoError(t, err)

	lines := 0
	for _, el := range ch.Inner.Elements() {
		if _, ok := el.(gg.LineTo); ok {
			lines++
		}
	}
	assert.Equal(t, 5, lines)
}

func TestBuild_CustomImageFill(t *testing.T) {
	ch, err := Build(cfgFor(models.FrameCustomImage, 20), models.DefaultSizes())
	require.NoError(t, err)
	fill, ok := ch.Shapes[0].Paint.(ImageFill)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/ring.png", fill.URL)
}

func TestChrome_ScaleIsUniform(t *testing.T) {
	ch, err := Build(cfgFor(models.FrameGradient, 25), models.DefaultSizes())
	require.NoError(t, err)

	px := ch.Scale(1024)
	box := px.Shapes[0].Path.BoundingBox()
	assert.InDelta(t, 0, box.Min.X, 1e-9)
	assert.InDelta(t, 1024, box.Max.X, 1e-9)

	g := px.Shapes[0].Paint.(LinearGradient)
	orig := ch.Shapes[0].Paint.(LinearGradient)
	assert.InDelta(t, orig.Start.X*1024, g.Start.X, 1e-9)

	assert.InDelta(t, 80, px.Inner.BoundingBox().Min.X, 1e-9)

	// scaling leaves the unit chrome untouched
	assert.InDelta(t, 1, ch.Shapes[0].Path.BoundingBox().Max.X, 1e-9)
}

func TestRotation_Clockwise(t *testing.T) {
	p := Rotation(90).TransformPoint(gg.Pt(0, -1))
	assert.InDelta(t, 1, p.X, 1e-12)
	assert.InDelta(t, 0, p.Y, 1e-12)
}

func TestInvertible(t *testing.T) {
	m := gg.Translate(0.3, 0.7).Multiply(Rotation(37)).Multiply(gg.Scale(0.2, 0.2))
	require.True(t, Invertible(m))
	assert.InDelta(t, 0.04, Det(m), 1e-12)

	inv := m.Invert()
	for _, p := range []gg.Point{{X: 0, Y: 0}, {X: 0.5, Y: -0.5}, {X: 1, Y: 2}} {
		got := inv.TransformPoint(m.TransformPoint(p))
		assert.InDelta(t, p.X, got.X, 1e-12)
		assert.InDelta(t, p.Y, got.Y, 1e-12)
	}

	assert.False(t, Invertible(gg.Scale(0, 1)))
}

func TestCircle_Bounds(t *testing.T) {
	box := Circle(2, 3, 1.5).BoundingBox()
	assert.InDelta(t, 0.5, box.Min.X, 1e-9)
	assert.InDelta(t, 1.5, box.Min.Y, 1e-9)
	assert.InDelta(t, 3.5, box.Max.X, 1e-9)
	assert.InDelta(t, 4.5, box.Max.Y, 1e-9)
}

func TestSector_SpansArc(t *testing.T) {
	p := Sector(0, 0, 1, 0.5, 0, math.Pi/2)

	els := p.Elements()
	require.NotEmpty(t, els)
	_, closed := els[len(els)-1].(gg.Close)
	assert.True(t, closed)

	assert.True(t, p.Contains(gg.Pt(0.5, 0.5)))
	assert.False(t, p.Contains(gg.Pt(0.2, 0.2)), "inside the inner radius")
	assert.False(t, p.Contains(gg.Pt(-0.7, 0.1)), "outside the angular range")
}

func TestAppend_KeepsSubpaths(t *testing.T) {
	p := Circle(0, 0, 1)
	n := len(p.Elements())
	Append(p, Circle(5, 5, 1))

	moves := 0
	for _, el := range p.Elements() {
		if _, ok := el.(gg.MoveTo); ok {
			moves++
		}
	}
	assert.Equal(t, 2*n, len(p.Elements()))
	assert.Equal(t, 2, moves)
}

func TestLookupGlyph(t *testing.T) {
	for _, name := range GlyphNames() {
		g, ok := LookupGlyph(name)
		require.True(t, ok)
		assert.Equal(t, name, g.Name)
		box := g.Path.BoundingBox()
		assert.GreaterOrEqual(t, box.Min.X, -0.5-1e-9, name)
		assert.LessOrEqual(t, box.Max.X, 0.5+1e-9, name)
		assert.GreaterOrEqual(t, box.Min.Y, -0.5-1e-9, name)
		assert.LessOrEqual(t, box.Max.Y, 0.5+1e-9, name)
	}

	_, ok := LookupGlyph("STAR")
	assert.True(t, ok)
	_, ok = LookupGlyph("unicorn")
	assert.False(t, ok)
}
