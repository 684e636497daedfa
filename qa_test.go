package bitsvg

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wrongSizeRenderer ignores the requested size.
type wrongSizeRenderer struct{}

func (wrongSizeRenderer) Render(string, int, int) (*image.Gray, error) {
	return image.NewGray(image.Rect(0, 0, 1, 1)), nil
}

func gradient(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x] = uint8((x*37 + y*11) % 256)
		}
	}
	return img
}

func TestEvaluate_SelfConsistent(t *testing.T) {
	doc := Compose([]LayerShapes{{Color: black, Primitives: []Primitive{
		Rect{X: 2, Y: 2, Width: 6, Height: 4},
		Circle{Center: Pt(12, 10), Radius: 3},
	}}}, 16, 16, DefaultConfig().SVG).Minified

	src, err := RasterRenderer{}.Render(doc, 16, 16)
	require.NoError(t, err)

	e := NewEvaluator(nil, QAConfig{SupersampleScale: 1, SSIMThreshold: 0.97, EdgeIoUThreshold: 0.97})
	m, err := e.Evaluate(doc, 16, 16, src)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.SSIM)
	assert.Equal(t, 1.0, m.EdgeIoU)
	assert.Equal(t, len(doc), m.Bytes)
	assert.True(t, m.Valid)
	assert.True(t, m.Accepted)
}

func TestEvaluate_Supersampled(t *testing.T) {
	doc := Compose([]LayerShapes{{Color: black, Primitives: []Primitive{
		Rect{X: 1, Y: 1, Width: 2, Height: 2},
	}}}, 4, 4, DefaultConfig().SVG).Minified

	src := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	for _, p := range []image.Point{{1, 1}, {2, 1}, {1, 2}, {2, 2}} {
		src.SetGray(p.X, p.Y, color.Gray{})
	}

	m, err := NewEvaluator(nil, DefaultConfig().QA).Evaluate(doc, 4, 4, src)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.SSIM)
	assert.Equal(t, 1.0, m.EdgeIoU)
	assert.True(t, m.Accepted)

	// A document missing the square scores lower.
	empty := Compose(nil, 4, 4, DefaultConfig().SVG).Minified
	m, err = NewEvaluator(nil, DefaultConfig().QA).Evaluate(empty, 4, 4, src)
	require.NoError(t, err)
	assert.Less(t, m.SSIM, 0.97)
	assert.Equal(t, 0.0, m.EdgeIoU)
	assert.True(t, m.Valid)
	assert.False(t, m.Accepted)
}

func TestEvaluate_RenderFailure(t *testing.T) {
	doc := Compose(nil, 2, 2, FormatConfig{}).Minified
	src := image.NewGray(image.Rect(0, 0, 2, 2))

	for _, r := range []Renderer{failingRenderer{}, wrongSizeRenderer{}} {
		m, err := NewEvaluator(r, DefaultConfig().QA).Evaluate(doc, 2, 2, src)
		assert.ErrorIs(t, err, ErrRenderFailure)
		assert.False(t, m.Valid)
		assert.False(t, m.Accepted)
		assert.Equal(t, len(doc), m.Bytes)
	}

	_, err := NewEvaluator(nil, DefaultConfig().QA).Evaluate("<svg", 2, 2, src)
	assert.ErrorIs(t, err, ErrRenderFailure)

	// Elements the renderer cannot draw are not scored.
	unknown := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 2 2"><blink/></svg>`
	m, err := NewEvaluator(nil, DefaultConfig().QA).Evaluate(unknown, 2, 2, src)
	assert.ErrorIs(t, err, ErrRenderFailure)
	assert.False(t, m.Valid)
}

func TestNewEvaluator_ClampsScale(t *testing.T) {
	e := NewEvaluator(nil, QAConfig{SupersampleScale: 0})
	assert.Equal(t, 1, e.cfg.SupersampleScale)
	assert.IsType(t, RasterRenderer{}, e.renderer)
}

func TestGlobalSSIM(t *testing.T) {
	a := gradient(12, 9)
	assert.Equal(t, 1.0, GlobalSSIM(a, a))

	inv := image.NewGray(a.Bounds())
	for i, v := range a.Pix {
		inv.Pix[i] = 255 - v
	}
	assert.Less(t, GlobalSSIM(a, inv), 0.0)

	flat := image.NewGray(image.Rect(0, 0, 5, 5))
	assert.Equal(t, 1.0, GlobalSSIM(flat, flat))
	assert.Equal(t, 0.0, GlobalSSIM(flat, image.NewGray(image.Rect(0, 0, 2, 2))))
}

func TestEdgeIoU(t *testing.T) {
	flat := image.NewGray(image.Rect(0, 0, 6, 6))
	assert.Equal(t, 1.0, EdgeIoU(flat, flat), "no edges on either side")

	a := gradient(10, 10)
	assert.Equal(t, 1.0, EdgeIoU(a, a))
	assert.Equal(t, 0.0, EdgeIoU(image.NewGray(a.Bounds()), a))
}

func TestSobel(t *testing.T) {
	flat := image.NewGray(image.Rect(0, 0, 5, 5))
	for _, m := range SobelMagnitude(flat) {
		assert.Zero(t, m)
	}

	// Vertical step between columns 2 and 3.
	step := image.NewGray(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 3; x < 6; x++ {
			step.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	edges := EdgeMap(SobelMagnitude(step), 0.2)
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			assert.Equal(t, x == 2 || x == 3, edges[y*6+x], "pixel (%d, %d)", x, y)
		}
	}

	assert.Equal(t, []bool{false, false}, EdgeMap([]float64{0, 0}, 0.2))
}

func TestReflect101(t *testing.T) {
	assert.Equal(t, 1, reflect101(-1, 5))
	assert.Equal(t, 2, reflect101(-2, 5))
	assert.Equal(t, 3, reflect101(5, 5))
	assert.Equal(t, 2, reflect101(6, 5))
	assert.Equal(t, 0, reflect101(-1, 1))
	assert.Equal(t, 4, reflect101(4, 5))
}
