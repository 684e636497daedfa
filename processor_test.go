package bitsvg

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	p, err := NewProcessor(DefaultConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

// squareLogo is a black square on white, both layers made of rectangles.
func squareLogo() *image.NRGBA {
	img := solidImage(8, 8, white)
	fillRect(img, 2, 2, 6, 6, black)
	return img
}

func TestProcessor_SinglePixel(t *testing.T) {
	p := newTestProcessor(t)
	res, err := p.VectorizeImage(context.Background(), solidImage(1, 1, black))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Layers)
	assert.Equal(t, 1, res.Primitives)
	assert.Contains(t, res.Document.Minified, `<rect x="0" y="0" width="1" height="1" fill="#000000"/>`)

	m := res.Metrics
	assert.True(t, m.Valid)
	assert.Equal(t, 1.0, m.SSIM)
	assert.Equal(t, 1.0, m.EdgeIoU)
	assert.Greater(t, m.Bytes, 0)
	assert.True(t, m.Accepted)
}

func TestProcessor_TwoColorLogo(t *testing.T) {
	p := newTestProcessor(t)
	res, err := p.VectorizeImage(context.Background(), squareLogo())
	require.NoError(t, err)

	want := `<svg xmlns="http://www.w3.org/2000/svg" width="8" height="8" viewBox="0 0 8 8"><g id="logo">` +
		`<rect x="0" y="0" width="8" height="8" fill="#ffffff"/>` +
		`<rect x="2" y="2" width="4" height="4" fill="#000000"/>` +
		`</g></svg>`
	assert.Equal(t, want, res.Document.Minified)
	assert.Equal(t, 2, res.Primitives)
	assert.Equal(t, 1.0, res.Metrics.SSIM)
	assert.Equal(t, 1.0, res.Metrics.EdgeIoU)
	assert.Zero(t, res.Metrics.BudgetExhausted)
}

func TestProcessor_CurvedOutlinesBecomePaths(t *testing.T) {
	img := solidImage(24, 24, white)
	// An L shape is neither a circle nor a rectangle.
	fillRect(img, 2, 2, 6, 22, black)
	fillRect(img, 2, 18, 22, 22, black)

	p := newTestProcessor(t)
	res, err := p.VectorizeImage(context.Background(), img)
	require.NoError(t, err)
	assert.Contains(t, res.Document.Minified, `<path d="M`)
	assert.True(t, res.Metrics.Valid)
}

func TestProcessor_SharesTraceCache(t *testing.T) {
	p := newTestProcessor(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := p.VectorizeImage(ctx, squareLogo())
		require.NoError(t, err)
	}
	st := p.CacheStats()
	assert.EqualValues(t, 2, st.Misses)
	assert.EqualValues(t, 2, st.Hits)
}

func TestProcessor_WithStore(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	p1 := newTestProcessor(t, WithStore(store))
	_, err := p1.VectorizeImage(ctx, squareLogo())
	require.NoError(t, err)
	assert.Equal(t, 2, store.len())

	p2 := newTestProcessor(t, WithStore(store))
	_, err = p2.VectorizeImage(ctx, squareLogo())
	require.NoError(t, err)
	assert.EqualValues(t, 2, p2.CacheStats().StoreHits)
}

func TestProcessor_RenderFailureKeepsDocument(t *testing.T) {
	p := newTestProcessor(t, WithRenderer(failingRenderer{}))
	res, err := p.VectorizeImage(context.Background(), squareLogo())
	assert.ErrorIs(t, err, ErrRenderFailure)
	require.NotNil(t, res)
	assert.False(t, res.Metrics.Valid)
	assert.False(t, res.Metrics.Accepted)
	assert.Equal(t, len(res.Document.Minified), res.Metrics.Bytes)
	assert.Contains(t, res.Document.Minified, "<rect")

	var src, out bytes.Buffer
	require.NoError(t, png.Encode(&src, squareLogo()))
	err = p.Process(context.Background(), &src, &out)
	assert.ErrorIs(t, err, ErrRenderFailure)
	assert.Equal(t, res.Document.Minified, out.String())
}

func TestProcessor_Cancelled(t *testing.T) {
	p := newTestProcessor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.VectorizeImage(ctx, squareLogo())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestProcessor_Vectorize(t *testing.T) {
	p := newTestProcessor(t)
	ctx := context.Background()

	_, err := p.Vectorize(ctx, nil, 0, 4, nil)
	assert.Error(t, err)

	// Without a source raster the layers stand in for it.
	m := NewMask(3, 3)
	m.Set(1, 1)
	layers := []Layer{
		{Mask: m, Color: black, Area: 1},
		{Mask: &Mask{Width: 3, Height: 3}, Color: red, Area: 0},
	}
	res, err := p.Vectorize(ctx, layers, 3, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Layers)
	assert.Equal(t, 1.0, res.Metrics.SSIM)

	// A malformed mask only drops its own layer.
	layers = append(layers, Layer{Mask: &Mask{Width: 3, Height: 3, Pix: []uint8{1}}, Color: blue, Area: 5})
	res, err = p.Vectorize(ctx, layers, 3, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Layers)
}

func TestProcessor_ProcessPretty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SVG.Pretty = true
	p, err := NewProcessor(cfg)
	require.NoError(t, err)
	defer p.Close()

	var src, out bytes.Buffer
	require.NoError(t, png.Encode(&src, squareLogo()))
	require.NoError(t, p.Process(context.Background(), &src, &out))
	assert.True(t, strings.HasSuffix(out.String(), "</svg>\n"))
	assert.Contains(t, out.String(), "\n    <rect")

	err = p.Process(context.Background(), strings.NewReader("nope"), &out)
	assert.Error(t, err)
}

func TestNewProcessor_Config(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fit.MaxSegments = 0
	_, err := NewProcessor(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Server.Mode = "verbose"
	_, err = NewProcessor(cfg)
	assert.Error(t, err)

	// An unreachable trace store leaves the cache in memory.
	cfg = DefaultConfig()
	cfg.Cache.Redis.Addr = "127.0.0.1:1"
	p, err := NewProcessor(cfg)
	require.NoError(t, err)
	defer p.Close()
	assert.Nil(t, p.store)

	res, err := p.VectorizeImage(context.Background(), squareLogo())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Layers)
}
