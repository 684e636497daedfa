package bitsvg

import (
	"context"
	"image"
	"image/draw"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// storePingTimeout bounds the connectivity check of the durable trace store.
const storePingTimeout = 2 * time.Second

// Result is the outcome of vectorizing one image.
type Result struct {
	Document Document
	Metrics  Metrics
	// Layers is the number of color layers that produced at least one shape.
	Layers int
	// Primitives is the total number of shapes in the document.
	Primitives int
}

// Option customizes a Processor.
type Option func(*Processor)

// WithTracer replaces the default CrackTracer.
func WithTracer(t Tracer) Option {
	return func(p *Processor) { p.tracer = t }
}

// WithSegmenter replaces the default PaletteSegmenter.
func WithSegmenter(s Segmenter) Option {
	return func(p *Processor) { p.segmenter = s }
}

// WithRenderer replaces the default RasterRenderer used by the QA stage.
func WithRenderer(r Renderer) Option {
	return func(p *Processor) { p.renderer = r }
}

// WithStore backs the trace cache with s instead of the configured Redis store.
func WithStore(s Store) Option {
	return func(p *Processor) { p.store = s }
}

// Processor runs the vectorization pipeline. It owns one TraceCache shared by
// all images it processes and is safe for concurrent use.
type Processor struct {
	Config Config

	tracer    Tracer
	segmenter Segmenter
	renderer  Renderer
	store     Store
	redis     *RedisStore

	cache     *TraceCache
	evaluator *Evaluator
}

// NewProcessor validates cfg and assembles a pipeline. When cfg names a Redis
// server and no store is supplied, the server is used as durable trace store;
// if it cannot be reached the cache works in memory only.
func NewProcessor(cfg Config, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	p := &Processor{Config: cfg}
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer = CrackTracer{}
	}
	if p.segmenter == nil {
		p.segmenter = NewPaletteSegmenter(cfg.Colors)
	}
	if p.renderer == nil {
		p.renderer = RasterRenderer{}
	}
	if p.store == nil && cfg.Cache.Redis.Addr != "" {
		p.connectRedis(cfg.Cache.Redis)
	}

	cache, err := NewTraceCache(p.tracer, cfg.Cache.Capacity, p.store)
	if err != nil {
		return nil, err
	}
	p.cache = cache
	p.evaluator = NewEvaluator(p.renderer, cfg.QA)
	return p, nil
}

func (p *Processor) connectRedis(cfg RedisConfig) {
	rs := DialRedis(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), storePingTimeout)
	defer cancel()

	if err := rs.Ping(ctx); err != nil {
		Logger().Warn("redis connection failed, trace store disabled",
			zap.String("addr", cfg.Addr),
			zap.Error(wrapStoreError(err)),
		)
		_ = rs.Close()
		return
	}
	Logger().Info("redis trace store connected", zap.String("addr", cfg.Addr))
	p.redis = rs
	p.store = rs
}

// Close releases the connection of the Redis trace store, if any.
func (p *Processor) Close() error {
	if p.redis == nil {
		return nil
	}
	return p.redis.Close()
}

// CacheStats returns the counters of the processor's trace cache.
func (p *Processor) CacheStats() CacheStats {
	return p.cache.Stats()
}

// Vectorize converts pre-segmented layers of a width×height image into an SVG
// document and scores it against gray, the grayscale source. When gray is nil
// the layers themselves are painted over white to stand in for the source.
//
// Failures confined to a layer or outline are logged and skipped. If the
// document cannot be rendered for QA, the returned Result still holds the
// document, its Metrics are marked invalid and the error wraps ErrRenderFailure.
func (p *Processor) Vectorize(ctx context.Context, layers []Layer, width, height int, gray *image.Gray) (*Result, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid canvas size %dx%d", width, height)
	}
	ordered := make([]Layer, len(layers))
	copy(ordered, layers)
	SortLayers(ordered)

	var (
		shapes    []LayerShapes
		total     int
		exhausted int
	)
	for i, l := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prims, n, err := p.layerPrimitives(ctx, l)
		if err != nil {
			Logger().Warn("skipping layer",
				zap.Int("layer", i),
				zap.String("color", hexColor(l.Color)),
				zap.Error(err),
			)
			continue
		}
		exhausted += n
		if len(prims) == 0 {
			continue
		}
		total += len(prims)
		shapes = append(shapes, LayerShapes{Color: l.Color, Primitives: prims})
	}

	res := &Result{
		Document:   Compose(shapes, width, height, p.Config.SVG),
		Layers:     len(shapes),
		Primitives: total,
	}

	if gray == nil {
		gray = layersToGray(ordered, width, height)
	}
	m, err := p.evaluator.Evaluate(res.Document.Minified, width, height, gray)
	m.BudgetExhausted = exhausted
	res.Metrics = m
	if err != nil {
		Logger().Warn("quality check failed", zap.Error(err))
		return res, err
	}

	Logger().Info("image vectorized",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("layers", res.Layers),
		zap.Int("primitives", res.Primitives),
		zap.Int("bytes", m.Bytes),
		zap.Float64("ssim", m.SSIM),
		zap.Float64("edge_iou", m.EdgeIoU),
		zap.Bool("accepted", m.Accepted),
	)
	return res, nil
}

// layerPrimitives runs trace, simplify, snap and fit for one layer. It also
// returns the number of outlines whose curve fit exhausted its segment budget.
func (p *Processor) layerPrimitives(ctx context.Context, l Layer) ([]Primitive, int, error) {
	pls, err := p.cache.Trace(ctx, l.Mask)
	if err != nil {
		return nil, 0, errors.Wrap(err, "tracing layer")
	}

	var (
		prims     []Primitive
		exhausted int
	)
	for _, traced := range pls {
		pl := Simplify(traced, p.Config.SimplifyEpsilon)
		if len(pl) < minSnapPoints {
			// Small outlines collapse under simplification; keep their exact shape.
			pl = traced
		}
		prim, err := Classify(pl, p.Config.Snap)
		if err != nil {
			Logger().Debug("skipping outline", zap.Int("points", len(pl)), zap.Error(err))
			continue
		}
		if poly, ok := prim.(Polygon); ok {
			path, budgetHit := FitPath(poly.Points, p.Config.Fit)
			if len(path.Segments) == 0 {
				continue
			}
			if budgetHit {
				exhausted++
			}
			prim = path
		}
		prims = append(prims, prim)
	}
	Logger().Debug("layer processed",
		zap.Int("area", l.Area),
		zap.Int("outlines", len(pls)),
		zap.Int("primitives", len(prims)),
	)
	return prims, exhausted, nil
}

// VectorizeImage segments img into color layers and vectorizes them.
func (p *Processor) VectorizeImage(ctx context.Context, img image.Image) (*Result, error) {
	layers, err := p.segmenter.Segment(img)
	if err != nil {
		return nil, errors.Wrap(err, "segmenting image")
	}
	b := img.Bounds()
	return p.Vectorize(ctx, layers, b.Dx(), b.Dy(), Grayscale(img))
}

// VectorizeReader decodes the image read from r and vectorizes it.
func (p *Processor) VectorizeReader(ctx context.Context, r io.Reader) (*Result, error) {
	img, err := decodeImage(r)
	if err != nil {
		return nil, err
	}
	return p.VectorizeImage(ctx, img)
}

// Process is the main entry point which decodes the source image and
// writes the SVG document into the output. The document is written even when
// its quality check fails; the error is returned afterwards.
func (p *Processor) Process(ctx context.Context, r io.Reader, w io.Writer) error {
	res, err := p.VectorizeReader(ctx, r)
	if res == nil {
		return err
	}

	out := res.Document.Minified
	if p.Config.SVG.Pretty {
		out = res.Document.Pretty
	}
	if _, werr := io.WriteString(w, out); werr != nil {
		return errors.Wrap(werr, "writing document")
	}
	return err
}

// layersToGray paints the layers in order over a white canvas.
func layersToGray(layers []Layer, width, height int) *image.Gray {
	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	for _, l := range layers {
		if l.Mask == nil || l.Mask.Width != width || l.Mask.Height != height || len(l.Mask.Pix) != width*height {
			continue
		}
		mask := &image.Alpha{
			Pix:    l.Mask.Pix,
			Stride: l.Mask.Width,
			Rect:   image.Rect(0, 0, width, height),
		}
		draw.DrawMask(canvas, canvas.Bounds(), image.NewUniform(l.Color), image.Point{}, mask, image.Point{}, draw.Over)
	}
	return Grayscale(canvas)
}
