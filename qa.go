package bitsvg

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const (
	ssimC1 = 0.01 * 0.01
	ssimC2 = 0.03 * 0.03

	// edgeRatio is the share of the peak gradient above which a pixel is an edge.
	edgeRatio = 0.2
)

// QAConfig controls the fidelity evaluation.
type QAConfig struct {
	// SupersampleScale multiplies the canvas size for rendering and comparison.
	SupersampleScale int     `mapstructure:"supersample_scale" json:"supersample_scale"`
	SSIMThreshold    float64 `mapstructure:"ssim_threshold" json:"ssim_threshold"`
	EdgeIoUThreshold float64 `mapstructure:"edge_iou_threshold" json:"edge_iou_threshold"`
}

// Metrics scores a finished document against its source raster.
type Metrics struct {
	SSIM    float64 `json:"ssim"`
	EdgeIoU float64 `json:"edge_iou"`
	// Bytes is the size of the minified document.
	Bytes int `json:"bytes"`
	// BudgetExhausted counts the paths whose fit ran out of segments.
	BudgetExhausted int `json:"budget_exhausted"`
	// Valid is false when the document could not be rendered and the scores are absent.
	Valid    bool `json:"valid"`
	Accepted bool `json:"accepted"`
}

// Evaluator renders documents back to raster and compares them with the source.
type Evaluator struct {
	renderer Renderer
	cfg      QAConfig
}

// NewEvaluator returns an Evaluator using r, or a RasterRenderer when r is nil.
func NewEvaluator(r Renderer, cfg QAConfig) *Evaluator {
	if r == nil {
		r = RasterRenderer{}
	}
	if cfg.SupersampleScale < 1 {
		cfg.SupersampleScale = 1
	}
	return &Evaluator{renderer: r, cfg: cfg}
}

// Evaluate renders doc at the supersampled size of the width×height canvas,
// upscales src to the same size with nearest neighbour sampling and computes
// a global SSIM and the IoU of the Sobel edge maps. A render failure returns
// metrics marked invalid and an error wrapping ErrRenderFailure.
func (e *Evaluator) Evaluate(doc string, width, height int, src *image.Gray) (Metrics, error) {
	m := Metrics{Bytes: len(doc)}
	if src == nil {
		return m, errors.New("no source raster")
	}

	w, h := width*e.cfg.SupersampleScale, height*e.cfg.SupersampleScale
	rendered, err := e.renderer.Render(doc, w, h)
	if err != nil {
		return m, errors.Wrapf(ErrRenderFailure, "%v", err)
	}
	if b := rendered.Bounds(); b.Dx() != w || b.Dy() != h {
		return m, errors.Wrapf(ErrRenderFailure, "renderer returned %dx%d, want %dx%d", b.Dx(), b.Dy(), w, h)
	}
	ref := Grayscale(imaging.Resize(src, w, h, imaging.NearestNeighbor))

	m.SSIM = GlobalSSIM(ref, rendered)
	m.EdgeIoU = EdgeIoU(ref, rendered)
	m.Valid = true
	m.Accepted = m.SSIM >= e.cfg.SSIMThreshold && m.EdgeIoU >= e.cfg.EdgeIoUThreshold
	return m, nil
}

// GlobalSSIM computes the structural similarity of two equally sized images
// over a single window spanning the whole image.
func GlobalSSIM(a, b *image.Gray) float64 {
	x, y := intensities(a), intensities(b)
	n := float64(len(x))
	if n == 0 || len(x) != len(y) {
		return 0
	}

	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n

	var vx, vy, cov float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		vx += dx * dx
		vy += dy * dy
		cov += dx * dy
	}
	vx /= n
	vy /= n
	cov /= n

	return ((2*mx*my + ssimC1) * (2*cov + ssimC2)) /
		((mx*mx + my*my + ssimC1) * (vx + vy + ssimC2))
}

// EdgeIoU compares the thresholded Sobel edges of two equally sized images.
// Two images without edges are identical.
func EdgeIoU(a, b *image.Gray) float64 {
	ea := EdgeMap(SobelMagnitude(a), edgeRatio)
	eb := EdgeMap(SobelMagnitude(b), edgeRatio)
	if len(ea) != len(eb) {
		return 0
	}
	var inter, union int
	for i := range ea {
		if ea[i] && eb[i] {
			inter++
		}
		if ea[i] || eb[i] {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

// intensities returns the pixels of img as values in [0, 1], row major.
func intensities(img *image.Gray) []float64 {
	b := img.Bounds()
	dx, dy := b.Dx(), b.Dy()
	out := make([]float64, 0, dx*dy)
	for y := 0; y < dy; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		row := img.Pix[off : off+dx]
		for _, v := range row {
			out = append(out, float64(v)/255)
		}
	}
	return out
}
