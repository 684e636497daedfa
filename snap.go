package bitsvg

import "math"

const (
	// minSnapPoints is the smallest polyline Classify accepts.
	minSnapPoints = 4
	// minCirclePoints guards the circle fit: with fewer ring points any
	// quadrilateral is matched exactly by some circle.
	minCirclePoints = 6
	// singularDet is the absolute determinant threshold of the 2×2 solves.
	singularDet = 1e-12
)

// SnapConfig holds the acceptance thresholds of the shape classifier.
// The defaults are empirical policy, not physics.
type SnapConfig struct {
	// CircleTolerance is the maximum standard deviation, in pixels, of the
	// radial residuals for an outline to be accepted as a circle.
	CircleTolerance float64 `mapstructure:"circle_tolerance" json:"circle_tolerance"`
	// RectIoU is the minimum ratio between the outline area and the area of
	// its bounding box for it to be accepted as a rectangle.
	RectIoU float64 `mapstructure:"rect_iou" json:"rect_iou"`
}

// Classify decides whether pl is well approximated by a circle or an
// axis-aligned rectangle, testing for a circle first. Anything else is
// returned as a Polygon. Polylines with fewer than four points, or fewer than
// three distinct ones, yield ErrInsufficientGeometry.
func Classify(pl Polyline, cfg SnapConfig) (Primitive, error) {
	if len(pl) < minSnapPoints || pl.distinct() < 3 {
		return nil, ErrInsufficientGeometry
	}
	if c, ok := fitCircle(pl, cfg.CircleTolerance); ok {
		return c, nil
	}
	if r, ok := fitAxisRect(pl, cfg.RectIoU); ok {
		return r, nil
	}
	return Polygon{Points: pl.Clone()}, nil
}

// Snap classifies each polyline, silently skipping those with insufficient geometry.
func Snap(pls []Polyline, cfg SnapConfig) []Primitive {
	out := make([]Primitive, 0, len(pls))
	for _, pl := range pls {
		p, err := Classify(pl, cfg)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// fitCircle is the algebraic (Kåsa) least-squares circle fit. It solves
//
//	| Suu Suv | |uc|   1 | Suuu + Suvv |
//	| Suv Svv | |vc| = - | Svvv + Svuu |
//	                   2
//
// in coordinates centred on the mean point.
func fitCircle(pl Polyline, tol float64) (Circle, bool) {
	ring := pl.Ring()
	n := len(ring)
	if n < minCirclePoints {
		return Circle{}, false
	}

	var xm, ym float64
	for _, p := range ring {
		xm += p.X
		ym += p.Y
	}
	xm /= float64(n)
	ym /= float64(n)

	var suu, svv, suv, suuu, svvv, suvv, svuu float64
	for _, p := range ring {
		u, v := p.X-xm, p.Y-ym
		suu += u * u
		svv += v * v
		suv += u * v
		suuu += u * u * u
		svvv += v * v * v
		suvv += u * v * v
		svuu += v * u * u
	}
	det := suu*svv - suv*suv
	if math.Abs(det) < singularDet {
		return Circle{}, false
	}
	b0 := 0.5 * (suuu + suvv)
	b1 := 0.5 * (svvv + svuu)
	uc := (b0*svv - b1*suv) / det
	vc := (suu*b1 - suv*b0) / det
	center := Pt(uc+xm, vc+ym)

	dists := make([]float64, n)
	var mean float64
	for i, p := range ring {
		dists[i] = p.Distance(center)
		mean += dists[i]
	}
	mean /= float64(n)
	var variance float64
	for _, d := range dists {
		variance += (d - mean) * (d - mean)
	}
	std := math.Sqrt(variance / float64(n))

	if math.IsNaN(std) || mean <= 0 || std >= tol {
		return Circle{}, false
	}
	return Circle{Center: center, Radius: mean}, true
}

// fitAxisRect compares the outline with its bounding box. The outline is
// contained in its bounding box, so their intersection over union reduces to
// the ratio of the two areas.
func fitAxisRect(pl Polyline, iouThreshold float64) (Rect, bool) {
	area := math.Abs(pl.SignedArea())
	if area <= 0 || math.IsNaN(area) || math.IsInf(area, 0) {
		return Rect{}, false
	}
	lo, hi := pl.Bounds()
	w, h := hi.X-lo.X, hi.Y-lo.Y
	box := w * h
	if box <= 0 {
		return Rect{}, false
	}
	if area/box < iouThreshold {
		return Rect{}, false
	}
	return Rect{X: lo.X, Y: lo.Y, Width: w, Height: h}, true
}
