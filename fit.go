package bitsvg

import "math"

const (
	// maxReparamRounds bounds the Newton–Raphson reparameterization attempts
	// made before a range is split.
	maxReparamRounds = 3
	// minTangentScale is the smallest accepted tangent scale; smaller (or
	// negative) least-squares solutions fall back to a third of the chord.
	minTangentScale = 1e-6
	// reparamNudge keeps reparameterized values strictly increasing.
	reparamNudge = 1e-4
)

// FitConfig governs the curve fitter's error tolerance and output size.
type FitConfig struct {
	// MaxError is the largest accepted distance, in pixels, between an input
	// point and the fitted curve.
	MaxError float64 `mapstructure:"max_error_px" json:"max_error_px"`
	// MaxSegments bounds the number of cubic segments of a single path.
	MaxSegments int `mapstructure:"max_segments" json:"max_segments"`
}

// Fit fits one BezierPath to every polygon.
func Fit(polygons []Polyline, cfg FitConfig) []BezierPath {
	out := make([]BezierPath, len(polygons))
	for i, pl := range polygons {
		out[i], _ = FitPath(pl, cfg)
	}
	return out
}

// FitPath fits a chain of cubic Bézier segments to pl so that every point of
// pl lies within cfg.MaxError of the curve, splitting the chain at the worst
// fitting point where a single cubic cannot meet the tolerance.
//
// The number of segments never exceeds cfg.MaxSegments. When the budget runs
// out the last computed curve is accepted regardless of its error and the
// second return value is true; the path then has exactly MaxSegments segments.
func FitPath(pl Polyline, cfg FitConfig) (BezierPath, bool) {
	if len(pl) == 0 {
		return BezierPath{}, false
	}
	if len(pl) < 3 {
		p := pl[0]
		return BezierPath{Segments: []CubicBez{{P0: p, P1: p, P2: p, P3: p}}}, false
	}

	pts := prepareChain(pl)
	if len(pts) < 2 {
		p := pts[0]
		return BezierPath{Segments: []CubicBez{{P0: p, P1: p, P2: p, P3: p}}}, false
	}

	budget := max(cfg.MaxSegments, 1)
	tol2 := cfg.MaxError * cfg.MaxError
	last := len(pts) - 1

	f := fitter{pts: pts}
	stack := []fitRange{{
		lo:   0,
		hi:   last,
		tanL: pts[1].Sub(pts[0]).Unit(),
		tanR: pts[last-1].Sub(pts[last]).Unit(),
	}}

	var (
		segs      []CubicBez
		exhausted bool
	)
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		c, split, ok := f.fit(r, tol2)
		if ok {
			segs = append(segs, c)
			continue
		}
		// Replacing r by two halves adds one segment to the final count.
		if len(segs)+len(stack)+2 > budget {
			segs = append(segs, c)
			exhausted = true
			continue
		}
		center := pts[split+1].Sub(pts[split-1]).Unit()
		// Right half is pushed first so that the left half is emitted first.
		stack = append(stack,
			fitRange{lo: split, hi: r.hi, tanL: center, tanR: r.tanR},
			fitRange{lo: r.lo, hi: split, tanL: r.tanL, tanR: center.Negate()},
		)
	}
	if exhausted {
		Logger().Sugar().Warnw("curve fit accepted above tolerance",
			"err", ErrSegmentBudgetExhausted, "segments", len(segs), "points", len(pts))
	}
	return BezierPath{Segments: segs}, exhausted
}

// fitRange is a sub-chain pts[lo..hi] of the shared point array together with
// its unit end tangents. tanR points from pts[hi] back into the chain.
type fitRange struct {
	lo, hi     int
	tanL, tanR Vec2
}

// fitter holds the prepared point chain and the parameter buffer reused by all ranges.
type fitter struct {
	pts Polyline
	u   []float64
}

// fit fits a single cubic to r. It returns the curve, the index of the
// worst fitting point and whether the curve meets the tolerance.
func (f *fitter) fit(r fitRange, tol2 float64) (CubicBez, int, bool) {
	pts := f.pts[r.lo : r.hi+1]
	u := f.chordParams(pts)

	c := generateBezier(pts, u, r.tanL, r.tanR)
	split, err := maxError(pts, c, u)
	if err <= tol2 {
		return c, r.lo + split, true
	}
	for i := 0; i < maxReparamRounds; i++ {
		f.reparameterize(pts, c, u)
		c = generateBezier(pts, u, r.tanL, r.tanR)
		split, err = maxError(pts, c, u)
		if err <= tol2 {
			return c, r.lo + split, true
		}
	}
	return c, r.lo + split, false
}

// chordParams assigns every point its normalized cumulative chord length.
// Chains without length get a uniform parameterization.
func (f *fitter) chordParams(pts Polyline) []float64 {
	n := len(pts)
	if cap(f.u) < n {
		f.u = make([]float64, n)
	}
	u := f.u[:n]
	u[0] = 0
	for i := 1; i < n; i++ {
		u[i] = u[i-1] + pts[i].Distance(pts[i-1])
	}
	total := u[n-1]
	if total <= 1e-12 {
		for i := range u {
			u[i] = float64(i) / float64(n-1)
		}
		return u
	}
	for i := range u {
		u[i] /= total
	}
	return u
}

// generateBezier solves the 2×2 least-squares system for the tangent scales
// αL, αR of the cubic P0, P0+αL·tanL, P3+αR·tanR, P3.
func generateBezier(pts Polyline, u []float64, tanL, tanR Vec2) CubicBez {
	p0, p3 := pts[0], pts[len(pts)-1]

	var c00, c01, c11, x0, x1 float64
	for i, p := range pts {
		b := bernstein(u[i])
		a0 := tanL.Mul(b[1])
		a1 := tanR.Mul(b[2])
		c00 += a0.Dot(a0)
		c01 += a0.Dot(a1)
		c11 += a1.Dot(a1)
		// p − (P0·(b0+b1) + P3·(b2+b3))
		base := Point{
			X: p0.X*(b[0]+b[1]) + p3.X*(b[2]+b[3]),
			Y: p0.Y*(b[0]+b[1]) + p3.Y*(b[2]+b[3]),
		}
		tmp := p.Sub(base)
		x0 += a0.Dot(tmp)
		x1 += a1.Dot(tmp)
	}

	chord := p3.Distance(p0)
	alphaL, alphaR, err := solveScales(c00, c01, c11, x0, x1)
	if err != nil || alphaL < minTangentScale || alphaR < minTangentScale {
		alphaL, alphaR = chord/3, chord/3
	}
	return CubicBez{
		P0: p0,
		P1: p0.Add(tanL.Mul(alphaL)),
		P2: p3.Add(tanR.Mul(alphaR)),
		P3: p3,
	}
}

// solveScales solves the symmetric system by Cramer's rule.
func solveScales(c00, c01, c11, x0, x1 float64) (float64, float64, error) {
	det := c00*c11 - c01*c01
	if math.Abs(det) <= singularDet {
		return 0, 0, ErrSingularFit
	}
	alphaL := (x0*c11 - x1*c01) / det
	alphaR := (c00*x1 - c01*x0) / det
	if math.IsNaN(alphaL) || math.IsNaN(alphaR) {
		return 0, 0, ErrSingularFit
	}
	return alphaL, alphaR, nil
}

// maxError returns the interior point farthest from its parameterized
// position on c, and that squared distance. Chains without interior points
// report -1.
func maxError(pts Polyline, c CubicBez, u []float64) (int, float64) {
	split, worst := len(pts)/2, -1.0
	for i := 1; i < len(pts)-1; i++ {
		if d := c.Eval(u[i]).DistanceSquared(pts[i]); d > worst {
			split, worst = i, d
		}
	}
	return split, worst
}

// reparameterize moves every u[i] one Newton–Raphson step towards the root of
// (Q(u)−P)·Q'(u), then restores a valid monotonic parameterization.
func (f *fitter) reparameterize(pts Polyline, c CubicBez, u []float64) {
	for i, p := range pts {
		t := u[i]
		d := c.Eval(t).Sub(p)
		d1 := c.Deriv(t)
		d2 := c.Deriv2(t)
		num := d.Dot(d1)
		den := d1.Dot(d1) + d.Dot(d2)
		if math.Abs(den) < singularDet {
			continue
		}
		u[i] = t - num/den
	}
	restoreMonotonic(u)
}

// restoreMonotonic clamps u to [0, 1] and makes it strictly increasing. Ties
// are pushed forward by a small step and a tail that overshoots 1 is pulled
// back from u[n-1] = 1, so no two parameters end up equal.
func restoreMonotonic(u []float64) {
	n := len(u)
	if n == 0 {
		return
	}
	step := reparamNudge
	if n > 1 {
		step = math.Min(step, 1/float64(n-1))
	}
	for i := range u {
		u[i] = math.Min(1, math.Max(0, u[i]))
		if i > 0 && u[i] <= u[i-1] {
			u[i] = u[i-1] + step
		}
	}
	if u[n-1] > 1 {
		u[n-1] = 1
	}
	for i := n - 2; i >= 0 && u[i] >= u[i+1]; i-- {
		u[i] = u[i+1] - step
	}
}

// prepareChain removes consecutive near-duplicates and, for closed chains,
// rotates the ring to start at its sharpest corner so that the forced
// endpoint of the fit does not land on a smooth stretch.
func prepareChain(pl Polyline) Polyline {
	closed := pl.Closed()

	pts := make(Polyline, 0, len(pl)+1)
	for _, p := range pl {
		if len(pts) > 0 && p.DistanceSquared(pts[len(pts)-1]) < closeEpsilon*closeEpsilon {
			continue
		}
		pts = append(pts, p)
	}
	if !closed {
		return pts
	}

	ring := pts.Ring()
	n := len(ring)
	if n < 3 {
		return pts
	}
	start, sharpest := 0, -1.0
	for i := range ring {
		in := ring[i].Sub(ring[(i-1+n)%n]).Unit()
		out := ring[(i+1)%n].Sub(ring[i]).Unit()
		if turn := 1 - in.Dot(out); turn > sharpest {
			start, sharpest = i, turn
		}
	}
	rotated := make(Polyline, 0, n+1)
	rotated = append(rotated, ring[start:]...)
	rotated = append(rotated, ring[:start]...)
	return append(rotated, ring[start])
}
