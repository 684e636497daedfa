package bitsvg

// CubicBez is a cubic Bézier segment. P0 and P3 are the on-curve endpoints,
// P1 and P2 the control points.
type CubicBez struct {
	P0 Point
	P1 Point
	P2 Point
	P3 Point
}

// bernstein returns the cubic Bernstein basis at t.
func bernstein(t float64) [4]float64 {
	mt := 1 - t
	return [4]float64{mt * mt * mt, 3 * mt * mt * t, 3 * mt * t * t, t * t * t}
}

// Eval evaluates the curve at t.
func (c CubicBez) Eval(t float64) Point {
	b := bernstein(t)
	return Point{
		X: b[0]*c.P0.X + b[1]*c.P1.X + b[2]*c.P2.X + b[3]*c.P3.X,
		Y: b[0]*c.P0.Y + b[1]*c.P1.Y + b[2]*c.P2.Y + b[3]*c.P3.Y,
	}
}

// Deriv evaluates the first derivative at t.
func (c CubicBez) Deriv(t float64) Vec2 {
	mt := 1 - t
	d01 := c.P1.Sub(c.P0)
	d12 := c.P2.Sub(c.P1)
	d23 := c.P3.Sub(c.P2)
	return d01.Mul(3 * mt * mt).Add(d12.Mul(6 * mt * t)).Add(d23.Mul(3 * t * t))
}

// Deriv2 evaluates the second derivative at t.
func (c CubicBez) Deriv2(t float64) Vec2 {
	a := c.P2.Sub(c.P1).Sub(c.P1.Sub(c.P0))
	b := c.P3.Sub(c.P2).Sub(c.P2.Sub(c.P1))
	return a.Mul(6 * (1 - t)).Add(b.Mul(6 * t))
}
