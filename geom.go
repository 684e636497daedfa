package bitsvg

import (
	"fmt"
	"math"
)

// closeEpsilon is the distance under which the first and last point of a
// polyline are considered coincident.
const closeEpsilon = 1e-6

// Point is a position in image pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt returns the point (x, y).
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (pt Point) String() string {
	return fmt.Sprintf("(%g, %g)", pt.X, pt.Y)
}

// Sub computes pt−o.
func (pt Point) Sub(o Point) Vec2 {
	return Vec2{X: pt.X - o.X, Y: pt.Y - o.Y}
}

// Add translates the point by v.
func (pt Point) Add(v Vec2) Point {
	return Point{X: pt.X + v.X, Y: pt.Y + v.Y}
}

// Distance returns the euclidean distance between two points.
func (pt Point) Distance(o Point) float64 {
	return math.Hypot(pt.X-o.X, pt.Y-o.Y)
}

// DistanceSquared returns the squared euclidean distance between two points.
func (pt Point) DistanceSquared(o Point) float64 {
	x := pt.X - o.X
	y := pt.Y - o.Y
	return x*x + y*y
}

// Vec2 is a displacement in pixel space.
type Vec2 struct {
	X float64
	Y float64
}

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Cross returns the z component of the cross product of v and o.
func (v Vec2) Cross(o Vec2) float64 {
	return v.X*o.Y - v.Y*o.X
}

// Hypot returns the magnitude of the vector.
func (v Vec2) Hypot() float64 {
	return math.Hypot(v.X, v.Y)
}

// Hypot2 returns the squared magnitude of the vector.
func (v Vec2) Hypot2() float64 {
	return v.Dot(v)
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Mul(f float64) Vec2 {
	return Vec2{X: v.X * f, Y: v.Y * f}
}

// Negate returns a new vector with the signs of x and y flipped.
func (v Vec2) Negate() Vec2 {
	return Vec2{X: -v.X, Y: -v.Y}
}

// Unit returns v scaled to magnitude 1. Vectors shorter than 1e-12 are
// returned unchanged instead of producing NaNs.
func (v Vec2) Unit() Vec2 {
	n := v.Hypot()
	if n <= 1e-12 {
		return v
	}
	return v.Mul(1 / n)
}

// Polyline is an ordered sequence of points. Stages never modify a polyline
// in place; they return a new one.
type Polyline []Point

// Closed reports whether the first and last point coincide.
func (pl Polyline) Closed() bool {
	if len(pl) < 2 {
		return false
	}
	return pl[0].DistanceSquared(pl[len(pl)-1]) < closeEpsilon*closeEpsilon
}

// Ring returns the polyline without its closing duplicate point.
// The returned slice shares storage with pl.
func (pl Polyline) Ring() Polyline {
	if pl.Closed() && len(pl) > 1 {
		return pl[:len(pl)-1]
	}
	return pl
}

// SignedArea returns the shoelace area of the polygon described by pl,
// implicitly closing it. In y-down image coordinates clockwise outlines
// have a positive area.
func (pl Polyline) SignedArea() float64 {
	ring := pl.Ring()
	if len(ring) < 3 {
		return 0
	}
	var a float64
	for i, p := range ring {
		q := ring[(i+1)%len(ring)]
		a += p.X*q.Y - q.X*p.Y
	}
	return 0.5 * a
}

// Bounds returns the axis-aligned bounding box of the polyline.
func (pl Polyline) Bounds() (lo, hi Point) {
	if len(pl) == 0 {
		return Point{}, Point{}
	}
	lo, hi = pl[0], pl[0]
	for _, p := range pl[1:] {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
	}
	return lo, hi
}

// distinct counts the number of distinct points.
func (pl Polyline) distinct() int {
	seen := make(map[Point]struct{}, len(pl))
	for _, p := range pl {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// Clone returns a copy of the polyline.
func (pl Polyline) Clone() Polyline {
	if pl == nil {
		return nil
	}
	out := make(Polyline, len(pl))
	copy(out, pl)
	return out
}
