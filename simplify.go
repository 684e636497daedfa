package bitsvg

import "math"

// Simplify reduces pl to a subset of its vertices such that every dropped
// vertex lies within eps pixels of the chord between its kept neighbours
// (Ramer–Douglas–Peucker). Consecutive duplicate points are always removed;
// with eps == 0 nothing else is dropped. A closed input yields a closed output.
// Inputs with fewer than three points are returned unchanged.
func Simplify(pl Polyline, eps float64) Polyline {
	if len(pl) < 3 {
		return pl.Clone()
	}
	closed := pl.Closed()

	pts := make(Polyline, 0, len(pl))
	for i, p := range pl {
		if i > 0 && p == pl[i-1] {
			continue
		}
		pts = append(pts, p)
	}
	if eps <= 0 || len(pts) < 3 {
		return pts
	}

	keep := make([]bool, len(pts))
	keep[0], keep[len(pts)-1] = true, true

	type span struct{ lo, hi int }
	stack := []span{{0, len(pts) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.hi-s.lo < 2 {
			continue
		}
		idx, dmax := -1, -1.0
		for i := s.lo + 1; i < s.hi; i++ {
			if d := chordDistance(pts[i], pts[s.lo], pts[s.hi]); d > dmax {
				idx, dmax = i, d
			}
		}
		if dmax > eps {
			keep[idx] = true
			stack = append(stack, span{s.lo, idx}, span{idx, s.hi})
		}
	}

	out := make(Polyline, 0, len(pts))
	for i, p := range pts {
		if keep[i] {
			out = append(out, p)
		}
	}
	if closed && !out.Closed() {
		out = append(out, out[0])
	}
	return out
}

// SimplifyAll simplifies every polyline in the set.
func SimplifyAll(pls []Polyline, eps float64) []Polyline {
	out := make([]Polyline, len(pls))
	for i, pl := range pls {
		out[i] = Simplify(pl, eps)
	}
	return out
}

// chordDistance returns the perpendicular distance of p from the line
// through a and b, or the distance to a when the chord has no length.
func chordDistance(p, a, b Point) float64 {
	d := b.Sub(a)
	n := d.Hypot()
	if n <= 1e-12 {
		return p.Distance(a)
	}
	return math.Abs(d.Cross(p.Sub(a))) / n
}
