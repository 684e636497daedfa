package bitsvg

import (
	"github.com/pkg/errors"
)

// Mask is a binary raster: one byte per pixel, row major,
// 0 for background and 255 for a set pixel.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates an empty mask of the given size.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Set marks the pixel at (x, y). Coordinates outside the mask are ignored.
func (m *Mask) Set(x, y int) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = 0xff
}

// At reports whether the pixel at (x, y) is set.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x] != 0
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	var n int
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

func (m *Mask) validate() error {
	if m == nil {
		return errors.New("nil mask")
	}
	if m.Width < 0 || m.Height < 0 || len(m.Pix) != m.Width*m.Height {
		return errors.Errorf("malformed mask: %dx%d with %d bytes", m.Width, m.Height, len(m.Pix))
	}
	return nil
}

// Tracer turns a binary mask into closed boundary polylines.
type Tracer interface {
	Trace(m *Mask) ([]Polyline, error)
}

// CrackTracer follows the pixel edges ("cracks") between set and unset pixels.
// It returns the outer boundary of every 4-connected region as a closed
// polyline through pixel corners, clockwise in image coordinates and with
// collinear vertices removed. Holes are not reported. Loops are ordered by
// the raster position of their first pixel.
type CrackTracer struct{}

type crackEdge struct {
	from, to int
	dx, dy   int
	used     bool
}

// Trace implements Tracer.
func (CrackTracer) Trace(m *Mask) ([]Polyline, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	stride := m.Width + 1
	vertex := func(x, y int) int { return y*stride + x }

	var edges []crackEdge
	out := make(map[int][]int)
	add := func(x0, y0, x1, y1 int) {
		e := crackEdge{from: vertex(x0, y0), to: vertex(x1, y1), dx: x1 - x0, dy: y1 - y0}
		out[e.from] = append(out[e.from], len(edges))
		edges = append(edges, e)
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.At(x, y) {
				continue
			}
			if !m.At(x, y-1) {
				add(x, y, x+1, y)
			}
			if !m.At(x+1, y) {
				add(x+1, y, x+1, y+1)
			}
			if !m.At(x, y+1) {
				add(x+1, y+1, x, y+1)
			}
			if !m.At(x-1, y) {
				add(x, y+1, x, y)
			}
		}
	}

	var loops []Polyline
	for start := range edges {
		if edges[start].used {
			continue
		}
		var ring []int
		cur := start
		for {
			e := &edges[cur]
			e.used = true
			ring = append(ring, e.from)

			next, rank := -1, 4
			for _, cand := range out[e.to] {
				c := edges[cand]
				if c.used && cand != start {
					continue
				}
				if r := turnRank(e.dx, e.dy, c.dx, c.dy); r < rank {
					next, rank = cand, r
				}
			}
			if next < 0 || next == start {
				break
			}
			cur = next
		}

		loop := cornerLoop(ring, stride)
		if len(loop) < 4 || loop.SignedArea() <= 0 {
			continue
		}
		loops = append(loops, loop)
	}
	return loops, nil
}

// turnRank orders the continuation (ox, oy) of a walk heading (dx, dy):
// right turns first, then straight ahead, then left. Right turns keep
// diagonally touching pixels in separate loops.
func turnRank(dx, dy, ox, oy int) int {
	switch {
	case ox == -dy && oy == dx:
		return 0
	case ox == dx && oy == dy:
		return 1
	case ox == dy && oy == -dx:
		return 2
	}
	return 3
}

// cornerLoop drops the vertices of the cyclic vertex ring where the walk goes
// straight on, rotates it to start at its topmost-leftmost corner and closes it.
func cornerLoop(ring []int, stride int) Polyline {
	n := len(ring)
	pt := func(i int) (int, int) {
		v := ring[((i%n)+n)%n]
		return v % stride, v / stride
	}

	corners := make([]int, 0, n)
	for i := range ring {
		px, py := pt(i - 1)
		cx, cy := pt(i)
		nx, ny := pt(i + 1)
		if (cx-px)*(ny-cy)-(cy-py)*(nx-cx) != 0 {
			corners = append(corners, ring[i])
		}
	}
	if len(corners) == 0 {
		return nil
	}

	first := 0
	for i, v := range corners {
		if v < corners[first] {
			first = i
		}
	}
	loop := make(Polyline, 0, len(corners)+1)
	for i := range corners {
		v := corners[(first+i)%len(corners)]
		loop = append(loop, Pt(float64(v%stride), float64(v/stride)))
	}
	return append(loop, loop[0])
}
