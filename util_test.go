package bitsvg

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Error(d)
	}
}

// circlePolyline samples n points of a circle and closes the ring.
func circlePolyline(c Point, r float64, n int) Polyline {
	pl := make(Polyline, 0, n+1)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		pl = append(pl, Pt(c.X+r*math.Cos(a), c.Y+r*math.Sin(a)))
	}
	return append(pl, pl[0])
}

// sawtooth returns a closed outline whose top edge has n sharp teeth.
func sawtooth(n int, width, height float64) Polyline {
	var pl Polyline
	for i := 0; i <= 2*n; i++ {
		y := 0.0
		if i%2 == 1 {
			y = height
		}
		pl = append(pl, Pt(float64(i)*width/2, y))
	}
	bottom := 3 * height
	pl = append(pl, Pt(float64(2*n)*width/2, bottom), Pt(0, bottom), pl[0])
	return pl
}

// solidImage returns a w×h image of color c.
func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// fillRect paints the rectangle [x0,x1)×[y0,y1) of img with c.
func fillRect(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

var (
	black = color.NRGBA{A: 0xff}
	white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	red   = color.NRGBA{R: 0xff, A: 0xff}
	blue  = color.NRGBA{B: 0xff, A: 0xff}
)

// memStore is an in-memory Store.
type memStore struct {
	mu   sync.Mutex
	data map[string][]Polyline
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]Polyline)}
}

func (s *memStore) Get(_ context.Context, key string) ([]Polyline, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pls, ok := s.data[key]
	return pls, ok, nil
}

func (s *memStore) Put(_ context.Context, key string, pls []Polyline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = pls
	return nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

var errStoreDown = errors.New("store down")

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]Polyline, bool, error) {
	return nil, false, errStoreDown
}

func (brokenStore) Put(context.Context, string, []Polyline) error {
	return errStoreDown
}

// failingRenderer never renders.
type failingRenderer struct{}

func (failingRenderer) Render(string, int, int) (*image.Gray, error) {
	return nil, errors.New("renderer offline")
}
