package bitsvg

// Primitive is one filled shape of a layer. The set of implementations is
// closed: Circle, Rect, Polygon and BezierPath.
type Primitive interface {
	primitive()
}

// Circle is a circle snapped from a traced outline.
type Circle struct {
	Center Point
	Radius float64
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Polygon is an outline left as straight segments.
type Polygon struct {
	Points Polyline
}

// BezierPath is a closed contour of contiguous cubic segments:
// Segments[i].P3 == Segments[i+1].P0, and the last segment ends where the first starts.
type BezierPath struct {
	Segments []CubicBez
}

func (Circle) primitive()     {}
func (Rect) primitive()       {}
func (Polygon) primitive()    {}
func (BezierPath) primitive() {}
