package bitsvg

import (
	"image"
	"image/draw"
	"strings"

	"github.com/pkg/errors"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Renderer rasterizes an SVG document to a width×height gray image.
type Renderer interface {
	Render(doc string, width, height int) (*image.Gray, error)
}

// RasterRenderer is the default Renderer. Documents are parsed with oksvg in
// strict mode, so elements it cannot draw fail the render instead of being
// dropped, and filled by rasterx over a white background.
type RasterRenderer struct{}

// Render implements Renderer.
func (RasterRenderer) Render(doc string, width, height int) (*image.Gray, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid output size %dx%d", width, height)
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(doc), oksvg.StrictErrorMode)
	if err != nil {
		return nil, errors.Wrap(err, "parsing document")
	}
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		return nil, errors.Errorf("document has no usable viewBox or size (%gx%g)", icon.ViewBox.W, icon.ViewBox.H)
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(width, height, canvas, canvas.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1)

	return Grayscale(canvas), nil
}
