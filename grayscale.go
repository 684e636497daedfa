package bitsvg

import (
	"image"
)

// Grayscale converts the image to grayscale mode. Translucent pixels are
// composited over a white background first, the same way the renderer
// paints a document.
func Grayscale(src image.Image) *image.Gray {
	rect := src.Bounds()
	dx, dy := rect.Dx(), rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, dx, dy))

	for y := 0; y < dy; y++ {
		for x := 0; x < dx; x++ {
			// Premultiplied channels: adding the uncovered share of white
			// composites the pixel over a white background.
			r, g, b, a := src.At(rect.Min.X+x, rect.Min.Y+y).RGBA()
			bg := 0xffff - a
			dst.Pix[y*dst.Stride+x] = luminance(r+bg, g+bg, b+bg)
		}
	}
	return dst
}

// luminance maps 16 bit RGB channels to an 8 bit gray level.
func luminance(r, g, b uint32) uint8 {
	lum := float32(r)*0.299 + float32(g)*0.587 + float32(b)*0.114
	return uint8(lum / 256)
}
