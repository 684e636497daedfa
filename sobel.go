package bitsvg

import (
	"image"
	"math"
)

type kernel [3][3]float64

var (
	kernelX = kernel{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}

	kernelY = kernel{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// SobelMagnitude returns the gradient magnitude of every pixel, row major.
// Borders are extended by reflection without repeating the edge pixel.
// See https://en.wikipedia.org/wiki/Sobel_operator
func SobelMagnitude(img *image.Gray) []float64 {
	b := img.Bounds()
	dx, dy := b.Dx(), b.Dy()
	mag := make([]float64, dx*dy)

	at := func(x, y int) float64 {
		x, y = reflect101(x, dx), reflect101(y, dy)
		return float64(img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)])
	}
	for y := 0; y < dy; y++ {
		for x := 0; x < dx; x++ {
			var sumX, sumY float64
			for ky := 0; ky < 3; ky++ {
				for kx := 0; kx < 3; kx++ {
					v := at(x+kx-1, y+ky-1)
					sumX += v * kernelX[ky][kx]
					sumY += v * kernelY[ky][kx]
				}
			}
			mag[y*dx+x] = math.Hypot(sumX, sumY)
		}
	}
	return mag
}

// EdgeMap thresholds a gradient magnitude map at ratio times its own maximum.
// A map without any gradient has no edges.
func EdgeMap(mag []float64, ratio float64) []bool {
	var peak float64
	for _, m := range mag {
		peak = math.Max(peak, m)
	}
	edges := make([]bool, len(mag))
	if peak <= 0 {
		return edges
	}
	thr := ratio * peak
	for i, m := range mag {
		edges[i] = m > thr
	}
	return edges
}

// reflect101 mirrors an out of range index about the border pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}
