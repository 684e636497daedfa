package bitsvg

import (
	"image"
	"image/color"
	"sort"
)

// Layer is the set of pixels of one flat color.
type Layer struct {
	Mask  *Mask
	Color color.NRGBA
	// Area is the number of set pixels of Mask.
	Area int
}

// Segmenter splits an image into flat color layers.
type Segmenter interface {
	Segment(img image.Image) ([]Layer, error)
}

// SortLayers orders layers by area, largest first. Layers of equal area keep
// their relative order.
func SortLayers(layers []Layer) {
	sort.SliceStable(layers, func(i, j int) bool {
		return layers[i].Area > layers[j].Area
	})
}

const (
	defaultMaxColors      = 4
	defaultAlphaThreshold = 10
)

// PaletteSegmenter buckets opaque pixels by their exact RGB value. When the
// image holds more than MaxColors distinct colors, the pixels of the rarer
// ones are assigned to the nearest of the MaxColors most frequent colors.
type PaletteSegmenter struct {
	// MaxColors bounds the number of layers. Zero selects 4.
	MaxColors int
	// AlphaThreshold is the alpha at or below which a pixel counts as background.
	AlphaThreshold uint8
}

// NewPaletteSegmenter returns a segmenter with the default alpha threshold.
func NewPaletteSegmenter(maxColors int) *PaletteSegmenter {
	return &PaletteSegmenter{
		MaxColors:      maxColors,
		AlphaThreshold: defaultAlphaThreshold,
	}
}

type bucket struct {
	rgb    [3]uint8
	count  int
	alpha  int
	target int
}

// Segment implements Segmenter. The returned layers are sorted with SortLayers.
func (s *PaletteSegmenter) Segment(img image.Image) ([]Layer, error) {
	src := imgToNRGBA(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	maxColors := s.MaxColors
	if maxColors < 1 {
		maxColors = defaultMaxColors
	}

	// Pixel -> bucket index, -1 for background.
	assign := make([]int, w*h)
	index := make(map[[3]uint8]int)
	var buckets []*bucket
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := src.PixOffset(x, y)
			px := src.Pix[i : i+4 : i+4]
			if px[3] <= s.AlphaThreshold {
				assign[y*w+x] = -1
				continue
			}
			key := [3]uint8{px[0], px[1], px[2]}
			b, ok := index[key]
			if !ok {
				b = len(buckets)
				index[key] = b
				buckets = append(buckets, &bucket{rgb: key, target: b})
			}
			buckets[b].count++
			buckets[b].alpha += int(px[3])
			assign[y*w+x] = b
		}
	}
	if len(buckets) == 0 {
		return nil, nil
	}

	kept := make([]int, len(buckets))
	for i := range kept {
		kept[i] = i
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return buckets[kept[i]].count > buckets[kept[j]].count
	})
	if len(kept) > maxColors {
		kept = kept[:maxColors]
		retained := make(map[int]bool, len(kept))
		for _, k := range kept {
			retained[k] = true
		}
		for i, b := range buckets {
			if !retained[i] {
				b.target = nearestBucket(b.rgb, buckets, kept)
			}
		}
	}
	sort.Ints(kept)

	layers := make([]Layer, 0, len(kept))
	slot := make(map[int]int, len(kept))
	for _, k := range kept {
		b := buckets[k]
		slot[k] = len(layers)
		layers = append(layers, Layer{
			Mask:  NewMask(w, h),
			Color: color.NRGBA{R: b.rgb[0], G: b.rgb[1], B: b.rgb[2]},
		})
	}
	alpha := make([]int, len(layers))
	for i, b := range assign {
		if b < 0 {
			continue
		}
		l := slot[buckets[b].target]
		layers[l].Mask.Pix[i] = 0xff
		layers[l].Area++
		alpha[l] += buckets[b].alpha / buckets[b].count
	}
	for i := range layers {
		layers[i].Color.A = uint8((alpha[i] + layers[i].Area/2) / layers[i].Area)
	}

	SortLayers(layers)
	return layers, nil
}

func nearestBucket(rgb [3]uint8, buckets []*bucket, kept []int) int {
	best, bestDist := kept[0], -1
	for _, k := range kept {
		var d int
		for c := 0; c < 3; c++ {
			v := int(rgb[c]) - int(buckets[k].rgb[c])
			d += v * v
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}
