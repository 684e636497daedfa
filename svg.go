package bitsvg

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

const svgNamespace = "http://www.w3.org/2000/svg"

// FormatConfig controls the textual output of the compositor.
type FormatConfig struct {
	// Decimals is the number of fractional digits kept in coordinates.
	Decimals int `mapstructure:"decimals" json:"decimals"`
	// Pretty selects the indented form for written documents.
	Pretty bool `mapstructure:"pretty" json:"pretty"`
}

// LayerShapes holds the primitives produced for one color layer.
type LayerShapes struct {
	Color      color.NRGBA
	Primitives []Primitive
}

// Document is a serialized SVG in two equivalent forms.
type Document struct {
	Minified string
	Pretty   string
}

// Compose serializes the layers, in the given order, into an SVG document of
// width×height pixels. The output depends only on its arguments.
func Compose(layers []LayerShapes, width, height int, cfg FormatConfig) Document {
	f := numFormat{decimals: max(cfg.Decimals, 0)}

	var elems []string
	for _, l := range layers {
		fill := fillAttrs(l.Color, f)
		for _, p := range l.Primitives {
			if e, ok := f.element(p); ok {
				elems = append(elems, e+fill+"/>")
			}
		}
	}

	open := fmt.Sprintf(`<svg xmlns="%s" width="%d" height="%d" viewBox="0 0 %d %d">`,
		svgNamespace, width, height, width, height)

	var minified, pretty strings.Builder
	minified.WriteString(open)
	minified.WriteString(`<g id="logo">`)
	pretty.WriteString(open)
	pretty.WriteString("\n  <g id=\"logo\">\n")
	for _, e := range elems {
		minified.WriteString(e)
		pretty.WriteString("    ")
		pretty.WriteString(e)
		pretty.WriteByte('\n')
	}
	minified.WriteString("</g></svg>")
	pretty.WriteString("  </g>\n</svg>\n")

	return Document{Minified: minified.String(), Pretty: pretty.String()}
}

// element renders the opening part of the tag of p, without fill and closing.
func (f numFormat) element(p Primitive) (string, bool) {
	switch p := p.(type) {
	case Circle:
		return fmt.Sprintf(`<circle cx="%s" cy="%s" r="%s"`,
			f.num(p.Center.X), f.num(p.Center.Y), f.num(p.Radius)), true
	case Rect:
		return fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s"`,
			f.num(p.X), f.num(p.Y), f.num(p.Width), f.num(p.Height)), true
	case Polygon:
		ring := p.Points.Ring()
		if len(ring) < 2 {
			return "", false
		}
		var d strings.Builder
		for i, pt := range ring {
			if i == 0 {
				d.WriteString("M")
			} else {
				d.WriteString(" L")
			}
			f.point(&d, pt)
		}
		d.WriteString(" Z")
		return `<path d="` + d.String() + `"`, true
	case BezierPath:
		if len(p.Segments) == 0 {
			return "", false
		}
		var d strings.Builder
		d.WriteString("M")
		f.point(&d, p.Segments[0].P0)
		for _, s := range p.Segments {
			d.WriteString(" C")
			f.point(&d, s.P1)
			d.WriteByte(' ')
			f.point(&d, s.P2)
			d.WriteByte(' ')
			f.point(&d, s.P3)
		}
		d.WriteString(" Z")
		return `<path d="` + d.String() + `"`, true
	}
	return "", false
}

func fillAttrs(c color.NRGBA, f numFormat) string {
	attrs := ` fill="` + hexColor(c) + `"`
	if c.A < 0xff {
		attrs += ` fill-opacity="` + f.num(float64(c.A)/255) + `"`
	}
	return attrs
}

// hexColor formats the opaque part of c as #rrggbb.
func hexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

type numFormat struct {
	decimals int
}

// num rounds v to the configured precision and prints it without trailing zeros.
func (f numFormat) num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	scale := math.Pow(10, float64(f.decimals))
	v = math.Round(v*scale) / scale
	if v == 0 {
		// Avoid "-0".
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (f numFormat) point(b *strings.Builder, p Point) {
	b.WriteString(f.num(p.X))
	b.WriteByte(' ')
	b.WriteString(f.num(p.Y))
}
