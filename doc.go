/*
Package bitsvg converts flat color raster logos into compact, editable SVG documents.

Every image is split into color layers, the boundary of each layer is traced,
simplified and, where possible, snapped to a circle or an axis-aligned
rectangle. The remaining outlines are fitted with cubic Bézier curves within a
configurable pixel tolerance. The resulting document is rendered back to
raster and scored against the source with a global structural similarity
index and the overlap of the Sobel edge maps.

The package provides a command line interface and an HTTP service.
To check the supported commands type:

	$ bitsvg --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"context"
		"fmt"
		"os"

		"github.com/esimov/bitsvg"
	)

	func main() {
		p, err := bitsvg.NewProcessor(bitsvg.DefaultConfig())
		if err != nil {
			panic(err)
		}
		defer p.Close()

		if err := p.Process(context.Background(), os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error vectorizing image: %s", err.Error())
		}
	}
*/
package bitsvg
