// Package layerjson builds the Cesium quantized-mesh tileset's layer.json
// document: the tilejson metadata plus, per zoom level, the rectangular
// range of tile indices the dataset actually covers.
package layerjson

import (
	"math"

	"github.com/jcom-dev/ctod-go/internal/tileindex"
)

// Range is one zoom level's available tile index rectangle, already in
// Cesium's y-down convention.
type Range struct {
	StartX int `json:"startX"`
	StartY int `json:"startY"`
	EndX   int `json:"endX"`
	EndY   int `json:"endY"`
}

// Layer is the layer.json document shape.
type Layer struct {
	TileJSON    string     `json:"tilejson"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Version     string     `json:"version"`
	Format      string     `json:"format"`
	Attribution string     `json:"attribution"`
	Schema      string     `json:"schema"`
	Extensions  []string   `json:"extensions"`
	Tiles       []string   `json:"tiles"`
	Projection  string     `json:"projection"`
	Bounds      [4]float64 `json:"bounds"`
	CogBounds   [4]float64 `json:"cogBounds"`
	Available   [][]Range  `json:"available"`
}

// Build constructs the layer.json document for a dataset whose geographic
// bounds are [west,south,east,north], covering zoom levels 0..maxZoom.
// tilesPath is the templated tile URL (e.g. "{z}/{x}/{y}.terrain").
func Build(bounds [4]float64, maxZoom int, tilesPath string, extensions []string) Layer {
	// Cesium always expects the root tile to cover the whole x range at
	// z=0; a bounds-derived index for z=0 can come out narrower than that
	// (a dataset entirely in one hemisphere), so it is hardcoded rather
	// than computed.
	available := [][]Range{{{StartX: 0, StartY: 0, EndX: 1, EndY: 0}}}

	for z := 1; z <= maxZoom; z++ {
		available = append(available, []Range{cesiumIndexBounds(bounds, z)})
	}

	if extensions == nil {
		extensions = []string{}
	}

	return Layer{
		TileJSON:    "2.1.0",
		Name:        "CTOD",
		Description: "Cesium Terrain on Demand",
		Version:     "1.1.0",
		Format:      "quantized-mesh-1.0",
		Schema:      "tms",
		Extensions:  extensions,
		Tiles:       []string{tilesPath},
		Projection:  "EPSG:4326",
		Bounds:      [4]float64{0, -90, 180, 90},
		CogBounds:   bounds,
		Available:   available,
	}
}

// cesiumIndexBounds computes the tile index rectangle covering
// [west,south,east,north] at zoom z, with y flipped into Cesium's
// top-origin convention. An anti-meridian-crossing bbox (west > east) is
// split into western and eastern halves, but only the western half's
// index range is ever returned: the original computes both boxes but its
// loop returns after the first iteration, so the eastern half is silently
// discarded. Carried over unchanged since a dataset whose bounds actually
// cross the anti-meridian is already an edge case this repo does not
// otherwise special-case.
func cesiumIndexBounds(bounds [4]float64, z int) Range {
	west, south, east, north := bounds[0], bounds[1], bounds[2], bounds[3]
	const llEpsilon = 1e-11

	type bbox struct{ w, s, e, n float64 }
	var boxes []bbox
	if west > east {
		boxes = []bbox{{-180, south, east, north}, {west, south, 180, north}}
	} else {
		boxes = []bbox{{west, south, east, north}}
	}

	tilesUp := 1 << uint(z)
	maxTMSY := tilesUp - 1

	b := boxes[0]
	w := math.Max(-180, b.w)
	s := math.Max(-90, b.s)
	e := math.Min(180, b.e)
	n := math.Min(90, b.n)

	nwX, nwY := tileindex.TileAt(w+llEpsilon, n-llEpsilon, z)
	seX, seY := tileindex.TileAt(e-llEpsilon, s+llEpsilon, z)

	minX, maxX := minMax(nwX, seX)
	minY, maxY := minMax(nwY, seY)

	// flip y into Cesium's top-origin convention
	cesiumMinY := maxTMSY - maxY
	cesiumMaxY := maxTMSY - minY

	return Range{StartX: minX, StartY: cesiumMinY, EndX: maxX, EndY: cesiumMaxY}
}

func minMax(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}
