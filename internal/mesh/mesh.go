// Package mesh turns a heightmap crop from internal/cog into a triangle
// mesh in tile-local pixel space. Three interchangeable strategies are
// implemented behind the Processor interface: a uniform grid, and two
// right-triangulated irregular network (RTIN) builders, Delatin and
// Martini, that adapt triangle density to the terrain's local curvature.
package mesh

import "github.com/jcom-dev/ctod-go/internal/cog"

// Method names a meshing strategy.
type Method string

const (
	MethodGrid    Method = "grid"
	MethodDelatin Method = "delatin"
	MethodMartini Method = "martini"
)

// Vertex is a mesh vertex in tile-local pixel space: X,Y in [0,TileSize],
// origin at the tile's south-west corner (Y increases northward), Z is the
// raw elevation sample in meters.
type Vertex struct {
	X, Y, Z float64
}

// Mesh is a processor's output: a vertex buffer and CCW-wound triangle
// index buffer, both still in pixel space.
type Mesh struct {
	Vertices  []Vertex
	Triangles []uint32
}

// Params carries the per-request meshing parameters, with per-zoom
// overrides layered over defaults exactly as the request's query string
// allows.
type Params struct {
	DefaultGridSize int
	ZoomGridSizes   map[int]int

	DefaultMaxError float64
	ZoomMaxErrors   map[int]float64
}

const maxGridSize = 255

// GridSize resolves the grid processor's N for a given zoom.
func (p Params) GridSize(zoom int) int {
	n := p.DefaultGridSize
	if v, ok := p.ZoomGridSizes[zoom]; ok {
		n = v
	}
	if n <= 0 {
		n = 20
	}
	if n > maxGridSize {
		n = maxGridSize
	}
	return n
}

// MaxError resolves the TIN processors' error budget for a given zoom.
func (p Params) MaxError(zoom int) float64 {
	e := p.DefaultMaxError
	if v, ok := p.ZoomMaxErrors[zoom]; ok {
		e = v
	}
	if e <= 0 {
		e = 5
	}
	return e
}

// Processor builds a Mesh out of a cropped heightmap.
type Processor interface {
	Process(hm *cog.Heightmap, zoom int, params Params) Mesh
}

// ForMethod returns the Processor implementing a given Method.
func ForMethod(m Method) Processor {
	switch m {
	case MethodDelatin:
		return DelatinProcessor{}
	case MethodMartini:
		return MartiniProcessor{}
	default:
		return GridProcessor{}
	}
}
