// Package generator stitches a completed terrain request's nine source-tile
// payloads into a single quantized-mesh tile, dispatching to one of three
// strategies matching the mesh method the tile was built with.
package generator

import (
	"fmt"

	"github.com/jcom-dev/ctod-go/internal/factory"
	"github.com/jcom-dev/ctod-go/internal/mesh"
)

type stitcher interface {
	generate(req *factory.TerrainRequest) ([]byte, error)
}

// Generator implements factory.Generator, dispatching by the request's mesh
// method. Kept in its own package (rather than factory) so factory never
// has to import the stitching logic: factory defines the interface,
// generator satisfies it, and only cmd/server wires the two together.
type Generator struct {
	grid    stitcher
	delatin stitcher
	martini stitcher
}

func New() *Generator {
	return &Generator{
		grid:    gridGenerator{},
		delatin: delatinGenerator{},
		martini: martiniGenerator{},
	}
}

func (g *Generator) Generate(req *factory.TerrainRequest) ([]byte, error) {
	switch req.Method {
	case mesh.MethodGrid:
		return g.grid.generate(req)
	case mesh.MethodDelatin:
		return g.delatin.generate(req)
	case mesh.MethodMartini:
		return g.martini.generate(req)
	default:
		return nil, fmt.Errorf("generator: unknown mesh method %q", req.Method)
	}
}
