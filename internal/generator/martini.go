package generator

import (
	"github.com/jcom-dev/ctod-go/internal/factory"
	"github.com/jcom-dev/ctod-go/internal/tileindex"
)

// martiniGenerator emits the main tile's own RTIN mesh unchanged: unlike
// the grid and delatin generators it makes no attempt to merge shared
// edges with neighbor tiles. terrain_generator_quantized_mesh_martini.py
// overrides the grid generator's stitching entirely rather than adapting
// it, noting the RTIN topology doesn't line up cleanly with the edge
// transform used elsewhere; this is carried over as-is rather than
// inventing a stitching scheme the source never settled on.
type martiniGenerator struct{}

func (martiniGenerator) generate(req *factory.TerrainRequest) ([]byte, error) {
	main := req.MainPayload()
	if main.OutOfBounds || main.Vertices == nil {
		return emptyTile(req.Z, req.X, req.Y), nil
	}

	tileSize := float64(main.Size - 1)
	bounds := tileindex.TileBounds(req.Z, req.X, req.Y)
	return toQuantizedMesh(main.Vertices, main.Triangles, main.Normals, bounds, tileSize), nil
}
