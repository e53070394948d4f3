package generator

import (
	"github.com/jcom-dev/ctod-go/internal/factory"
	"github.com/jcom-dev/ctod-go/internal/sourcecache"
	"github.com/jcom-dev/ctod-go/internal/tileindex"
)

// gridGenerator stitches the grid mesh processor's output by averaging
// heights (and, when requested, normals) of vertices shared with a
// neighbor tile's edge, without introducing any new vertices. Grounded on
// terrain_generator_quantized_mesh_grid.py.
type gridGenerator struct{}

func (gridGenerator) generate(req *factory.TerrainRequest) ([]byte, error) {
	main := req.MainPayload()
	if main.OutOfBounds || main.Vertices == nil {
		return emptyTile(req.Z, req.X, req.Y), nil
	}

	vertices := append([]sourcecache.Vertex(nil), main.Vertices...)
	useNormals := main.Normals != nil
	var normals []sourcecache.Vertex
	if useNormals {
		normals = append([]sourcecache.Vertex(nil), main.Normals...)
	}

	tileSize := float64(main.Size - 1)
	neighborV, neighborN := gatherNeighborEdges(req.NeighborPayloads(), tileSize, useNormals)
	averageSharedEdges(vertices, normals, neighborV, neighborN, useNormals, false)

	bounds := tileindex.TileBounds(req.Z, req.X, req.Y)
	return toQuantizedMesh(vertices, main.Triangles, normals, bounds, tileSize), nil
}
