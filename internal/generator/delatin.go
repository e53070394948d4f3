package generator

import (
	"github.com/jcom-dev/ctod-go/internal/factory"
	"github.com/jcom-dev/ctod-go/internal/sourcecache"
	"github.com/jcom-dev/ctod-go/internal/tileindex"
)

// delatinGenerator stitches an RTIN mesh's edges by merging in each
// neighbor's boundary vertices and re-triangulating the combined point set,
// then runs the same height/normal averaging pass the grid generator uses
// as a cleanup step. Grounded on terrain_generator_quantized_mesh_delatin.py
// and mesh_helper.py's merge_shared_vertices, simplified to a single
// retriangulation of the main tile (see DESIGN.md) rather than the
// original's nine independent per-neighbor remeshes.
type delatinGenerator struct{}

func (delatinGenerator) generate(req *factory.TerrainRequest) ([]byte, error) {
	main := req.MainPayload()
	if main.OutOfBounds || main.Vertices == nil {
		return emptyTile(req.Z, req.X, req.Y), nil
	}

	tileSize := float64(main.Size - 1)
	neighbors := req.NeighborPayloads()
	useNormals := main.Normals != nil

	boundaryOnly, _ := gatherNeighborEdges(neighbors, tileSize, false)
	vertices := mergeUnique(main.Vertices, boundaryOnly)

	points := make([]point2D, len(vertices))
	for i, v := range vertices {
		points[i] = point2D{X: v.X, Y: v.Y}
	}
	triangles := delaunay(points)

	bounds := tileindex.TileBounds(req.Z, req.X, req.Y)

	var normals []sourcecache.Vertex
	if useNormals {
		normals = recalculateNormals(vertices, triangles, bounds, tileSize)
	}

	neighborV, neighborN := gatherNeighborEdges(neighbors, tileSize, useNormals)
	averageSharedEdges(vertices, normals, neighborV, neighborN, useNormals, true)

	return toQuantizedMesh(vertices, triangles, normals, bounds, tileSize), nil
}

// mergeUnique concatenates base and extra, keeping the first vertex seen
// for any repeated (X,Y) pixel coordinate — matching np.unique's role in
// merge_shared_vertices without needing exact Z equality, since two tiles
// sampling the same raster pixel should already agree on height.
func mergeUnique(base, extra []sourcecache.Vertex) []sourcecache.Vertex {
	type coord struct{ x, y float64 }
	seen := make(map[coord]bool, len(base)+len(extra))
	out := make([]sourcecache.Vertex, 0, len(base)+len(extra))

	add := func(v sourcecache.Vertex) {
		c := coord{v.X, v.Y}
		if seen[c] {
			return
		}
		seen[c] = true
		out = append(out, v)
	}
	for _, v := range base {
		add(v)
	}
	for _, v := range extra {
		add(v)
	}
	return out
}
