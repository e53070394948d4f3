package generator

import (
	"github.com/jcom-dev/ctod-go/internal/sourcecache"
	"github.com/jcom-dev/ctod-go/internal/tileindex"
)

// selectEdge shifts a copy of vertices (and, if present, their matching
// normals) into the main tile's coordinate frame and returns only the ones
// landing exactly on the edge or corner named by dir. dir is the direction
// applied to the neighbor's OWN vertices, i.e. the edge it shares with the
// main tile — a north neighbor contributes via dir=South, and so on
// (tileindex.Opposite of the neighbor's position relative to main).
func selectEdge(vertices, normals []sourcecache.Vertex, dir tileindex.Direction, tileSize float64) (edgeV, edgeN []sourcecache.Vertex) {
	shifted := make([]sourcecache.Vertex, len(vertices))
	copy(shifted, vertices)

	var match func(x, y float64) bool
	switch dir {
	case tileindex.North:
		for i := range shifted {
			shifted[i].Y -= tileSize
		}
		match = func(_, y float64) bool { return y == 0 }
	case tileindex.NorthEast:
		for i := range shifted {
			shifted[i].X -= tileSize
			shifted[i].Y -= tileSize
		}
		match = func(x, y float64) bool { return x == 0 && y == 0 }
	case tileindex.NorthWest:
		for i := range shifted {
			shifted[i].X += tileSize
			shifted[i].Y -= tileSize
		}
		match = func(x, y float64) bool { return x == tileSize && y == 0 }
	case tileindex.East:
		for i := range shifted {
			shifted[i].X -= tileSize
		}
		match = func(x, _ float64) bool { return x == 0 }
	case tileindex.SouthEast:
		for i := range shifted {
			shifted[i].X -= tileSize
			shifted[i].Y += tileSize
		}
		match = func(x, y float64) bool { return x == 0 && y == tileSize }
	case tileindex.South:
		for i := range shifted {
			shifted[i].Y += tileSize
		}
		match = func(_, y float64) bool { return y == tileSize }
	case tileindex.SouthWest:
		for i := range shifted {
			shifted[i].X += tileSize
			shifted[i].Y += tileSize
		}
		match = func(x, y float64) bool { return x == tileSize && y == tileSize }
	case tileindex.West:
		for i := range shifted {
			shifted[i].X += tileSize
		}
		match = func(x, _ float64) bool { return x == tileSize }
	}

	for i, v := range shifted {
		if !match(v.X, v.Y) {
			continue
		}
		edgeV = append(edgeV, v)
		if normals != nil {
			edgeN = append(edgeN, normals[i])
		}
	}
	return edgeV, edgeN
}

// gatherNeighborEdges collects every neighbor's edge vertices (and normals,
// when useNormals) transformed into the main tile's coordinate frame,
// skipping neighbors that are absent or out of bounds.
func gatherNeighborEdges(neighbors map[tileindex.Direction]sourcecache.Payload, tileSize float64, useNormals bool) (verts, norms []sourcecache.Vertex) {
	for _, dir := range tileindex.AllDirections {
		p, ok := neighbors[dir]
		if !ok || p.OutOfBounds || p.Vertices == nil {
			continue
		}
		var n []sourcecache.Vertex
		if useNormals {
			n = p.Normals
		}
		v, nn := selectEdge(p.Vertices, n, tileindex.Opposite(dir), tileSize)
		verts = append(verts, v...)
		norms = append(norms, nn...)
	}
	return verts, norms
}

// averageSharedEdges folds neighbor-contributed duplicates of each main
// vertex into its height (and, when useNormals, its normal). includeSelf
// controls whether the main vertex's own height is mixed into the height
// average: the grid generator excludes it (terrain_generator_quantized_
// mesh_grid.py only averages the neighbor duplicates), while the delatin
// retriangulation path includes it (mesh_helper.py's
// average_height_and_normals_to_neighbours). The normal average always
// includes the main vertex's own normal, matching both sources.
func averageSharedEdges(vertices, normals []sourcecache.Vertex, neighborV, neighborN []sourcecache.Vertex, useNormals, includeSelf bool) {
	if len(neighborV) == 0 {
		return
	}
	for i := range vertices {
		v := vertices[i]
		var matchedZ []float64
		var matchedN []sourcecache.Vertex
		for j, nv := range neighborV {
			if nv.X != v.X || nv.Y != v.Y {
				continue
			}
			matchedZ = append(matchedZ, nv.Z)
			if useNormals {
				matchedN = append(matchedN, neighborN[j])
			}
		}
		if len(matchedZ) == 0 {
			continue
		}
		if includeSelf {
			matchedZ = append(matchedZ, v.Z)
		}
		vertices[i].Z = averageFloats(matchedZ)

		if useNormals {
			matchedN = append(matchedN, normals[i])
			normals[i] = averageVertex(matchedN)
		}
	}
}

func averageFloats(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func averageVertex(vs []sourcecache.Vertex) sourcecache.Vertex {
	var out sourcecache.Vertex
	for _, v := range vs {
		out.X += v.X
		out.Y += v.Y
		out.Z += v.Z
	}
	n := float64(len(vs))
	return sourcecache.Vertex{X: out.X / n, Y: out.Y / n, Z: out.Z / n}
}
