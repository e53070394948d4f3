package generator

import (
	"github.com/jcom-dev/ctod-go/internal/geodetic"
	"github.com/jcom-dev/ctod-go/internal/mesh"
	"github.com/jcom-dev/ctod-go/internal/sourcecache"
	"github.com/jcom-dev/ctod-go/internal/tileindex"
)

// recalculateNormals derives fresh area-weighted vertex normals for a
// vertex/triangle buffer, needed whenever retriangulation changes which
// faces meet at a vertex (the original per-tile normals no longer apply).
func recalculateNormals(vertices []sourcecache.Vertex, triangles []uint32, bounds tileindex.Bounds, tileSize float64) []sourcecache.Vertex {
	ecef := make([]mesh.Vec3, len(vertices))
	for i, v := range vertices {
		lon := bounds.MinX + (v.X/tileSize)*(bounds.MaxX-bounds.MinX)
		lat := bounds.MinY + (v.Y/tileSize)*(bounds.MaxY-bounds.MinY)
		p := geodetic.ToECEF(lon, lat, v.Z)
		ecef[i] = mesh.Vec3{p[0], p[1], p[2]}
	}

	normals := mesh.CalculateNormals(ecef, triangles)
	out := make([]sourcecache.Vertex, len(normals))
	for i, n := range normals {
		out[i] = sourcecache.Vertex{X: n[0], Y: n[1], Z: n[2]}
	}
	return out
}
