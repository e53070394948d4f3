package generator

import (
	"github.com/jcom-dev/ctod-go/internal/geodetic"
	"github.com/jcom-dev/ctod-go/internal/mesh"
	"github.com/jcom-dev/ctod-go/internal/sourcecache"
	"github.com/jcom-dev/ctod-go/internal/tileindex"
)

// emptyTileGridSize and emptyTilePixelSize are fixed regardless of the
// request's own grid size or buffer: an empty tile carries no real raster
// data, so there's nothing to resolve at a finer resolution.
const (
	emptyTileGridSize  = 20
	emptyTilePixelSize = 255.0
)

// EmptyTile renders the standard empty tile for (z,x,y), exported for
// callers that short-circuit before ever reaching the factory (the root
// tile, and any request below the dataset's configured minimum zoom).
func EmptyTile(z, x, y int) []byte {
	return emptyTile(z, x, y)
}

// emptyTile renders a flat 20x20 grid covering tile (z,x,y), its vertex
// normals set to the normalized ECEF position vector (a geocentric normal)
// rather than a face-derived normal (there's no face data to derive one
// from). Used whenever a terrain request's main source tile turned out to
// be out of the raster's bounds.
func emptyTile(z, x, y int) []byte {
	bounds := tileindex.TileBounds(z, x, y)
	const n = emptyTileGridSize

	vertices := make([]sourcecache.Vertex, 0, (n+1)*(n+1))
	for row := 0; row <= n; row++ {
		for col := 0; col <= n; col++ {
			vertices = append(vertices, sourcecache.Vertex{
				X: float64(col) * emptyTilePixelSize / n,
				Y: float64(row) * emptyTilePixelSize / n,
				Z: 0,
			})
		}
	}

	index := func(row, col int) uint32 { return uint32(row*(n+1) + col) }
	triangles := make([]uint32, 0, n*n*6)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			tl, tr := index(row+1, col), index(row+1, col+1)
			bl, br := index(row, col), index(row, col+1)
			triangles = append(triangles, bl, br, tl)
			triangles = append(triangles, tl, br, tr)
		}
	}

	ecef := make([]mesh.Vec3, len(vertices))
	for i, v := range vertices {
		lon := bounds.MinX + (v.X/emptyTilePixelSize)*(bounds.MaxX-bounds.MinX)
		lat := bounds.MinY + (v.Y/emptyTilePixelSize)*(bounds.MaxY-bounds.MinY)
		p := geodetic.ToECEF(lon, lat, 0)
		ecef[i] = mesh.Vec3{p[0], p[1], p[2]}
	}

	geodeticNormals := mesh.GenerateGeodeticNormals(ecef)
	normals := make([]sourcecache.Vertex, len(geodeticNormals))
	for i, n := range geodeticNormals {
		normals[i] = sourcecache.Vertex{X: n[0], Y: n[1], Z: n[2]}
	}

	return toQuantizedMesh(vertices, triangles, normals, bounds, emptyTilePixelSize)
}
