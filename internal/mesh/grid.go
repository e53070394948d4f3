package mesh

import "github.com/jcom-dev/ctod-go/internal/cog"

// GridProcessor samples the heightmap on a regular (N+1)x(N+1) grid and
// triangulates each cell into two CCW triangles.
type GridProcessor struct{}

func (GridProcessor) Process(hm *cog.Heightmap, zoom int, params Params) Mesh {
	n := params.GridSize(zoom)
	tileSize := hm.Size - 1 // heightmap is (tileSize+1) samples wide: 256 unbuffered, 257 with a 0.5px buffer

	vertices := make([]Vertex, 0, (n+1)*(n+1))
	index := func(row, col int) uint32 { return uint32(row*(n+1) + col) }

	for row := 0; row <= n; row++ {
		for col := 0; col <= n; col++ {
			px := float64(col) * float64(tileSize) / float64(n)
			py := float64(row) * float64(tileSize) / float64(n)

			vertices = append(vertices, Vertex{
				X: px,
				Y: py,
				Z: sampleNearest(hm, px, py, tileSize),
			})
		}
	}

	triangles := make([]uint32, 0, n*n*6)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			tl := index(row+1, col)
			tr := index(row+1, col+1)
			bl := index(row, col)
			br := index(row, col+1)
			// CCW winding with Y increasing northward.
			triangles = append(triangles, bl, br, tl)
			triangles = append(triangles, tl, br, tr)
		}
	}

	return Mesh{Vertices: vertices, Triangles: triangles}
}

// sampleNearest looks up the nearest-integer pixel for a tile-local
// position (px,py in [0,tileSize], Y increasing northward) against a
// top-origin raster heightmap.
func sampleNearest(hm *cog.Heightmap, px, py float64, tileSize int) float64 {
	col := int(px + 0.5)
	row := tileSize - int(py+0.5) // raster row 0 is north; tile Y 0 is south
	if col < 0 {
		col = 0
	}
	if col > tileSize {
		col = tileSize
	}
	if row < 0 {
		row = 0
	}
	if row > tileSize {
		row = tileSize
	}
	return hm.At(row, col)
}
