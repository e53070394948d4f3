package mesh

import (
	"math"

	"github.com/jcom-dev/ctod-go/internal/cog"
)

// rtinPoint is a heightmap sample position in raster space (row 0 north).
type rtinPoint struct{ X, Y int }

const rtinMaxDepth = 24

// rtinBuild runs a greedy right-triangle subdivision (the construction
// shared by Delatin and Martini) over a square heightmap. Each triangle is
// (a, b, c) with the right angle at b and is split at the midpoint of its
// hypotenuse a-c; a hypotenuse one cell long (straight or diagonal) is not
// split further. A triangle is refined when, for it or any triangle its
// full subdivision would produce, a hypotenuse midpoint's true sample
// deviates from the linear interpolation of that hypotenuse's ends by more
// than maxError.
//
// It returns triangles in raster coordinate space; callers convert to
// tile-local pixel space (Y flipped to north-up) and dedupe vertices.
func rtinBuild(hm *cog.Heightmap, maxError float64) [][3]rtinPoint {
	size := hm.Size - 1 // side length in grid cells

	var triangles [][3]rtinPoint

	var maxErr func(a, b, c rtinPoint, depth int) float64
	maxErr = func(a, b, c rtinPoint, depth int) float64 {
		m := rtinPoint{(a.X + c.X) / 2, (a.Y + c.Y) / 2}
		if depth >= rtinMaxDepth || (a.X-c.X)*(a.X-c.X) <= 1 && (a.Y-c.Y)*(a.Y-c.Y) <= 1 {
			return 0
		}
		e := math.Abs(heightAt(hm, m) - (heightAt(hm, a)+heightAt(hm, c))/2)
		return math.Max(e, math.Max(maxErr(a, m, b, depth+1), maxErr(c, m, b, depth+1)))
	}

	var subdivide func(a, b, c rtinPoint, depth int)
	subdivide = func(a, b, c rtinPoint, depth int) {
		mx, my := (a.X+c.X)/2, (a.Y+c.Y)/2
		m := rtinPoint{mx, my}

		if depth < rtinMaxDepth && ((a.X-c.X)*(a.X-c.X) > 1 || (a.Y-c.Y)*(a.Y-c.Y) > 1) {
			if maxErr(a, b, c, depth) > maxError {
				subdivide(a, m, b, depth+1)
				subdivide(c, m, b, depth+1)
				return
			}
		}
		triangles = append(triangles, [3]rtinPoint{a, b, c})
	}

	corner00 := rtinPoint{0, 0}
	cornerNN := rtinPoint{size, size}
	subdivide(corner00, rtinPoint{size, 0}, cornerNN, 0)
	subdivide(cornerNN, rtinPoint{0, size}, corner00, 0)

	return triangles
}

func heightAt(hm *cog.Heightmap, p rtinPoint) float64 {
	return hm.At(p.Y, p.X)
}

// toMesh flattens the raster-space RTIN triangles into a tile-local pixel
// Mesh, deduplicating shared vertices and flipping the row axis so Y
// increases northward, matching GridProcessor's convention. Every output
// triangle is wound counter-clockwise in that pixel space.
func toMesh(hm *cog.Heightmap, triangles [][3]rtinPoint, flipX bool) Mesh {
	size := hm.Size - 1

	indexOf := make(map[rtinPoint]uint32)
	var vertices []Vertex

	vertexIndex := func(p rtinPoint) uint32 {
		if idx, ok := indexOf[p]; ok {
			return idx
		}
		x := float64(p.X)
		if flipX {
			x = float64(size - p.X)
		}
		y := float64(size - p.Y)
		v := Vertex{X: x, Y: y, Z: heightAt(hm, p)}
		idx := uint32(len(vertices))
		vertices = append(vertices, v)
		indexOf[p] = idx
		return idx
	}

	tris := make([]uint32, 0, len(triangles)*3)
	for _, t := range triangles {
		ia := vertexIndex(t[0])
		ib := vertexIndex(t[1])
		ic := vertexIndex(t[2])
		a, b, c := vertices[ia], vertices[ib], vertices[ic]
		if (b.X-a.X)*(c.Y-a.Y)-(b.Y-a.Y)*(c.X-a.X) < 0 {
			ib, ic = ic, ib
		}
		tris = append(tris, ia, ib, ic)
	}

	return Mesh{Vertices: vertices, Triangles: tris}
}
