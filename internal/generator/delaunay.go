package generator

import "math"

// point2D is a bare XY pair used only for triangulation; height travels
// alongside it in the caller's own vertex slice, indexed identically.
type point2D struct{ X, Y float64 }

type triangle2D struct{ A, B, C int }

// delaunay triangulates points via Bowyer-Watson incremental insertion,
// returning a flat CCW triangle index buffer (three indices per
// triangle, all indexing into points). Unlike a constrained triangulation
// (the `triangle` library's conforming Delaunay used by the Python
// original) this never introduces Steiner points: every output vertex is
// one of the inputs, so callers never need to resample height for a newly
// created vertex.
func delaunay(points []point2D) []uint32 {
	if len(points) < 3 {
		return nil
	}

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := points[0].X, points[0].Y
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	deltaMax := math.Max(maxX-minX, maxY-minY)*20 + 1
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	n := len(points)
	all := make([]point2D, n, n+3)
	copy(all, points)
	all = append(all,
		point2D{midX - deltaMax, midY - deltaMax},
		point2D{midX, midY + deltaMax},
		point2D{midX + deltaMax, midY - deltaMax},
	)
	superA, superB, superC := n, n+1, n+2

	triangles := []triangle2D{{superA, superB, superC}}
	for pi := 0; pi < n; pi++ {
		triangles = insertPoint(all, triangles, pi)
	}

	out := make([]uint32, 0, len(triangles)*3)
	for _, t := range triangles {
		if t.A >= n || t.B >= n || t.C >= n {
			continue // still touches the super-triangle
		}
		b, c := t.B, t.C
		if cross(all[t.A], all[b], all[c]) < 0 {
			b, c = c, b
		}
		out = append(out, uint32(t.A), uint32(b), uint32(c))
	}
	return out
}

type edgeKey struct{ a, b int }

func insertPoint(points []point2D, triangles []triangle2D, pi int) []triangle2D {
	p := points[pi]

	isBad := make(map[int]bool)
	for i, t := range triangles {
		if inCircumcircle(points, t, p) {
			isBad[i] = true
		}
	}

	edgeCount := make(map[edgeKey]int)
	addEdge := func(a, b int) {
		if a > b {
			a, b = b, a
		}
		edgeCount[edgeKey{a, b}]++
	}
	for i := range isBad {
		t := triangles[i]
		addEdge(t.A, t.B)
		addEdge(t.B, t.C)
		addEdge(t.C, t.A)
	}

	kept := make([]triangle2D, 0, len(triangles)+2)
	for i, t := range triangles {
		if !isBad[i] {
			kept = append(kept, t)
		}
	}

	for e, count := range edgeCount {
		if count == 1 { // only on the boundary of the deleted region
			kept = append(kept, triangle2D{e.a, e.b, pi})
		}
	}
	return kept
}

// inCircumcircle reports whether p lies inside triangle t's circumcircle,
// via the standard 3x3 determinant test (requires CCW winding of a,b,c).
func inCircumcircle(points []point2D, t triangle2D, p point2D) bool {
	a, b, c := points[t.A], points[t.B], points[t.C]
	if cross(a, b, c) < 0 {
		b, c = c, b
	}

	ax, ay := a.X-p.X, a.Y-p.Y
	bx, by := b.X-p.X, b.Y-p.Y
	cx, cy := c.X-p.X, c.Y-p.Y

	det := (ax*ax+ay*ay)*(bx*cy-cx*by) -
		(bx*bx+by*by)*(ax*cy-cx*ay) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)
	return det > 0
}

func cross(a, b, c point2D) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
