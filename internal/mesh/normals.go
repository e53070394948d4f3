package mesh

import "math"

// Vec3 is a plain 3-vector, used here for ECEF positions and normals.
type Vec3 [3]float64

func subV(a, b Vec3) Vec3 { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func crossV(a, b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normV(v Vec3) float64 { return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2]) }

const normalizeTolerance = 1e-8

// CalculateNormals computes area-weighted vertex normals: each triangle's
// face normal (scaled by its area) is accumulated onto its three vertices,
// then every vertex normal is renormalized, left untouched if its
// accumulated magnitude is below tolerance.
func CalculateNormals(positions []Vec3, triangles []uint32) []Vec3 {
	normals := make([]Vec3, len(positions))

	for i := 0; i+2 < len(triangles); i += 3 {
		ia, ib, ic := triangles[i], triangles[i+1], triangles[i+2]
		a, b, c := positions[ia], positions[ib], positions[ic]

		faceNormal := crossV(subV(b, a), subV(c, a))
		area := 0.5 * normV(faceNormal)
		weighted := Vec3{faceNormal[0] * area, faceNormal[1] * area, faceNormal[2] * area}

		for _, idx := range [3]uint32{ia, ib, ic} {
			normals[idx][0] += weighted[0]
			normals[idx][1] += weighted[1]
			normals[idx][2] += weighted[2]
		}
	}

	for i, n := range normals {
		length := normV(n)
		if length > normalizeTolerance {
			normals[i] = Vec3{n[0] / length, n[1] / length, n[2] / length}
		}
	}
	return normals
}

// GenerateGeodeticNormals returns, for each ECEF position, the normalized
// direction from the ellipsoid center through that position — the surface
// normal used by the empty tile and any mesh built without real face data.
func GenerateGeodeticNormals(positions []Vec3) []Vec3 {
	normals := make([]Vec3, len(positions))
	for i, p := range positions {
		length := normV(p)
		if length == 0 {
			continue
		}
		normals[i] = Vec3{p[0] / length, p[1] / length, p[2] / length}
	}
	return normals
}
