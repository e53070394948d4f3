// Package quantizedmesh encodes a triangle mesh (with optional per-vertex
// normals) into Cesium's Quantized-Mesh 1.0 binary tile format.
package quantizedmesh

import (
	"bytes"
	"encoding/binary"
	"math"
)

const extensionIDOctVertexNormals = 1

// Vertex is one mesh vertex in both its geographic (for u/v/h quantization)
// and ECEF (for the bounding sphere, horizon occlusion, and normals) forms.
type Vertex struct {
	Lon, Lat float64 // degrees
	Height   float64 // meters, terrain elevation (not ellipsoid radius)
	ECEF     Vec3
}

// EdgeIndices names which vertex indices lie on each of the tile's four
// sides, in the order Cesium's loader expects (west, south, east, north).
type EdgeIndices struct {
	West, South, East, North []uint32
}

// Mesh is the encoder's input.
type Mesh struct {
	Vertices  []Vertex
	Triangles []uint32 // 3 indices per triangle
	Normals   []Vec3   // optional, len(Normals) == len(Vertices) when present
	Bounds    GeoBounds
	Edges     EdgeIndices
}

// GeoBounds is the tile's geographic extent used to quantize u/v.
type GeoBounds struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Encode writes a Mesh as a Quantized-Mesh 1.0 tile, including the
// OctVertexNormals extension when Normals is non-nil.
func Encode(m Mesh) []byte {
	var buf bytes.Buffer

	positions := ecefPositions(m.Vertices)
	minH, maxH := heightRange(m.Vertices)
	center := centroid(positions)
	sphereCenter, sphereRadius := boundingSphere(positions)
	occlusion := HorizonOcclusionPoint(positions, sphereCenter)

	writeHeader(&buf, center, minH, maxH, sphereCenter, sphereRadius, occlusion)
	writeVertexData(&buf, m.Vertices, m.Bounds, minH, maxH)
	writeIndices(&buf, m.Triangles, len(m.Vertices))
	writeEdgeList(&buf, m.Edges.West)
	writeEdgeList(&buf, m.Edges.South)
	writeEdgeList(&buf, m.Edges.East)
	writeEdgeList(&buf, m.Edges.North)

	if m.Normals != nil {
		writeOctNormalsExtension(&buf, m.Normals)
	}

	return buf.Bytes()
}

func ecefPositions(vertices []Vertex) []Vec3 {
	out := make([]Vec3, len(vertices))
	for i, v := range vertices {
		out[i] = v.ECEF
	}
	return out
}

func heightRange(vertices []Vertex) (float64, float64) {
	if len(vertices) == 0 {
		return 0, 0
	}
	minH := vertices[0].Height
	maxH := vertices[0].Height
	for _, v := range vertices[1:] {
		if v.Height < minH {
			minH = v.Height
		}
		if v.Height > maxH {
			maxH = v.Height
		}
	}
	return minH, maxH
}

func centroid(positions []Vec3) Vec3 {
	if len(positions) == 0 {
		return Vec3{}
	}
	var sum Vec3
	for _, p := range positions {
		sum[0] += p[0]
		sum[1] += p[1]
		sum[2] += p[2]
	}
	n := float64(len(positions))
	return Vec3{sum[0] / n, sum[1] / n, sum[2] / n}
}

// boundingSphere computes a sphere via the axis-aligned bounding box, per
// the "bounding_box" sphere method used by the reference encoder.
func boundingSphere(positions []Vec3) (Vec3, float64) {
	if len(positions) == 0 {
		return Vec3{}, 0
	}
	min := positions[0]
	max := positions[0]
	for _, p := range positions[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < min[i] {
				min[i] = p[i]
			}
			if p[i] > max[i] {
				max[i] = p[i]
			}
		}
	}
	center := Vec3{(min[0] + max[0]) / 2, (min[1] + max[1]) / 2, (min[2] + max[2]) / 2}
	radius := norm(sub(max, center))
	return center, radius
}

func writeHeader(buf *bytes.Buffer, center Vec3, minH, maxH float64, sphereCenter Vec3, sphereRadius float64, occlusion Vec3) {
	writeF64(buf, center[0])
	writeF64(buf, center[1])
	writeF64(buf, center[2])
	writeF32(buf, float32(minH))
	writeF32(buf, float32(maxH))
	writeF64(buf, sphereCenter[0])
	writeF64(buf, sphereCenter[1])
	writeF64(buf, sphereCenter[2])
	writeF64(buf, sphereRadius)
	writeF64(buf, occlusion[0])
	writeF64(buf, occlusion[1])
	writeF64(buf, occlusion[2])
}

func quantize(value, min, span float64) uint16 {
	if span == 0 {
		return 0
	}
	q := (value - min) / span * 32767.0
	if q < 0 {
		q = 0
	}
	if q > 32767 {
		q = 32767
	}
	return uint16(math.Round(q))
}

func writeVertexData(buf *bytes.Buffer, vertices []Vertex, bounds GeoBounds, minH, maxH float64) {
	n := len(vertices)
	us := make([]uint16, n)
	vs := make([]uint16, n)
	hs := make([]uint16, n)

	lonSpan := bounds.MaxLon - bounds.MinLon
	latSpan := bounds.MaxLat - bounds.MinLat
	heightSpan := maxH - minH

	for i, vert := range vertices {
		us[i] = quantize(vert.Lon, bounds.MinLon, lonSpan)
		vs[i] = quantize(vert.Lat, bounds.MinLat, latSpan)
		hs[i] = quantize(vert.Height, minH, heightSpan)
	}

	binary.Write(buf, binary.LittleEndian, uint32(n))
	writeZigZagDeltas(buf, us)
	writeZigZagDeltas(buf, vs)
	writeZigZagDeltas(buf, hs)
}

func writeZigZagDeltas(buf *bytes.Buffer, quantized []uint16) {
	var prev int32
	for _, q := range quantized {
		delta := int32(q) - prev
		prev = int32(q)
		binary.Write(buf, binary.LittleEndian, zigZagEncode(delta))
	}
}

func zigZagEncode(n int32) uint16 {
	return uint16((n << 1) ^ (n >> 15))
}

func zigZagDecode(v uint16) int32 {
	n := int32(v)
	return (n >> 1) ^ -(n & 1)
}

func writeIndices(buf *bytes.Buffer, triangles []uint32, vertexCount int) {
	binary.Write(buf, binary.LittleEndian, uint32(len(triangles)/3))

	if vertexCount > 65536 {
		highest := uint32(0)
		for _, idx := range triangles {
			code := highest - idx
			binary.Write(buf, binary.LittleEndian, code)
			if code == 0 {
				highest++
			}
		}
		return
	}

	highest := uint16(0)
	for _, idx := range triangles {
		code := highest - uint16(idx)
		binary.Write(buf, binary.LittleEndian, code)
		if code == 0 {
			highest++
		}
	}
}

func writeEdgeList(buf *bytes.Buffer, indices []uint32) {
	binary.Write(buf, binary.LittleEndian, uint32(len(indices)))
	for _, idx := range indices {
		binary.Write(buf, binary.LittleEndian, idx)
	}
}

func writeOctNormalsExtension(buf *bytes.Buffer, normals []Vec3) {
	encoded := make([]byte, 0, len(normals)*2)
	for _, n := range normals {
		x, y := octEncode(n)
		encoded = append(encoded, x, y)
	}

	binary.Write(buf, binary.LittleEndian, uint8(extensionIDOctVertexNormals))
	binary.Write(buf, binary.LittleEndian, uint32(len(encoded)))
	buf.Write(encoded)
}

func signNotZero(v float64) float64 {
	if v >= 0 {
		return 1
	}
	return -1
}

// octEncode projects a unit normal onto an octahedron and folds it into the
// [0,255]x[0,255] byte plane, matching the reference encoder's oct_encode.
func octEncode(n Vec3) (byte, byte) {
	l1 := math.Abs(n[0]) + math.Abs(n[1]) + math.Abs(n[2])
	if l1 == 0 {
		return 0, 0
	}
	rx := n[0] / l1
	ry := n[1] / l1

	if n[2] < 0 {
		oldRx := rx
		rx = (1 - math.Abs(ry)) * signNotZero(oldRx)
		ry = (1 - math.Abs(oldRx)) * signNotZero(ry)
	}

	ex := math.Round((rx*0.5 + 0.5) * 255)
	ey := math.Round((ry*0.5 + 0.5) * 255)
	return byte(clampByte(ex)), byte(clampByte(ey))
}

func clampByte(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func writeF32(buf *bytes.Buffer, v float32) { binary.Write(buf, binary.LittleEndian, v) }
func writeF64(buf *bytes.Buffer, v float64) { binary.Write(buf, binary.LittleEndian, v) }
