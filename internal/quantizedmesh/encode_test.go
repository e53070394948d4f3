package quantizedmesh

import (
	"math"
	"testing"
)

func lonLatHeightToECEF(lon, lat, height float64) Vec3 {
	lonR := lon * math.Pi / 180
	latR := lat * math.Pi / 180

	a := radiusX
	b := radiusZ
	e2 := 1 - (b*b)/(a*a)

	sinLat := math.Sin(latR)
	n := a / math.Sqrt(1-e2*sinLat*sinLat)

	x := (n + height) * math.Cos(latR) * math.Cos(lonR)
	y := (n + height) * math.Cos(latR) * math.Sin(lonR)
	z := (n*(1-e2) + height) * sinLat

	return Vec3{x, y, z}
}

func buildGridMesh(t *testing.T, withNormals bool) Mesh {
	t.Helper()
	bounds := GeoBounds{MinLon: 4, MinLat: 50, MaxLon: 6, MaxLat: 52}

	const n = 4 // n+1 x n+1 vertices
	var vertices []Vertex
	index := func(row, col int) uint32 { return uint32(row*(n+1) + col) }

	for row := 0; row <= n; row++ {
		for col := 0; col <= n; col++ {
			lon := bounds.MinLon + (bounds.MaxLon-bounds.MinLon)*float64(col)/float64(n)
			lat := bounds.MinLat + (bounds.MaxLat-bounds.MinLat)*float64(row)/float64(n)
			height := float64(row*n + col)
			vertices = append(vertices, Vertex{
				Lon:    lon,
				Lat:    lat,
				Height: height,
				ECEF:   lonLatHeightToECEF(lon, lat, height),
			})
		}
	}

	var triangles []uint32
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			tl := index(row, col)
			tr := index(row, col+1)
			bl := index(row+1, col)
			br := index(row+1, col+1)
			triangles = append(triangles, tl, tr, bl)
			triangles = append(triangles, bl, tr, br)
		}
	}

	var normals []Vec3
	if withNormals {
		for range vertices {
			normals = append(normals, Vec3{0, 0, 1})
		}
	}

	return Mesh{Vertices: vertices, Triangles: triangles, Normals: normals, Bounds: bounds}
}

func TestEncodeDecodeRoundTripTopology(t *testing.T) {
	mesh := buildGridMesh(t, false)
	data := Encode(mesh)

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(decoded.U) != len(mesh.Vertices) {
		t.Fatalf("vertex count mismatch: got %d want %d", len(decoded.U), len(mesh.Vertices))
	}
	if len(decoded.Triangles) != len(mesh.Triangles) {
		t.Fatalf("triangle index count mismatch: got %d want %d", len(decoded.Triangles), len(mesh.Triangles))
	}
	for i, idx := range decoded.Triangles {
		if idx != mesh.Triangles[i] {
			t.Fatalf("triangle index %d mismatch: got %d want %d", i, idx, mesh.Triangles[i])
		}
	}
}

func TestEncodeQuantizationPrecision(t *testing.T) {
	mesh := buildGridMesh(t, false)
	data := Encode(mesh)

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	minH, maxH := heightRange(mesh.Vertices)
	for i, v := range mesh.Vertices {
		wantU := quantize(v.Lon, mesh.Bounds.MinLon, mesh.Bounds.MaxLon-mesh.Bounds.MinLon)
		wantV := quantize(v.Lat, mesh.Bounds.MinLat, mesh.Bounds.MaxLat-mesh.Bounds.MinLat)
		wantH := quantize(v.Height, minH, maxH-minH)

		if decoded.U[i] != wantU || decoded.V[i] != wantV || decoded.H[i] != wantH {
			t.Fatalf("vertex %d quantization mismatch: got (%d,%d,%d) want (%d,%d,%d)",
				i, decoded.U[i], decoded.V[i], decoded.H[i], wantU, wantV, wantH)
		}
	}

	if math.Abs(decoded.MinHeight-minH) > 1e-3 {
		t.Fatalf("header minHeight mismatch: got %v want %v", decoded.MinHeight, minH)
	}
	if math.Abs(decoded.MaxHeight-maxH) > 1e-3 {
		t.Fatalf("header maxHeight mismatch: got %v want %v", decoded.MaxHeight, maxH)
	}
}

func TestEncodeWithNormalsExtension(t *testing.T) {
	mesh := buildGridMesh(t, true)
	data := Encode(mesh)

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.HasNormals {
		t.Fatal("expected OctVertexNormals extension to be present")
	}
	if len(decoded.Normals) != len(mesh.Vertices) {
		t.Fatalf("normal count mismatch: got %d want %d", len(decoded.Normals), len(mesh.Vertices))
	}
}

func TestHighWaterMarkIndices32BitAboveThreshold(t *testing.T) {
	// Construct a mesh with more than 65536 vertices worth of indices to
	// force the 32-bit index path.
	vertexCount := 65537
	vertices := make([]Vertex, vertexCount)
	for i := range vertices {
		lon := 4.0
		lat := 50.0
		vertices[i] = Vertex{Lon: lon, Lat: lat, Height: 0, ECEF: lonLatHeightToECEF(lon, lat, 0)}
	}
	triangles := []uint32{0, 1, 2, 2, 1, 3}

	mesh := Mesh{Vertices: vertices, Triangles: triangles, Bounds: GeoBounds{MinLon: 4, MinLat: 50, MaxLon: 6, MaxLat: 52}}
	data := Encode(mesh)

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i, idx := range decoded.Triangles {
		if idx != triangles[i] {
			t.Fatalf("32-bit index %d mismatch: got %d want %d", i, idx, triangles[i])
		}
	}
}

func TestZigZagRoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 32767, -32767, 100, -100} {
		enc := zigZagEncode(v)
		dec := zigZagDecode(enc)
		if dec != v {
			t.Fatalf("zigzag round trip failed for %d: got %d", v, dec)
		}
	}
}
