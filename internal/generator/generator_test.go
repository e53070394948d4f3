package generator

import (
	"testing"

	"github.com/jcom-dev/ctod-go/internal/factory"
	"github.com/jcom-dev/ctod-go/internal/mesh"
	"github.com/jcom-dev/ctod-go/internal/quantizedmesh"
	"github.com/jcom-dev/ctod-go/internal/sourcecache"
)

// unitSquare is a 2x2-vertex, 1-cell mesh (tileSize=1) with one source of
// per-vertex height, used across the generator tests below.
func unitSquare(heights [4]float64) sourcecache.Payload {
	return sourcecache.Payload{
		Size: 2, // tileSize = Size-1 = 1
		Vertices: []sourcecache.Vertex{
			{X: 0, Y: 0, Z: heights[0]},
			{X: 1, Y: 0, Z: heights[1]},
			{X: 0, Y: 1, Z: heights[2]},
			{X: 1, Y: 1, Z: heights[3]},
		},
		Triangles: []uint32{0, 1, 2, 2, 1, 3},
	}
}

func keyFor(source string, method mesh.Method, z, x, y int) sourcecache.Key {
	return sourcecache.Key{SourceID: source, MeshMethod: string(method), Z: z, X: x, Y: y}
}

func TestGridGeneratorAveragesNorthEdgeHeights(t *testing.T) {
	req := factory.NewTerrainRequest("test.tif", mesh.MethodGrid, 10, 5, 5, factory.BuildParams{})

	main := unitSquare([4]float64{0, 0, 0, 0})
	req.Attach(keyFor("test.tif", mesh.MethodGrid, 10, 5, 5), main)

	// North neighbor's south edge (Y=0) carries the heights that should
	// land on the main tile's north edge (Y=1) after stitching.
	north := unitSquare([4]float64{100, 200, 0, 0})
	req.Attach(keyFor("test.tif", mesh.MethodGrid, 10, 5, 6), north)

	data, err := New().Generate(req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	decoded, err := quantizedmesh.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.MaxHeight != 200 {
		t.Fatalf("expected max height 200 after averaging the north edge, got %v", decoded.MaxHeight)
	}
}

func TestMartiniGeneratorSkipsStitching(t *testing.T) {
	req := factory.NewTerrainRequest("test.tif", mesh.MethodMartini, 10, 5, 5, factory.BuildParams{})

	main := unitSquare([4]float64{0, 0, 5, 7})
	req.Attach(keyFor("test.tif", mesh.MethodMartini, 10, 5, 5), main)
	north := unitSquare([4]float64{999, 999, 0, 0})
	req.Attach(keyFor("test.tif", mesh.MethodMartini, 10, 5, 6), north)

	data, err := New().Generate(req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	decoded, err := quantizedmesh.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.MaxHeight != 7 {
		t.Fatalf("martini must not merge neighbor heights, got max height %v want 7", decoded.MaxHeight)
	}
}

func TestDelatinGeneratorRetriangulatesAndAverages(t *testing.T) {
	req := factory.NewTerrainRequest("test.tif", mesh.MethodDelatin, 10, 5, 5, factory.BuildParams{})

	main := unitSquare([4]float64{0, 0, 0, 0})
	req.Attach(keyFor("test.tif", mesh.MethodDelatin, 10, 5, 5), main)
	north := unitSquare([4]float64{40, 60, 0, 0})
	req.Attach(keyFor("test.tif", mesh.MethodDelatin, 10, 5, 6), north)

	data, err := New().Generate(req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	decoded, err := quantizedmesh.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// delatin averaging includes the main vertex's own (zero) height, so
	// the merged north-edge vertex lands at 60/2=30, not the full 60.
	if decoded.MaxHeight != 30 {
		t.Fatalf("expected max height 30 from self-inclusive averaging, got %v", decoded.MaxHeight)
	}
}

func TestGeneratorReturnsEmptyTileWhenMainOutOfBounds(t *testing.T) {
	req := factory.NewTerrainRequest("test.tif", mesh.MethodGrid, 10, 5, 5, factory.BuildParams{})
	req.Attach(keyFor("test.tif", mesh.MethodGrid, 10, 5, 5), sourcecache.Payload{OutOfBounds: true})

	data, err := New().Generate(req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	decoded, err := quantizedmesh.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	wantVertices := (emptyTileGridSize + 1) * (emptyTileGridSize + 1)
	if len(decoded.U) != wantVertices {
		t.Fatalf("expected %d vertices for the empty-tile grid, got %d", wantVertices, len(decoded.U))
	}
}

func TestGeneratorRejectsUnknownMethod(t *testing.T) {
	req := factory.NewTerrainRequest("test.tif", mesh.Method("bogus"), 10, 5, 5, factory.BuildParams{})
	if _, err := New().Generate(req); err == nil {
		t.Fatal("expected an error for an unknown mesh method")
	}
}
