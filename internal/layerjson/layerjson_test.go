package layerjson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSetsFixedRootTileRange(t *testing.T) {
	layer := Build([4]float64{4, 50, 6, 52}, 2, "{z}/{x}/{y}.terrain", nil)

	require.Equal(t, "quantized-mesh-1.0", layer.Format)
	require.Equal(t, "tms", layer.Schema)
	require.Len(t, layer.Available, 3) // z=0,1,2
	require.Equal(t, Range{StartX: 0, StartY: 0, EndX: 1, EndY: 0}, layer.Available[0][0])
}

func TestBuildDefaultsExtensionsToEmptySlice(t *testing.T) {
	layer := Build([4]float64{4, 50, 6, 52}, 0, "{z}/{x}/{y}.terrain", nil)
	require.NotNil(t, layer.Extensions)
	require.Empty(t, layer.Extensions)
}

func TestCesiumIndexBoundsFlipsYAndWidensWithZoom(t *testing.T) {
	// A small bbox entirely within one tile at low zoom should collapse to
	// a single-tile range, and the range should only get larger (or equal)
	// as zoom increases and the grid gets finer relative to the bbox.
	bounds := [4]float64{4, 50, 6, 52}

	r1 := cesiumIndexBounds(bounds, 1)
	require.LessOrEqual(t, r1.StartX, r1.EndX)
	require.LessOrEqual(t, r1.StartY, r1.EndY)
	require.Equal(t, r1.StartX, r1.EndX)
	require.Equal(t, r1.StartY, r1.EndY)
	// the bbox lies in TMS row 1 (the northern row at z=1), Cesium row 0
	require.Equal(t, 0, r1.StartY)

	r10 := cesiumIndexBounds(bounds, 10)
	require.LessOrEqual(t, r10.StartX, r10.EndX)
	require.LessOrEqual(t, r10.StartY, r10.EndY)
	require.GreaterOrEqual(t, r10.EndX-r10.StartX, r1.EndX-r1.StartX)
	require.GreaterOrEqual(t, r10.EndY-r10.StartY, r1.EndY-r1.StartY)
}

func TestCesiumIndexBoundsWholeWorldCoversEntireGrid(t *testing.T) {
	r := cesiumIndexBounds([4]float64{-180, -90, 180, 90}, 3)
	tilesAcross := 2 * (1 << uint(3))
	tilesUp := 1 << uint(3)
	require.Equal(t, 0, r.StartX)
	require.Equal(t, 0, r.StartY)
	require.Equal(t, tilesAcross-1, r.EndX)
	require.Equal(t, tilesUp-1, r.EndY)
}
