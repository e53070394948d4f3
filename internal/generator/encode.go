package generator

import (
	"github.com/jcom-dev/ctod-go/internal/geodetic"
	"github.com/jcom-dev/ctod-go/internal/quantizedmesh"
	"github.com/jcom-dev/ctod-go/internal/sourcecache"
	"github.com/jcom-dev/ctod-go/internal/tileindex"
)

// toQuantizedMesh rescales pixel-space vertices (X,Y in [0,tileSize], Y
// increasing northward) into geographic space, converts them to ECEF,
// derives the four edge-vertex index lists Cesium's loader expects, and
// encodes the result.
func toQuantizedMesh(vertices []sourcecache.Vertex, triangles []uint32, normals []sourcecache.Vertex, bounds tileindex.Bounds, tileSize float64) []byte {
	qmVertices := make([]quantizedmesh.Vertex, len(vertices))
	spanX := bounds.MaxX - bounds.MinX
	spanY := bounds.MaxY - bounds.MinY

	var edges quantizedmesh.EdgeIndices
	for i, v := range vertices {
		lon := bounds.MinX + (v.X/tileSize)*spanX
		lat := bounds.MinY + (v.Y/tileSize)*spanY
		ecef := geodetic.ToECEF(lon, lat, v.Z)

		qmVertices[i] = quantizedmesh.Vertex{
			Lon:    lon,
			Lat:    lat,
			Height: v.Z,
			ECEF:   quantizedmesh.Vec3{ecef[0], ecef[1], ecef[2]},
		}

		idx := uint32(i)
		if v.X == 0 {
			edges.West = append(edges.West, idx)
		}
		if v.X == tileSize {
			edges.East = append(edges.East, idx)
		}
		if v.Y == 0 {
			edges.South = append(edges.South, idx)
		}
		if v.Y == tileSize {
			edges.North = append(edges.North, idx)
		}
	}

	var qmNormals []quantizedmesh.Vec3
	if normals != nil {
		qmNormals = make([]quantizedmesh.Vec3, len(normals))
		for i, n := range normals {
			qmNormals[i] = quantizedmesh.Vec3{n.X, n.Y, n.Z}
		}
	}

	return quantizedmesh.Encode(quantizedmesh.Mesh{
		Vertices:  qmVertices,
		Triangles: triangles,
		Normals:   qmNormals,
		Bounds:    quantizedmesh.GeoBounds{MinLon: bounds.MinX, MinLat: bounds.MinY, MaxLon: bounds.MaxX, MaxLat: bounds.MaxY},
		Edges:     edges,
	})
}
