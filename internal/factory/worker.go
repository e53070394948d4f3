package factory

import (
	"context"

	"github.com/jcom-dev/ctod-go/internal/cog"
	"github.com/jcom-dev/ctod-go/internal/geodetic"
	"github.com/jcom-dev/ctod-go/internal/mesh"
	"github.com/jcom-dev/ctod-go/internal/sourcecache"
	"github.com/jcom-dev/ctod-go/internal/tileindex"
)

// sourceTileRequest is a queued build: the cache key plus whatever this
// request's build parameters are. The first request to enqueue a given key
// wins the parameters used to build it; later requests wanting the same
// key just wait on the same cache entry.
type sourceTileRequest struct {
	Key    sourcecache.Key
	Z, X, Y int
	Source string
	Method mesh.Method
	Params BuildParams
}

// buildSourceTile performs one worker task: acquire a reader, read the
// heightmap (or note out-of-bounds), run the matching mesh processor,
// release the reader, and admit the result into the cache.
func (f *Factory) buildSourceTile(ctx context.Context, req sourceTileRequest) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("factory: source tile build panicked", "key", req.Key, "panic", r)
			f.cache.Add(req.Key, sourcecache.Payload{OutOfBounds: true})
		}
	}()

	payload := f.readAndMesh(ctx, req)
	f.cache.Add(req.Key, payload)
}

func (f *Factory) readAndMesh(ctx context.Context, req sourceTileRequest) sourcecache.Payload {
	reader, err := f.pool.Acquire(req.Source)
	if err != nil {
		f.log.Warn("factory: acquire reader failed", "source", req.Source, "error", err)
		return sourcecache.Payload{OutOfBounds: true}
	}
	defer f.pool.Release(req.Source, reader)

	hm, ok := reader.ReadTile(ctx, req.Z, req.X, req.Y, req.Params.Resampling, req.Params.Buffer, req.Params.AlignBounds, req.Params.NoData, req.Params.Unsafe)
	if !ok {
		return sourcecache.Payload{OutOfBounds: true}
	}

	processor := mesh.ForMethod(req.Method)
	m := processor.Process(hm, req.Z, req.Params.Mesh)

	return buildPayload(req, hm, m)
}

// buildPayload copies the processor's mesh into the cached payload
// unchanged, still in pixel space (geographic rescaling happens later, when
// the terrain tile is encoded), computes normals when requested, and stores
// the raw heightmap alongside it.
func buildPayload(req sourceTileRequest, hm *cog.Heightmap, m mesh.Mesh) sourcecache.Payload {
	vertices := make([]sourcecache.Vertex, len(m.Vertices))
	for i, v := range m.Vertices {
		vertices[i] = sourcecache.Vertex{X: v.X, Y: v.Y, Z: v.Z}
	}

	var normals []sourcecache.Vertex
	if req.Params.GenerateNormals {
		normals = computeNormals(req, m, float64(hm.Size-1))
	}

	return sourcecache.Payload{
		RawHeights: hm.Values,
		Size:       hm.Size,
		Vertices:   vertices,
		Triangles:  m.Triangles,
		Normals:    normals,
	}
}

func computeNormals(req sourceTileRequest, m mesh.Mesh, tileSize float64) []sourcecache.Vertex {
	bounds := tileindex.TileBounds(req.Z, req.X, req.Y)

	ecef := make([]mesh.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		lon, lat, height := pixelToGeodetic(v, bounds, tileSize)
		p := geodetic.ToECEF(lon, lat, height)
		ecef[i] = mesh.Vec3{p[0], p[1], p[2]}
	}

	faceNormals := mesh.CalculateNormals(ecef, m.Triangles)
	out := make([]sourcecache.Vertex, len(faceNormals))
	for i, n := range faceNormals {
		out[i] = sourcecache.Vertex{X: n[0], Y: n[1], Z: n[2]}
	}
	return out
}

// pixelToGeodetic maps a tile-local pixel-space vertex (x,y in [0,tileSize],
// z = raw elevation) to longitude/latitude/height.
func pixelToGeodetic(v mesh.Vertex, b tileindex.Bounds, tileSize float64) (lon, lat, height float64) {
	lon = b.MinX + (v.X/tileSize)*(b.MaxX-b.MinX)
	lat = b.MinY + (v.Y/tileSize)*(b.MaxY-b.MinY)
	return lon, lat, v.Z
}
