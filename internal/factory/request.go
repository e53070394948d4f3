package factory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jcom-dev/ctod-go/internal/cog"
	"github.com/jcom-dev/ctod-go/internal/mesh"
	"github.com/jcom-dev/ctod-go/internal/sourcecache"
	"github.com/jcom-dev/ctod-go/internal/tileindex"
)

// TerrainKey is a one-shot identifier for an in-flight terrain request. It
// is never persisted or cached; only the resulting tile bytes are (by the
// on-disk tile store, outside this package).
type TerrainKey string

func newTerrainKey() TerrainKey { return TerrainKey(uuid.NewString()) }

// BuildParams carries the meshing and raster-read options shared by every
// source tile a single terrain request fans out into.
type BuildParams struct {
	Resampling      cog.Resampling
	Buffer          float64
	AlignBounds     bool
	NoData          float64
	Unsafe          bool
	GenerateNormals bool
	Mesh            mesh.Params
}

// Result is what a terrain request resolves to: encoded tile bytes, or an
// error if stitching/encoding failed.
type Result struct {
	Data []byte
	Err  error
}

// TerrainRequest is the unit the factory coalesces around: one requested
// tile, decomposed into itself plus its eight neighbors as source-tile
// subrequests (wantedKeys), waiting for all of them to land in the cache.
type TerrainRequest struct {
	Key TerrainKey

	Source string
	Method mesh.Method
	Z, X, Y int
	Params BuildParams

	WantedKeys   []sourcecache.Key
	wantedCoords map[sourcecache.Key]tileindex.Key

	requestTime time.Time
	result      chan Result

	mu         sync.Mutex
	payloads   map[sourcecache.Key]sourcecache.Payload
	processing bool
	resultSet  bool
}

// NewTerrainRequest builds a TerrainRequest for tile (z,x,y) against source,
// fanning it out into the main tile plus its up-to-eight neighbors as
// wanted SourceTileKeys (neighbors above the top row or below the bottom
// row are simply absent, per tileindex.Neighbors).
func NewTerrainRequest(source string, method mesh.Method, z, x, y int, params BuildParams) *TerrainRequest {
	req := &TerrainRequest{
		Key:         newTerrainKey(),
		Source:      source,
		Method:      method,
		Z:           z,
		X:           x,
		Y:           y,
		Params:      params,
		requestTime: time.Now(),
		result:      make(chan Result, 1),
		payloads:    make(map[sourcecache.Key]sourcecache.Payload),
	}
	req.WantedKeys, req.wantedCoords = req.buildWantedKeys()
	return req
}

func (r *TerrainRequest) sourceTileKey(z, x, y int) sourcecache.Key {
	return sourcecache.Key{SourceID: r.Source, MeshMethod: string(r.Method), Z: z, X: x, Y: y}
}

func (r *TerrainRequest) buildWantedKeys() ([]sourcecache.Key, map[sourcecache.Key]tileindex.Key) {
	coords := append([]tileindex.Key{{Z: r.Z, X: r.X, Y: r.Y}}, tileindex.Neighbors(r.Z, r.X, r.Y)...)

	keys := make([]sourcecache.Key, 0, len(coords))
	byKey := make(map[sourcecache.Key]tileindex.Key, len(coords))
	for _, c := range coords {
		k := r.sourceTileKey(c.Z, c.X, c.Y)
		keys = append(keys, k)
		byKey[k] = c
	}
	return keys, byKey
}

// Wait blocks until the request's future resolves.
func (r *TerrainRequest) Wait() Result {
	return <-r.result
}

// Done returns the channel Wait receives from, for select-based callers.
func (r *TerrainRequest) Done() <-chan Result { return r.result }

func (r *TerrainRequest) setResult(res Result) {
	r.mu.Lock()
	if r.resultSet {
		r.mu.Unlock()
		return
	}
	r.resultSet = true
	r.mu.Unlock()
	r.result <- res
}

// Attach records a wanted source tile's payload against this request.
// Normally only called by the factory's coalescer once a key is cached,
// but exported so tests (including generator package tests) can build a
// fully-populated request without going through a live Factory.
func (r *TerrainRequest) Attach(k sourcecache.Key, p sourcecache.Payload) {
	r.mu.Lock()
	r.payloads[k] = p
	r.mu.Unlock()
}

// MainPayload returns the source-tile payload built for the request's own
// (Z,X,Y) tile.
func (r *TerrainRequest) MainPayload() sourcecache.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payloads[r.WantedKeys[0]]
}

// NeighborPayloads returns the payloads of the up-to-eight neighboring
// source tiles, keyed by compass direction. A direction is simply absent
// from the map when that neighbor doesn't exist (off the top or bottom of
// the tiling; X always wraps instead of being dropped).
func (r *TerrainRequest) NeighborPayloads() map[tileindex.Direction]sourcecache.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[tileindex.Direction]sourcecache.Payload, 8)
	for _, d := range tileindex.AllDirections {
		c, ok := tileindex.NeighborKey(r.Z, r.X, r.Y, d)
		if !ok {
			continue
		}
		out[d] = r.payloads[r.sourceTileKey(c.Z, c.X, c.Y)]
	}
	return out
}

// payloadsSnapshot returns the wanted keys' payloads in WantedKeys order
// (self first, then the eight neighbors in N/NE/E/SE/S/SW/W/NW order).
func (r *TerrainRequest) payloadsSnapshot() []sourcecache.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sourcecache.Payload, len(r.WantedKeys))
	for i, k := range r.WantedKeys {
		out[i] = r.payloads[k]
	}
	return out
}

// buildRequest reconstructs the source-tile build spec for one of this
// terrain request's wanted keys.
func (r *TerrainRequest) buildRequest(k sourcecache.Key) sourceTileRequest {
	c := r.wantedCoords[k]
	return sourceTileRequest{
		Key:    k,
		Z:      c.Z,
		X:      c.X,
		Y:      c.Y,
		Source: r.Source,
		Method: r.Method,
		Params: r.Params,
	}
}

func (r *TerrainRequest) markProcessing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.processing || r.resultSet {
		return false
	}
	r.processing = true
	return true
}
