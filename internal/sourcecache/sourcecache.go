// Package sourcecache implements the per-source-tile cache the terrain
// factory consults before scheduling a raster read: keyed by (source,
// mesh method, z, x, y), TTL-bounded, with batched write admission so a
// burst of concurrent source-tile completions commits as one write and
// fires a single "changed" signal.
package sourcecache

import (
	"time"

	"github.com/cespare/xxhash/v2"
)

// Key identifies one cacheable source-tile build.
type Key struct {
	SourceID   string
	MeshMethod string
	Z, X, Y    int
}

// Fingerprint returns a stable 64-bit digest of the key, used as the
// embedded-SQL primary key and as a metric-label-safe identifier (raw
// SourceID values are often full URLs).
func (k Key) Fingerprint() uint64 {
	h := xxhash.New()
	h.WriteString(k.SourceID)
	h.Write([]byte{0})
	h.WriteString(k.MeshMethod)
	h.Write([]byte{0})
	writeVarint(h, k.Z)
	writeVarint(h, k.X)
	writeVarint(h, k.Y)
	return h.Sum64()
}

func writeVarint(h *xxhash.Digest, v int) {
	var buf [8]byte
	u := uint64(int64(v))
	for i := 0; i < 8; i++ {
		buf[i] = byte(u >> (8 * i))
	}
	h.Write(buf[:])
}

// Vertex mirrors mesh.Vertex without importing the mesh package, keeping
// sourcecache a leaf dependency; the factory converts at the boundary.
type Vertex struct{ X, Y, Z float64 }

// Payload is the cached value for a Key.
type Payload struct {
	RawHeights  []float64 // row-major, Size*Size
	Size        int
	Vertices    []Vertex
	Triangles   []uint32
	Normals     []Vertex // nil when normals were not requested
	OutOfBounds bool
}

type entry struct {
	payload   Payload
	insertedAt time.Time
}

// Cache is the source-tile cache contract. Both backends (in-memory and
// embedded-SQL) satisfy it identically; the factory never branches on which
// one is active.
type Cache interface {
	// Get bulk-looks-up keys, returning only those present (and not
	// expired past a caller-irrelevant boundary: expiry is enforced by
	// ClearExpired, not by Get).
	Get(keys []Key) map[Key]Payload
	// Add inserts or replaces a single key's payload. Admission is
	// batched internally; Add returns once the value is durably queued,
	// not necessarily once the batch has committed.
	Add(key Key, payload Payload)
	// KnownKeys reports which of the given keys are currently cached.
	KnownKeys(keys []Key) map[Key]bool
	// ClearExpired deletes entries older than the cache's TTL whose key
	// is not in pinned.
	ClearExpired(pinned map[Key]bool)
	// Changed returns a channel that receives the set of keys newly
	// admitted by each committed batch. Exactly one receiver is expected
	// (the factory's coalescer loop).
	Changed() <-chan []Key
	// Len reports the number of live entries, for metrics.
	Len() int
	Close() error
}
