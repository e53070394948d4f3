// Package tilestore implements the on-disk/distributed write-through cache
// for finished terrain tiles, keyed by source raster, mesh method, and TMS
// tile coordinate. Three backends (filesystem, Redis, S3) share one Store
// interface; exactly one is active per deployment.
package tilestore

import (
	"context"
	"encoding/hex"
	"fmt"
)

// Key identifies one cached terrain tile on disk, in TMS convention
// (callers are responsible for any Cesium/TMS y-flip before constructing
// one).
type Key struct {
	Source string
	Method string
	Z, X, Y int
}

// path returns the "{hex(source)}/{method}/{z}/{x}/{y}.terrain" layout
// shared by every backend; Redis and S3 use it (with '/' separators) as a
// flat key, FSStore joins it onto a root directory.
func (k Key) path() string {
	return fmt.Sprintf("%s/%s/%d/%d/%d.terrain", hex.EncodeToString([]byte(k.Source)), k.Method, k.Z, k.X, k.Y)
}

// Store reads and writes finished terrain tiles. Get's second return value
// reports whether the tile was found; a miss is not an error.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, bool, error)
	Put(ctx context.Context, key Key, data []byte) error
}
