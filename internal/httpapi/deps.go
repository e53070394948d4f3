// Package httpapi wires the terrain factory, dataset config, and tile
// store into an HTTP surface: terrain tiles, layer.json descriptors, and a
// status endpoint, behind the teacher's chi middleware stack.
package httpapi

import (
	"time"

	"github.com/jcom-dev/ctod-go/internal/cog"
	"github.com/jcom-dev/ctod-go/internal/datasetcfg"
	"github.com/jcom-dev/ctod-go/internal/factory"
	"github.com/jcom-dev/ctod-go/internal/tilestore"
)

// Deps bundles a running server's collaborators. Built once in cmd/server
// and shared read-only across every request.
type Deps struct {
	Factory   *factory.Factory
	Pool      *cog.Pool // used by the layer.json handler to read a source's geographic bounds
	Store     tilestore.Store // nil disables the terrain-tile cache
	Datasets  *datasetcfg.Config
	NoDynamic bool
	Unsafe    bool
	StartTime time.Time
}
