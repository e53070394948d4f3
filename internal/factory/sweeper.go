package factory

import (
	"time"

	"github.com/jcom-dev/ctod-go/internal/sourcecache"
)

// runSweeper periodically evicts expired source-tile cache entries, pinning
// any key still named by a pending terrain request so an in-flight build
// target can never be evicted out from under it.
func (f *Factory) runSweeper() {
	ticker := time.NewTicker(f.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.sweepOnce()
		}
	}
}

func (f *Factory) sweepOnce() {
	f.mu.Lock()
	pinSet := make(map[sourcecache.Key]bool)
	for _, req := range f.pending {
		for _, k := range req.WantedKeys {
			pinSet[k] = true
		}
	}
	pendingLen := len(f.pending)
	inflightLen := len(f.inflight)
	queueLen := len(f.queue)
	f.mu.Unlock()

	f.cache.ClearExpired(pinSet)

	// Changed()'s buffered channel can drop a signal under a slow consumer
	// (sourcecache.MemCache.commit's select/default), which would otherwise
	// leave a request whose wanted set just completed waiting forever. Ride
	// along on the sweep tick as a backstop: rescan pending requests against
	// the cache regardless of whether a signal arrived.
	f.triggerCoalesce()

	f.metrics.setPending(pendingLen)
	f.metrics.setInflight(inflightLen)
	f.metrics.setQueueDepth(queueLen)
	f.metrics.setCacheSize(f.cache.Len())

	f.log.Debug("factory sweep",
		"pending", pendingLen,
		"inflight", inflightLen,
		"queue", queueLen,
		"cache_size", f.cache.Len(),
	)
}
