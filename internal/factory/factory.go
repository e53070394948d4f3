// Package factory implements the request-coalescing terrain factory: the
// component that decomposes one terrain tile request into itself plus its
// eight neighbors, deduplicates the resulting source-tile builds across
// concurrent requests, and resumes every waiting request once all nine of
// its inputs have landed in the source-tile cache.
package factory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jcom-dev/ctod-go/internal/cog"
	"github.com/jcom-dev/ctod-go/internal/sourcecache"
)

const (
	defaultWorkers       = 20
	defaultSweepInterval = 5 * time.Second
)

// Generator stitches a completed TerrainRequest's nine source-tile payloads
// into encoded quantized-mesh bytes. The factory depends only on this
// interface, not on the concrete stitching implementation, so the two
// packages never import each other.
type Generator interface {
	Generate(req *TerrainRequest) ([]byte, error)
}

// Config bundles a Factory's collaborators and tuning knobs.
type Config struct {
	Pool      *cog.Pool
	Cache     sourcecache.Cache
	Generator Generator
	Logger    *slog.Logger

	// Workers bounds the number of concurrent source-tile builds. Defaults
	// to 20 when zero.
	Workers int
	// SweepInterval is how often the cache's expired-entry sweep runs.
	// Defaults to 5s when zero.
	SweepInterval time.Duration
}

// Factory is the coalescer. Its coordination state (pending, inflight,
// queued) is protected by a single mutex; every critical section touching
// it is bounded-time, with all I/O (raster reads, meshing, cache writes)
// happening outside the lock in worker goroutines.
type Factory struct {
	pool      *cog.Pool
	cache     sourcecache.Cache
	generator Generator
	log       *slog.Logger

	mu       sync.Mutex
	pending  map[TerrainKey]*TerrainRequest
	inflight map[sourcecache.Key]bool
	queue    []sourceTileRequest
	queued   map[sourcecache.Key]bool

	coalesceMu    sync.Mutex
	coalescing    bool
	coalesceRerun bool

	workers *errgroup.Group

	sweepInterval time.Duration
	stop          chan struct{}
	stopped       sync.Once

	metrics *metrics
}

// New builds a Factory and starts its change-listener and periodic sweeper
// goroutines. Callers must call Shutdown when done.
func New(cfg Config) *Factory {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = defaultSweepInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := &errgroup.Group{}
	g.SetLimit(workers)

	f := &Factory{
		pool:          cfg.Pool,
		cache:         cfg.Cache,
		generator:     cfg.Generator,
		log:           logger,
		pending:       make(map[TerrainKey]*TerrainRequest),
		inflight:      make(map[sourcecache.Key]bool),
		queued:        make(map[sourcecache.Key]bool),
		workers:       g,
		sweepInterval: sweep,
		stop:          make(chan struct{}),
		metrics:       newMetrics(),
	}

	go f.listenForChanges()
	go f.runSweeper()

	return f
}

// Handle registers a terrain request, enqueues any of its wanted source
// tiles that aren't already cached or being built, and returns its future.
// Matches spec step-for-step: register in pending, enqueue uncached wants,
// drain the queue into worker tasks, and fire an immediate coalescer pass
// in case every want was already cached.
func (f *Factory) Handle(ctx context.Context, req *TerrainRequest) *TerrainRequest {
	f.mu.Lock()
	f.pending[req.Key] = req

	known := f.cache.KnownKeys(req.WantedKeys)
	for _, k := range req.WantedKeys {
		if known[k] {
			continue
		}
		if f.inflight[k] || f.queued[k] {
			continue
		}
		f.queued[k] = true
		f.queue = append(f.queue, req.buildRequest(k))
	}
	f.mu.Unlock()

	f.drainQueue(ctx)

	if allKnown(known, req.WantedKeys) {
		f.triggerCoalesce()
	}

	f.metrics.setPending(f.pendingLen())
	f.metrics.setQueueDepth(f.queueLen())

	return req
}

func allKnown(known map[sourcecache.Key]bool, keys []sourcecache.Key) bool {
	for _, k := range keys {
		if !known[k] {
			return false
		}
	}
	return true
}

// drainQueue moves every currently-queued key into inflight and spawns a
// bounded worker task for it. Called with no lock held; it takes the lock
// only to move the head of the queue.
func (f *Factory) drainQueue(ctx context.Context) {
	for {
		f.mu.Lock()
		if len(f.queue) == 0 {
			f.mu.Unlock()
			return
		}
		req := f.queue[0]
		f.queue = f.queue[1:]
		delete(f.queued, req.Key)
		f.inflight[req.Key] = true
		f.mu.Unlock()

		f.metrics.setInflight(f.inflightLen())

		f.workers.Go(func() error {
			f.buildSourceTile(ctx, req)
			return nil
		})
	}
}

func (f *Factory) pendingLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

func (f *Factory) inflightLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inflight)
}

func (f *Factory) queueLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Shutdown stops the background goroutines and waits for in-flight source
// builds to finish.
func (f *Factory) Shutdown() {
	f.stopped.Do(func() { close(f.stop) })
	f.workers.Wait()
}
