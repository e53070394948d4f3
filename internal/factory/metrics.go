package factory

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the factory's Prometheus gauges. They are registered with
// prometheus.DefaultRegisterer on construction; duplicate registration
// (e.g. from tests building multiple factories) is tolerated by reusing
// the already-registered collector.
type metrics struct {
	pending  prometheus.Gauge
	inflight prometheus.Gauge
	queue    prometheus.Gauge
	cache    prometheus.Gauge
}

func newMetrics() *metrics {
	return &metrics{
		pending:  registerGauge("factory_pending_requests", "Terrain requests awaiting all nine source tiles."),
		inflight: registerGauge("factory_inflight_tiles", "Source tiles currently being built."),
		queue:    registerGauge("factory_queue_depth", "Source tile builds queued but not yet dispatched to a worker."),
		cache:    registerGauge("factory_cache_size", "Entries currently held in the source-tile cache."),
	}
}

// registerGauge registers a new gauge, or returns the one already
// registered under that name if a prior Factory instance (e.g. in tests)
// has already claimed it.
func registerGauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	if err := prometheus.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Gauge)
		}
	}
	return g
}

func (m *metrics) setPending(n int)  { m.pending.Set(float64(n)) }
func (m *metrics) setInflight(n int) { m.inflight.Set(float64(n)) }
func (m *metrics) setQueueDepth(n int) { m.queue.Set(float64(n)) }
func (m *metrics) setCacheSize(n int) { m.cache.Set(float64(n)) }
