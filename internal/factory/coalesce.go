package factory

import "time"

// listenForChanges drains the cache's changed signal for the life of the
// factory, removing newly-admitted keys from inflight and triggering a
// coalescer pass after each batch.
func (f *Factory) listenForChanges() {
	for {
		select {
		case <-f.stop:
			return
		case newKeys, ok := <-f.cache.Changed():
			if !ok {
				return
			}
			f.mu.Lock()
			for _, k := range newKeys {
				delete(f.inflight, k)
			}
			f.mu.Unlock()
			f.metrics.setInflight(f.inflightLen())

			f.triggerCoalesce()
		}
	}
}

// triggerCoalesce runs a coalescer pass under a reentrancy guard: if a pass
// is already running, it just asks that pass to run once more after it
// finishes, rather than starting a second concurrent pass.
func (f *Factory) triggerCoalesce() {
	f.coalesceMu.Lock()
	if f.coalescing {
		f.coalesceRerun = true
		f.coalesceMu.Unlock()
		return
	}
	f.coalescing = true
	f.coalesceMu.Unlock()

	go f.runCoalescePasses()
}

func (f *Factory) runCoalescePasses() {
	for {
		f.coalescePass()

		f.coalesceMu.Lock()
		if f.coalesceRerun {
			f.coalesceRerun = false
			f.coalesceMu.Unlock()
			continue
		}
		f.coalescing = false
		f.coalesceMu.Unlock()
		return
	}
}

// coalescePass scans pending requests for ones whose full wanted set is now
// cached, bulk-fetches their payloads, and hands each off to the generator
// on its own goroutine so a slow stitch never blocks the scan.
func (f *Factory) coalescePass() {
	ready := f.collectReady()
	for _, req := range ready {
		go f.finish(req)
	}
}

func (f *Factory) collectReady() []*TerrainRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ready []*TerrainRequest
	for key, req := range f.pending {
		known := f.cache.KnownKeys(req.WantedKeys)
		if !allKnown(known, req.WantedKeys) {
			continue
		}
		if !req.markProcessing() {
			continue
		}

		payloads := f.cache.Get(req.WantedKeys)
		for k, p := range payloads {
			req.Attach(k, p)
		}

		delete(f.pending, key)
		ready = append(ready, req)
	}

	f.metrics.setPending(len(f.pending))
	return ready
}

func (f *Factory) finish(req *TerrainRequest) {
	data, err := f.generator.Generate(req)
	req.setResult(Result{Data: data, Err: err})
	f.log.Debug("terrain request completed", "z", req.Z, "x", req.X, "y", req.Y, "elapsed", time.Since(req.requestTime))
}
