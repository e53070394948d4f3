package cog

import (
	"fmt"
	"sync"
)

// Pool keeps a bounded per-source stack of open Readers so that repeated
// requests against the same raster reuse an already-opened GDAL dataset
// handle instead of paying open/close cost per tile.
type Pool struct {
	maxReaders int
	factory    func(sourceID string) (Reader, error)

	mu    sync.Mutex
	stack map[string][]Reader
}

// NewPool builds a pool bounded at maxReaders open handles per source_id.
// factory opens a fresh Reader for a source_id on a cache-stack miss.
func NewPool(maxReaders int, factory func(sourceID string) (Reader, error)) *Pool {
	return &Pool{
		maxReaders: maxReaders,
		factory:    factory,
		stack:      make(map[string][]Reader),
	}
}

// Acquire pops a Reader off the source's stack, or opens a new one. The
// open itself may be slow (network-backed VRTs, first open of a COG); it
// runs outside the pool's mutex. Every caller that finds the stack empty
// opens its own Reader, so no Reader is ever handed to two callers at once.
func (p *Pool) Acquire(sourceID string) (Reader, error) {
	p.mu.Lock()
	if s := p.stack[sourceID]; len(s) > 0 {
		r := s[len(s)-1]
		p.stack[sourceID] = s[:len(s)-1]
		p.mu.Unlock()
		return r, nil
	}
	p.mu.Unlock()

	r, err := p.factory(sourceID)
	if err != nil {
		return nil, fmt.Errorf("cog: acquire %q: %w", sourceID, err)
	}
	return r, nil
}

// Release returns a Reader to its source's stack, closing it instead if the
// stack is already at capacity.
func (p *Pool) Release(sourceID string, r Reader) {
	p.mu.Lock()
	s := p.stack[sourceID]
	if len(s) >= p.maxReaders {
		p.mu.Unlock()
		r.Close()
		return
	}
	p.stack[sourceID] = append(s, r)
	p.mu.Unlock()
}

// Shutdown closes every pooled reader across every source.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, s := range p.stack {
		for _, r := range s {
			r.Close()
		}
		delete(p.stack, id)
	}
}

// Len reports the number of idle readers pooled for a source, for tests.
func (p *Pool) Len(sourceID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stack[sourceID])
}
