package cog

import (
	"context"
	"fmt"
	"math"
)

// maxIntersectingChildren is the most child rasters a tile may intersect
// for a mosaic read when unsafe is false; a tile intersecting more is
// refused outright (ReadTile returns false) rather than composited from a
// subset, matching the reference reader's refusal to fan out across an
// unbounded number of sources for one tile.
const maxIntersectingChildren = 10

// MosaicReader composites children of a MosaicManifest, drawing each child
// through the shared Pool so child reads participate in the same bounded
// handle reuse as any plain COG.
type MosaicReader struct {
	manifest *MosaicManifest
	pool     *Pool
	info     Info
}

// NewMosaicReader builds a MosaicReader whose synthetic Info spans the
// union of its children's extents.
func NewMosaicReader(manifest *MosaicManifest, pool *Pool) *MosaicReader {
	b := unionExtents(manifest.Datasets)
	return &MosaicReader{
		manifest: manifest,
		pool:     pool,
		info: Info{
			Bounds: b,
		},
	}
}

func unionExtents(children []ChildDataset) [4]float64 {
	if len(children) == 0 {
		return [4]float64{}
	}
	b := children[0].Extent
	for _, c := range children[1:] {
		if c.Extent[0] < b[0] {
			b[0] = c.Extent[0]
		}
		if c.Extent[1] < b[1] {
			b[1] = c.Extent[1]
		}
		if c.Extent[2] > b[2] {
			b[2] = c.Extent[2]
		}
		if c.Extent[3] > b[3] {
			b[3] = c.Extent[3]
		}
	}
	return b
}

func (m *MosaicReader) Info() Info { return m.info }

func (m *MosaicReader) TileExists(z, x, y int) bool {
	b := tileGeoBounds(z, x, y)
	return overlaps(b, m.info.Bounds)
}

// intersectingChildren returns the manifest's children whose extent
// overlaps the tile's geographic bounds, in manifest (config) order.
func (m *MosaicReader) intersectingChildren(z, x, y int) []ChildDataset {
	tb := tileGeoBounds(z, x, y)
	var out []ChildDataset
	for _, c := range m.manifest.Datasets {
		if overlaps(tb, c.Extent) {
			out = append(out, c)
		}
	}
	return out
}

func (m *MosaicReader) ReadTile(ctx context.Context, z, x, y int, resampling Resampling, buffer float64, alignBounds bool, noData float64, unsafe bool) (*Heightmap, bool) {
	children := m.intersectingChildren(z, x, y)
	if len(children) == 0 {
		return nil, false
	}
	if len(children) > maxIntersectingChildren && !unsafe {
		return nil, false
	}

	size := baseTileSize + int(2*buffer)
	composite := NewHeightmap(size)
	filled := make([]bool, size*size)
	remaining := size * size

	for _, child := range children {
		if remaining == 0 {
			break
		}
		reader, err := m.pool.Acquire(child.Path)
		if err != nil {
			continue
		}

		hm, ok := reader.ReadTile(ctx, z, x, y, resampling, buffer, alignBounds, noData, unsafe)
		m.pool.Release(child.Path, reader)
		if !ok {
			continue
		}

		for i, v := range hm.Values {
			if filled[i] {
				continue
			}
			if math.IsNaN(v) {
				continue
			}
			composite.Values[i] = v
			filled[i] = true
			remaining--
		}
	}

	if remaining == size*size {
		return nil, false
	}
	for i := range composite.Values {
		if !filled[i] {
			composite.Values[i] = noData
		}
	}
	return composite, true
}

func (m *MosaicReader) Close() error { return nil }

var _ Reader = (*MosaicReader)(nil)

// OpenDataset opens any DatasetConfig as a Reader: a plain COG/VRT path
// opens directly, a mosaic builds a MosaicReader fanning its children
// through the same pool.
func OpenDataset(cfg DatasetConfig, pool *Pool) (Reader, error) {
	switch cfg.Kind {
	case KindMosaic:
		if cfg.Mosaic == nil {
			return nil, fmt.Errorf("cog: mosaic config %q has no manifest", cfg.Path)
		}
		return NewMosaicReader(cfg.Mosaic, pool), nil
	default:
		return Open(cfg.Path)
	}
}
