package cog

import (
	"context"
	"testing"
)

// fakeReader is a synthetic Reader used by tests that cannot depend on a
// real GDAL dataset fixture.
type fakeReader struct {
	info   Info
	closed bool
	reads  int
}

func (f *fakeReader) Info() Info { return f.info }

func (f *fakeReader) TileExists(z, x, y int) bool {
	b := tileGeoBounds(z, x, y)
	return overlaps(b, f.info.Bounds)
}

func (f *fakeReader) ReadTile(ctx context.Context, z, x, y int, resampling Resampling, buffer float64, alignBounds bool, noData float64, unsafe bool) (*Heightmap, bool) {
	f.reads++
	if !f.TileExists(z, x, y) {
		return nil, false
	}
	size := baseTileSize + int(2*buffer)
	hm := NewHeightmap(size)
	for i := range hm.Values {
		hm.Values[i] = 100
	}
	return hm, true
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func TestPoolAcquireReleaseReuses(t *testing.T) {
	opens := 0
	pool := NewPool(2, func(sourceID string) (Reader, error) {
		opens++
		return &fakeReader{info: Info{Bounds: [4]float64{-180, -90, 180, 90}}}, nil
	})

	r1, err := pool.Acquire("a")
	if err != nil {
		t.Fatal(err)
	}
	pool.Release("a", r1)

	r2, err := pool.Acquire("a")
	if err != nil {
		t.Fatal(err)
	}
	if opens != 1 {
		t.Fatalf("expected exactly one open for reused source, got %d", opens)
	}
	if r2 != r1 {
		t.Fatalf("expected the released reader to be reused")
	}
}

func TestPoolReleaseOverCapacityCloses(t *testing.T) {
	pool := NewPool(1, func(sourceID string) (Reader, error) {
		return &fakeReader{info: Info{Bounds: [4]float64{-180, -90, 180, 90}}}, nil
	})

	r1, _ := pool.Acquire("a")
	r2, _ := pool.Acquire("a")

	pool.Release("a", r1)
	pool.Release("a", r2) // over capacity, should close

	fr2 := r2.(*fakeReader)
	if !fr2.closed {
		t.Fatalf("expected overflow release to close the reader")
	}
	if pool.Len("a") != 1 {
		t.Fatalf("expected stack depth 1, got %d", pool.Len("a"))
	}
}

func TestClassifyKind(t *testing.T) {
	cases := map[string]DatasetKind{
		"foo.tif":          KindCOG,
		"foo.vrt":          KindVRT,
		"mosaic.json":      KindMosaic,
		"mosaic.ctod":      KindMosaic,
		"http://x/a.tif":   KindCOG,
		"http://x/a.json?v=1": KindMosaic,
	}
	for path, want := range cases {
		if got := ClassifyKind(path); got != want {
			t.Errorf("ClassifyKind(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestMosaicReaderFirstNonEmptyChildWins(t *testing.T) {
	manifest := &MosaicManifest{
		Datasets: []ChildDataset{
			{Path: "empty", Extent: [4]float64{-180, -90, 180, 90}},
			{Path: "filled", Extent: [4]float64{-180, -90, 180, 90}},
		},
	}

	calls := map[string]int{}
	pool := NewPool(4, func(sourceID string) (Reader, error) {
		calls[sourceID]++
		if sourceID == "empty" {
			return &emptyReader{info: Info{Bounds: [4]float64{-180, -90, 180, 90}}}, nil
		}
		return &fakeReader{info: Info{Bounds: [4]float64{-180, -90, 180, 90}}}, nil
	})

	mr := NewMosaicReader(manifest, pool)
	hm, ok := mr.ReadTile(context.Background(), 2, 1, 1, ResamplingBilinear, 0, false, 0, false)
	if !ok {
		t.Fatal("expected composite read to succeed")
	}
	if hm.Values[0] != 100 {
		t.Fatalf("expected value from the filled child, got %v", hm.Values[0])
	}
}

// emptyReader always reports coverage but returns all-NaN values, standing
// in for a child raster whose tile window is all nodata.
type emptyReader struct{ info Info }

func (e *emptyReader) Info() Info                { return e.info }
func (e *emptyReader) TileExists(z, x, y int) bool { return true }
func (e *emptyReader) ReadTile(ctx context.Context, z, x, y int, resampling Resampling, buffer float64, alignBounds bool, noData float64, unsafe bool) (*Heightmap, bool) {
	size := baseTileSize + int(2*buffer)
	hm := NewHeightmap(size)
	for i := range hm.Values {
		hm.Values[i] = nan()
	}
	return hm, true
}
func (e *emptyReader) Close() error { return nil }

func nan() float64 {
	var f float64
	return f / f * 0 // produces NaN without importing math twice in tests
}
