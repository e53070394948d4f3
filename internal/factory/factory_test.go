package factory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jcom-dev/ctod-go/internal/cog"
	"github.com/jcom-dev/ctod-go/internal/mesh"
	"github.com/jcom-dev/ctod-go/internal/sourcecache"
)

type flatReader struct {
	size   int
	height float64
}

func (r flatReader) Info() cog.Info { return cog.Info{Bounds: [4]float64{-180, -90, 180, 90}} }
func (r flatReader) TileExists(z, x, y int) bool { return true }
func (r flatReader) ReadTile(ctx context.Context, z, x, y int, resampling cog.Resampling, buffer float64, alignBounds bool, noData float64, unsafe bool) (*cog.Heightmap, bool) {
	hm := cog.NewHeightmap(r.size)
	for i := range hm.Values {
		hm.Values[i] = r.height
	}
	return hm, true
}
func (r flatReader) Close() error { return nil }

type recordingGenerator struct {
	mu    sync.Mutex
	calls []*TerrainRequest
}

func newRecordingGenerator() *recordingGenerator {
	return &recordingGenerator{}
}

func (g *recordingGenerator) Generate(req *TerrainRequest) ([]byte, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()
	return []byte("terrain-bytes"), nil
}

func (g *recordingGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func newTestFactory(t *testing.T, gen Generator) *Factory {
	t.Helper()
	pool := cog.NewPool(4, func(sourceID string) (cog.Reader, error) {
		return flatReader{size: 256, height: 10}, nil
	})
	cache := sourcecache.NewMemCache(time.Minute)
	f := New(Config{
		Pool:          pool,
		Cache:         cache,
		Generator:     gen,
		Workers:       8,
		SweepInterval: time.Hour, // keep the sweeper out of the test's way
	})
	t.Cleanup(f.Shutdown)
	return f
}

func TestHandleResolvesOnceAllNineSourceTilesLand(t *testing.T) {
	gen := newRecordingGenerator()
	f := newTestFactory(t, gen)

	req := NewTerrainRequest("test.tif", mesh.MethodGrid, 10, 528, 336, BuildParams{
		Resampling: cog.ResamplingBilinear,
	})
	require.Len(t, req.WantedKeys, 9, "interior tile should fan out to self + 8 neighbors")

	f.Handle(context.Background(), req)

	select {
	case res := <-req.Done():
		require.NoError(t, res.Err)
		require.Equal(t, []byte("terrain-bytes"), res.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for terrain request to resolve")
	}

	require.Equal(t, 1, gen.callCount())
	require.Len(t, req.payloadsSnapshot(), 9)
}

func TestHandleRootTileHasFewerNeighbors(t *testing.T) {
	gen := newRecordingGenerator()
	f := newTestFactory(t, gen)

	req := NewTerrainRequest("test.tif", mesh.MethodGrid, 0, 0, 0, BuildParams{})
	require.Less(t, len(req.WantedKeys), 9, "z=0 has no row above or below to neighbor into")

	f.Handle(context.Background(), req)

	select {
	case res := <-req.Done():
		require.NoError(t, res.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for root tile to resolve")
	}
}

func TestHandleDedupsOverlappingNeighborBuilds(t *testing.T) {
	gen := newRecordingGenerator()
	f := newTestFactory(t, gen)

	reqA := NewTerrainRequest("test.tif", mesh.MethodGrid, 10, 528, 336, BuildParams{})
	reqB := NewTerrainRequest("test.tif", mesh.MethodGrid, 10, 529, 336, BuildParams{}) // shares several neighbors with reqA

	f.Handle(context.Background(), reqA)
	f.Handle(context.Background(), reqB)

	for _, req := range []*TerrainRequest{reqA, reqB} {
		select {
		case res := <-req.Done():
			require.NoError(t, res.Err)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for overlapping terrain requests to resolve")
		}
	}
}

func TestSweepOncePinsWantedKeysOfPendingRequests(t *testing.T) {
	pool := cog.NewPool(4, func(sourceID string) (cog.Reader, error) {
		return flatReader{size: 256, height: 10}, nil
	})
	cache := sourcecache.NewMemCache(5 * time.Millisecond)
	f := New(Config{
		Pool:          pool,
		Cache:         cache,
		Generator:     newRecordingGenerator(),
		Workers:       4,
		SweepInterval: time.Hour,
	})
	t.Cleanup(f.Shutdown)

	req := NewTerrainRequest("slow.tif", mesh.MethodGrid, 5, 10, 10, BuildParams{})
	f.mu.Lock()
	f.pending[req.Key] = req
	f.mu.Unlock()

	key := req.WantedKeys[0]
	cache.Add(key, sourcecache.Payload{OutOfBounds: true})
	time.Sleep(20 * time.Millisecond) // let the entry age past the 5ms TTL

	f.sweepOnce()

	known := cache.KnownKeys([]sourcecache.Key{key})
	require.True(t, known[key], "a key named by a pending request must not be swept even if expired")
}
