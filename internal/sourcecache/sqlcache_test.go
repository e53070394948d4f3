package sourcecache

import (
	"os"
	"testing"
	"time"
)

// TestSQLCacheRoundTrip exercises the real mattn/go-sqlite3 driver and so
// needs cgo, so it is skipped unless SQLITE_CGO_AVAILABLE is set in the
// environment.
func TestSQLCacheRoundTrip(t *testing.T) {
	if os.Getenv("SQLITE_CGO_AVAILABLE") == "" {
		t.Skip("set SQLITE_CGO_AVAILABLE=1 to run SQLCache tests (requires cgo + libsqlite3)")
	}

	path := t.TempDir() + "/cache.db"
	c, err := OpenSQLCache(path, time.Minute)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	k := Key{SourceID: "a.tif", MeshMethod: "grid", Z: 1, X: 2, Y: 3}
	c.Add(k, Payload{Size: 4, RawHeights: []float64{1, 2, 3, 4}})

	select {
	case <-c.Changed():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for changed signal")
	}

	got := c.Get([]Key{k})
	p, ok := got[k]
	if !ok {
		t.Fatal("expected key to round-trip through SQLite")
	}
	if len(p.RawHeights) != 4 {
		t.Fatalf("expected raw heights to survive gob round-trip, got %v", p.RawHeights)
	}
}
