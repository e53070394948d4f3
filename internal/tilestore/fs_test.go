package tilestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFSStoreRoundTrip(t *testing.T) {
	store := NewFSStore(t.TempDir())
	ctx := context.Background()
	key := Key{Source: "https://example.com/a.tif", Method: "grid", Z: 10, X: 5, Y: 6}

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok, "expected miss before any write")

	require.NoError(t, store.Put(ctx, key, []byte("terrain-bytes")))

	data, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("terrain-bytes"), data)
}

func TestFSStoreLayoutMatchesHexSourcePath(t *testing.T) {
	root := t.TempDir()
	store := NewFSStore(root)
	key := Key{Source: "a", Method: "grid", Z: 1, X: 2, Y: 3}
	require.NoError(t, store.Put(context.Background(), key, []byte("x")))

	// hex("a") == "61"
	want := filepath.Join(root, "61", "grid", "1", "2", "3.terrain")
	_, statErr := os.Stat(want)
	require.NoError(t, statErr)
}
