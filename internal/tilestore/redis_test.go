package tilestore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)

	ctx := context.Background()
	key := Key{Source: "a.tif", Method: "delatin", Z: 3, X: 1, Y: 2}

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Put(ctx, key, []byte("mesh-bytes")))

	data, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("mesh-bytes"), data)
}

func TestNewRedisStoreFailsOnBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url")
	require.Error(t, err)
}
