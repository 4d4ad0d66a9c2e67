package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutThenGetRoundTrips(t *testing.T) {
	s := NewMemoryBlobStore()
	ctx := context.Background()

	key, err := s.Put(ctx, "att-1", []byte("hello"), "text/plain")
	require.NoError(t, err)
	require.Equal(t, "att-1", key)

	content, err := s.Get(ctx, "att-1")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), content)
}

func TestBlobStoreGetOnMissingKeyReturnsNotFound(t *testing.T) {
	s := NewMemoryBlobStore()
	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
}

func TestBlobStoreDeleteRemovesContent(t *testing.T) {
	s := NewMemoryBlobStore()
	ctx := context.Background()
	_, err := s.Put(ctx, "att-1", []byte("hello"), "text/plain")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "att-1"))
	_, err = s.Get(ctx, "att-1")
	require.Error(t, err)
}

func TestBlobStorePutCopiesContentNotAliasesCaller(t *testing.T) {
	s := NewMemoryBlobStore()
	ctx := context.Background()
	original := []byte("hello")
	_, err := s.Put(ctx, "att-1", original, "text/plain")
	require.NoError(t, err)

	original[0] = 'X'
	content, err := s.Get(ctx, "att-1")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), content)
}

func TestIDMappingTablePutThenGetRoundTrips(t *testing.T) {
	table := NewMemoryIDMappingTable()
	ctx := context.Background()

	require.NoError(t, table.Put(ctx, "src-1", "tgt-1"))
	targetID, ok, err := table.Get(ctx, "src-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tgt-1", targetID)
}

func TestIDMappingTableGetOnMissingSourceReturnsFalse(t *testing.T) {
	table := NewMemoryIDMappingTable()
	_, ok, err := table.Get(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIDMappingTableIterateReturnsAllMappings(t *testing.T) {
	table := NewMemoryIDMappingTable()
	ctx := context.Background()
	require.NoError(t, table.Put(ctx, "src-1", "tgt-1"))
	require.NoError(t, table.Put(ctx, "src-2", "tgt-2"))

	all, err := table.Iterate(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"src-1": "tgt-1", "src-2": "tgt-2"}, all)
}
