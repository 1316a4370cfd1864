package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func newStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), 0, nil)
	require.NoError(t, err)
	return store
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	var out payload
	assert.False(t, store.Get(ctx, "missing", &out))

	store.Put(ctx, "abc123", payload{Name: "x", Score: 7})
	require.True(t, store.Get(ctx, "abc123", &out))
	assert.Equal(t, payload{Name: "x", Score: 7}, out)
}

func TestFileStoreExpiration(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	created := time.Now()
	store.now = func() time.Time { return created }
	store.Put(ctx, "entry", payload{Name: "stale"})

	// Still fresh just inside the TTL
	store.now = func() time.Time { return created.Add(DefaultTTL - time.Minute) }
	var out payload
	assert.True(t, store.Get(ctx, "entry", &out))

	// Expired entries are misses and removed on read
	store.now = func() time.Time { return created.Add(DefaultTTL + time.Minute) }
	assert.False(t, store.Get(ctx, "entry", &out))
	_, err := os.Stat(store.path("entry"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreCorruptedEntry(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(store.path("bad"), []byte("{not json"), 0o644))

	var out payload
	assert.False(t, store.Get(ctx, "bad", &out), "corrupted entry is a miss")
	_, err := os.Stat(store.path("bad"))
	assert.True(t, os.IsNotExist(err), "corrupted entry is removed")
}

func TestFileStorePurgeExpired(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	created := time.Now()
	store.now = func() time.Time { return created }
	store.Put(ctx, "old", payload{Name: "old"})

	store.now = func() time.Time { return created.Add(DefaultTTL + time.Hour) }
	store.Put(ctx, "new", payload{Name: "new"})

	removed, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	var out payload
	assert.True(t, store.Get(ctx, "new", &out))
}

func TestFileStoreClearAll(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	store.Put(ctx, "a", payload{Name: "a"})
	store.Put(ctx, "b", payload{Name: "b"})

	stats, err := store.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EntriesRemoved)
	assert.Greater(t, stats.BytesFreed, int64(0))

	after, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, after.EntryCount)
}

func TestFileStoreStatsAndEntries(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	current := time.Now()
	store.now = func() time.Time { return current }
	store.Put(ctx, "first", payload{Name: "first"})
	current = current.Add(time.Hour)
	store.Put(ctx, "second", payload{Name: "second"})

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EntryCount)
	assert.Greater(t, stats.TotalSizeBytes, int64(0))

	entries, err := store.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Key, "entries are listed newest first")
	assert.False(t, entries[0].Expired)
}

func TestFileStoreWriteFailureSwallowed(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, 0, nil)
	require.NoError(t, err)

	// Marshal failure: channels have no JSON encoding. Put must not panic.
	store.Put(context.Background(), "unmarshalable", make(chan int))

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Empty(t, files)
}
