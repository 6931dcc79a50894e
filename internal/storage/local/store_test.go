// Package local_test tests the local filesystem cache store.
package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-insight/internal/cache"
	"github.com/JakeFAU/site-insight/internal/hash/md5"
	"github.com/JakeFAU/site-insight/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "cache")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})

	t.Run("BaseDirNotWritable", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores directory permissions")
		}
		tempDir := t.TempDir()
		// #nosec G302 -- directory permissions adjusted intentionally for test coverage.
		require.NoError(t, os.Chmod(tempDir, 0o500))
		_, err := local.New(local.Config{BaseDir: tempDir})
		assert.Error(t, err)
		// #nosec G302 -- reverting permissions to allow cleanup in the test environment.
		require.NoError(t, os.Chmod(tempDir, 0o700))
	})
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := cache.Entry{
		Key:            "https://example.com:full",
		Value:          []byte(`{"status":"completed"}`),
		CreatedAt:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt:      &exp,
		AccessCount:    2,
		LastAccessedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, entry))

	name := md5.New().Hash([]byte(entry.Key)) + ".cache"
	_, err = os.Stat(filepath.Join(dir, name))
	require.NoError(t, err)

	got, ok, err := store.Load(ctx, entry.Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.Value, got.Value)
	assert.Equal(t, int64(2), got.AccessCount)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, exp.Equal(*got.ExpiresAt))

	_, ok, err = store.Load(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreEntriesSkipCorruptFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, cache.Entry{Key: "a", Value: []byte("1")}))
	require.NoError(t, store.Save(ctx, cache.Entry{Key: "b", Value: []byte("2")}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.cache"), []byte("{not json"), 0o600))

	entries, err := store.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	removed, err := store.Remove(ctx, "a")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.Remove(ctx, "a")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, store.Purge(ctx))
	matches, err := filepath.Glob(filepath.Join(dir, "*.cache"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStoreWithCacheSemantics(t *testing.T) {
	t.Parallel()

	store, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	c := cache.New(store, cache.Options{MaxSize: 2})
	ctx := context.Background()

	require.True(t, c.Set(ctx, "a", []byte("1"), 0))
	require.True(t, c.Set(ctx, "b", []byte("2"), 0))
	_, ok := c.Get(ctx, "a")
	require.True(t, ok)
	require.True(t, c.Set(ctx, "c", []byte("3"), 0))

	assert.Equal(t, []string{"a", "c"}, c.Keys(ctx))
	assert.Equal(t, "file", c.Stats(ctx).BackendType)
}
