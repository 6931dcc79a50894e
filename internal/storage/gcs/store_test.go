package gcs

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-insight/internal/cache"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	failAll error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Read(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	data, ok := f.objects[name]
	if !ok {
		return nil, errNotFound
	}
	return append([]byte(nil), data...), nil
}

func (f *fakeObjects) Write(_ context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.objects[name] = append([]byte(nil), data...)
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[name]; !ok {
		return errNotFound
	}
	delete(f.objects, name)
	return nil
}

func (f *fakeObjects) List(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for name := range f.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	objects := newFakeObjects()
	s := newStore(objects, "/analysis-cache/")
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, cache.Entry{Key: "k1", Value: []byte("v1"), CreatedAt: time.Now().UTC()}))
	require.Len(t, objects.objects, 1)
	for name := range objects.objects {
		require.True(t, strings.HasPrefix(name, "analysis-cache/"))
		require.True(t, strings.HasSuffix(name, ".json"))
	}

	e, ok, err := s.Load(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", string(e.Value))

	_, ok, err = s.Load(ctx, "nope")
	require.NoError(t, err)
	require.False(t, ok)

	removed, err := s.Remove(ctx, "k1")
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = s.Remove(ctx, "k1")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestStoreEntriesAndPurgeStayInsidePrefix(t *testing.T) {
	t.Parallel()

	objects := newFakeObjects()
	objects.objects["other/keep.json"] = []byte(`{"key":"foreign"}`)
	s := newStore(objects, "analysis-cache")
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, cache.Entry{Key: "a"}))
	require.NoError(t, s.Save(ctx, cache.Entry{Key: "b"}))

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, s.Purge(ctx))
	require.Equal(t, map[string][]byte{"other/keep.json": []byte(`{"key":"foreign"}`)}, objects.objects)
}

func TestStoreSurfacesBackendErrors(t *testing.T) {
	t.Parallel()

	objects := newFakeObjects()
	objects.failAll = errors.New("permission denied")
	s := newStore(objects, "")
	ctx := context.Background()

	_, _, err := s.Load(ctx, "k")
	require.Error(t, err)
	require.Error(t, s.Save(ctx, cache.Entry{Key: "k"}))

	c := cache.New(s, cache.Options{})
	_, ok := c.Get(ctx, "k")
	require.False(t, ok)
	stats := c.Stats(ctx)
	require.Equal(t, int64(1), stats.Misses)
	require.GreaterOrEqual(t, stats.Errors, int64(2))
}
