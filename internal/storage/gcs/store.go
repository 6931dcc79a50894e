// Package gcs provides a cache backend storing one object per entry in Google Cloud Storage.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/JakeFAU/site-insight/internal/cache"
	"github.com/JakeFAU/site-insight/internal/hash/md5"
)

const contentType = "application/json"

var errNotFound = errors.New("object not found")

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	// Prefix namespaces entry objects inside the bucket.
	Prefix string
}

// objectStore is the subset of bucket operations the store needs.
type objectStore interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// Store persists entries as JSON envelopes under <prefix>/<md5(key)>.json.
type Store struct {
	objects objectStore
	prefix  string
	hasher  *md5.Hasher
}

// New creates a GCS-backed store.
func New(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return newStore(&bucketObjects{bucket: client.Bucket(cfg.Bucket)}, cfg.Prefix), nil
}

func newStore(objects objectStore, prefix string) *Store {
	return &Store{
		objects: objects,
		prefix:  strings.Trim(prefix, "/"),
		hasher:  md5.New(),
	}
}

// Name implements cache.Backend.
func (s *Store) Name() string { return "gcs" }

// Load implements cache.Backend.
func (s *Store) Load(ctx context.Context, key string) (cache.Entry, bool, error) {
	data, err := s.objects.Read(ctx, s.objectName(key))
	if errors.Is(err, errNotFound) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, err
	}
	var e cache.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return cache.Entry{}, false, fmt.Errorf("decode entry: %w", err)
	}
	return e, true, nil
}

// Save implements cache.Backend.
func (s *Store) Save(ctx context.Context, e cache.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return s.objects.Write(ctx, s.objectName(e.Key), data)
}

// Remove implements cache.Backend.
func (s *Store) Remove(ctx context.Context, key string) (bool, error) {
	err := s.objects.Delete(ctx, s.objectName(key))
	if errors.Is(err, errNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Purge implements cache.Backend.
func (s *Store) Purge(ctx context.Context) error {
	names, err := s.objects.List(ctx, s.listPrefix())
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := s.objects.Delete(ctx, name); err != nil && !errors.Is(err, errNotFound) {
			return err
		}
	}
	return nil
}

// Entries implements cache.Backend. Objects that vanish or fail to decode are skipped.
func (s *Store) Entries(ctx context.Context) ([]cache.Entry, error) {
	names, err := s.objects.List(ctx, s.listPrefix())
	if err != nil {
		return nil, err
	}
	out := make([]cache.Entry, 0, len(names))
	for _, name := range names {
		data, err := s.objects.Read(ctx, name)
		if err != nil {
			if errors.Is(err, errNotFound) {
				continue
			}
			return nil, err
		}
		var e cache.Entry
		if json.Unmarshal(data, &e) != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) objectName(key string) string {
	name := s.hasher.Hash([]byte(key)) + ".json"
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *Store) listPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + "/"
}

// bucketObjects adapts a storage.BucketHandle to objectStore.
type bucketObjects struct {
	bucket *storage.BucketHandle
}

func (b *bucketObjects) Read(ctx context.Context, name string) ([]byte, error) {
	r, err := b.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", name, err)
	}
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", name, err)
	}
	return data, nil
}

func (b *bucketObjects) Write(ctx context.Context, name string, data []byte) error {
	writer := b.bucket.Object(name).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

func (b *bucketObjects) Delete(ctx context.Context, name string) error {
	err := b.bucket.Object(name).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return errNotFound
	}
	if err != nil {
		return fmt.Errorf("delete object %s: %w", name, err)
	}
	return nil
}

func (b *bucketObjects) List(ctx context.Context, prefix string) ([]string, error) {
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		if strings.HasSuffix(attrs.Name, ".json") {
			names = append(names, attrs.Name)
		}
	}
}
