// Package local implements a file-per-key cache backend on the local filesystem.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/site-insight/internal/cache"
	"github.com/JakeFAU/site-insight/internal/hash/md5"
)

const fileExt = ".cache"

// Config captures the parameters for the local filesystem store.
type Config struct {
	// BaseDir is the directory holding one file per entry.
	BaseDir string `mapstructure:"dir" yaml:"dir"`
}

// Store persists each entry as a JSON envelope in <md5(key)>.cache.
type Store struct {
	baseDir string
	hasher  *md5.Hasher
}

// New creates a new filesystem-backed store, creating BaseDir if needed.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	// Check for write permissions.
	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &Store{
		baseDir: filepath.Clean(cfg.BaseDir),
		hasher:  md5.New(),
	}, nil
}

// Name implements cache.Backend.
func (s *Store) Name() string { return "file" }

// Load implements cache.Backend.
func (s *Store) Load(_ context.Context, key string) (cache.Entry, bool, error) {
	e, err := s.read(s.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, err
	}
	return e, true, nil
}

// Save implements cache.Backend. The envelope is written to a temp file and renamed.
func (s *Store) Save(_ context.Context, e cache.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	path := s.pathFor(e.Key)
	tmp, err := os.CreateTemp(s.baseDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename entry file: %w", err)
	}
	return nil
}

// Remove implements cache.Backend.
func (s *Store) Remove(_ context.Context, key string) (bool, error) {
	err := os.Remove(s.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove entry file: %w", err)
	}
	return true, nil
}

// Purge implements cache.Backend.
func (s *Store) Purge(_ context.Context) error {
	paths, err := s.list()
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove entry file: %w", err)
		}
	}
	return nil
}

// Entries implements cache.Backend. Unreadable files are skipped.
func (s *Store) Entries(_ context.Context) ([]cache.Entry, error) {
	paths, err := s.list()
	if err != nil {
		return nil, err
	}
	out := make([]cache.Entry, 0, len(paths))
	for _, p := range paths {
		e, err := s.read(p)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) pathFor(key string) string {
	return filepath.Join(s.baseDir, s.hasher.Hash([]byte(key))+fileExt)
}

func (s *Store) list() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.baseDir, "*"+fileExt))
	if err != nil {
		return nil, fmt.Errorf("list entry files: %w", err)
	}
	return paths, nil
}

func (s *Store) read(path string) (cache.Entry, error) {
	// Clean the path and verify it's within baseDir to prevent path traversal.
	clean := filepath.Clean(path)
	if !strings.HasPrefix(clean, s.baseDir+string(filepath.Separator)) {
		return cache.Entry{}, fmt.Errorf("path traversal detected")
	}
	data, err := os.ReadFile(clean) // #nosec G304 -- path is confined to baseDir above.
	if err != nil {
		return cache.Entry{}, err
	}
	var e cache.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return cache.Entry{}, fmt.Errorf("decode entry %s: %w", filepath.Base(path), err)
	}
	return e, nil
}
