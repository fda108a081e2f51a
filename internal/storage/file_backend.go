package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const fileExt = ".json"

// FileBackend implements Backend as a directory with one file per key.
// Structure:
//
//	<dir>/
//	  memory_warehouse_memories.json
//	  memory_warehouse_tags.json
type FileBackend struct {
	mu  sync.RWMutex
	dir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the backing directory.
func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, url.PathEscape(key)+fileExt)
}

// Set writes the value atomically (tmp + rename).
func (b *FileBackend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := b.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Get reads a value.
func (b *FileBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Remove deletes a key's file.
func (b *FileBackend) Remove(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(b.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear deletes every key file in the directory. Other files are left alone.
func (b *FileBackend) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Info lists keys and sums file sizes.
func (b *FileBackend) Info(_ context.Context) (Info, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	info := Info{Keys: []string{}}
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return info, nil
		}
		return Info{}, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			return Info{}, err
		}
		info.Keys = append(info.Keys, key)
		info.CurrentSize += fi.Size()
	}
	sort.Strings(info.Keys)
	return info, nil
}

// Close closes the backend (no-op for files)
func (b *FileBackend) Close() error {
	return nil
}
