package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryBackend implements Backend in process memory. Values are copied in
// and out so callers cannot alias stored bytes.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

// Set stores a value.
func (b *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = append([]byte(nil), value...)
	return nil
}

// Get retrieves a value.
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Remove deletes a key.
func (b *MemoryBackend) Remove(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

// Clear deletes all keys.
func (b *MemoryBackend) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make(map[string][]byte)
	return nil
}

// Info reports keys in sorted order and the total value size.
func (b *MemoryBackend) Info(_ context.Context) (Info, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	info := Info{Keys: make([]string, 0, len(b.data))}
	for k, v := range b.data {
		info.Keys = append(info.Keys, k)
		info.CurrentSize += int64(len(v))
	}
	sort.Strings(info.Keys)
	return info, nil
}

// Close closes the backend (no-op for memory)
func (b *MemoryBackend) Close() error {
	return nil
}
