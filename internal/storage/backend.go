package storage

import "context"

// Backend is a byte-oriented key-value facility.
type Backend interface {
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Get returns the value under key. found is false if the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Clear deletes all keys.
	Clear(ctx context.Context) error
	// Info reports the stored keys and their total size.
	Info(ctx context.Context) (Info, error)
	// Close releases any resources held by the backend.
	Close() error
}

// Info describes storage usage. Sizes are in bytes of stored values;
// LimitSize is 0 when no limit is configured.
type Info struct {
	Keys        []string `json:"keys"`
	CurrentSize int64    `json:"currentSize"`
	LimitSize   int64    `json:"limitSize"`
}

// Keys names the records the memory store persists.
type Keys struct {
	Memories string
	Tags     string
	Settings string // reserved
}

// KeysWithPrefix returns the record keys under the given prefix.
func KeysWithPrefix(prefix string) Keys {
	return Keys{
		Memories: prefix + "memories",
		Tags:     prefix + "tags",
		Settings: prefix + "settings",
	}
}
