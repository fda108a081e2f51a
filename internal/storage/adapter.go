package storage

import (
	"context"
	"encoding/json"
	"reflect"

	werrors "github.com/cadre-oss/warehouse/internal/errors"
	"github.com/cadre-oss/warehouse/internal/telemetry"
)

// Adapter stores JSON-encoded values in a Backend.
//
// Get never fails: an absent key, a backend read error and an undecodable
// value all report false and leave out untouched. Set, Remove and Clear
// return a storage error (code STORAGE_ERROR or STORAGE_QUOTA) on failure.
type Adapter struct {
	backend Backend
	logger  *telemetry.Logger
	limit   int64
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithLogger sets the logger used for read diagnostics.
func WithLogger(l *telemetry.Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithLimit rejects writes that would grow stored data past limit bytes.
// A limit of 0 disables the check.
func WithLimit(limit int64) AdapterOption {
	return func(a *Adapter) {
		a.limit = limit
	}
}

// NewAdapter wraps a backend.
func NewAdapter(backend Backend, opts ...AdapterOption) *Adapter {
	a := &Adapter{backend: backend, logger: telemetry.Discard()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Backend returns the underlying backend.
func (a *Adapter) Backend() Backend {
	return a.backend
}

// Set encodes value as JSON and stores it under key.
func (a *Adapter) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return werrors.StorageError("encode", key, err)
	}

	if a.limit > 0 {
		if err := a.checkQuota(ctx, key, int64(len(data))); err != nil {
			return err
		}
	}

	if err := a.backend.Set(ctx, key, data); err != nil {
		return werrors.StorageError("write", key, err)
	}
	return nil
}

func (a *Adapter) checkQuota(ctx context.Context, key string, size int64) error {
	info, err := a.backend.Info(ctx)
	if err != nil {
		return werrors.StorageError("stat", key, err)
	}
	var existing int64
	if old, ok, err := a.backend.Get(ctx, key); err == nil && ok {
		existing = int64(len(old))
	}

	total := info.CurrentSize - existing + size
	if total > a.limit {
		return werrors.QuotaExceeded(key, total, a.limit).
			WithSuggestion("Raise storage.limit_bytes or delete entries")
	}
	return nil
}

// Get decodes the value under key into out and reports whether it did.
func (a *Adapter) Get(ctx context.Context, key string, out any) bool {
	data, ok, err := a.backend.Get(ctx, key)
	if err != nil {
		a.logger.Debug("storage read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}

	dst := reflect.ValueOf(out)
	if dst.Kind() != reflect.Pointer || dst.IsNil() {
		return false
	}
	// Decode into a fresh value so a partial decode never leaks into out.
	fresh := reflect.New(dst.Elem().Type())
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		a.logger.Debug("storage value undecodable", "key", key, "error", err)
		return false
	}
	dst.Elem().Set(fresh.Elem())
	return true
}

// Remove deletes key.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	if err := a.backend.Remove(ctx, key); err != nil {
		return werrors.StorageError("remove", key, err)
	}
	return nil
}

// Clear deletes every key.
func (a *Adapter) Clear(ctx context.Context) error {
	if err := a.backend.Clear(ctx); err != nil {
		return werrors.StorageError("clear", "", err)
	}
	return nil
}

// Info reports storage usage, including the configured limit.
func (a *Adapter) Info(ctx context.Context) (Info, error) {
	info, err := a.backend.Info(ctx)
	if err != nil {
		return Info{}, werrors.StorageError("info", "", err)
	}
	info.LimitSize = a.limit
	return info, nil
}

// Close closes the backend.
func (a *Adapter) Close() error {
	return a.backend.Close()
}
