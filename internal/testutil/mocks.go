package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cadre-oss/warehouse/internal/config"
	"github.com/cadre-oss/warehouse/internal/storage"
	"github.com/cadre-oss/warehouse/internal/telemetry"
)

// ErrInjected is returned by FailingBackend when a failure is scripted.
var ErrInjected = errors.New("injected storage failure")

// FailingBackend wraps a MemoryBackend and fails operations on demand.
type FailingBackend struct {
	*storage.MemoryBackend

	mu       sync.Mutex
	FailSet  bool
	FailGet  bool
	FailKeys map[string]bool // when non-empty, only these keys fail
	Delay    time.Duration   // applied to Set before writing
	SetCalls []string

	gets int
	gate chan struct{}
}

// NewFailingBackend creates a backend that succeeds until told otherwise.
func NewFailingBackend() *FailingBackend {
	return &FailingBackend{MemoryBackend: storage.NewMemoryBackend()}
}

// SetFailures scripts Set and Get failures.
func (b *FailingBackend) SetFailures(set, get bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FailSet = set
	b.FailGet = get
}

func (b *FailingBackend) fails(flag bool, key string) bool {
	if !flag {
		return false
	}
	if len(b.FailKeys) == 0 {
		return true
	}
	return b.FailKeys[key]
}

// Set records the call, then writes or fails.
func (b *FailingBackend) Set(ctx context.Context, key string, value []byte) error {
	b.mu.Lock()
	b.SetCalls = append(b.SetCalls, key)
	fail := b.fails(b.FailSet, key)
	delay := b.Delay
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return ErrInjected
	}
	return b.MemoryBackend.Set(ctx, key, value)
}

// HoldGets makes every Get block until release is called. Release is
// safe to call more than once.
func (b *FailingBackend) HoldGets() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gate = gate
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.gate = nil
			b.mu.Unlock()
			close(gate)
		})
	}
}

// GetCount returns the number of Get calls started so far, including
// ones still held.
func (b *FailingBackend) GetCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets
}

// Get reads or fails, after waiting on HoldGets if set.
func (b *FailingBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	b.gets++
	fail := b.fails(b.FailGet, key)
	gate := b.gate
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}

	if fail {
		return nil, false, ErrInjected
	}
	return b.MemoryBackend.Get(ctx, key)
}

// SetCount returns the number of Set calls so far.
func (b *FailingBackend) SetCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.SetCalls)
}

// FakeClock is a manually advanced clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock starts a clock at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestLogger creates a verbose logger for tests.
func TestLogger() *telemetry.Logger {
	return telemetry.NewLogger(true)
}

// TestConfig returns a minimal in-memory config for testing.
func TestConfig() *config.Config {
	return &config.Config{
		Name:    "test-warehouse",
		Version: "1.0",
		Storage: config.StorageConfig{
			Driver:    "memory",
			KeyPrefix: config.DefaultKeyPrefix,
		},
		Memory: config.MemoryConfig{
			DefaultTitle: config.DefaultTitle,
		},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "text",
		},
	}
}
