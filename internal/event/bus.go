package event

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Bus fans store change events out to hooks.
//
// Blocking hooks run in registration order on the emitting goroutine; the
// first failure ends dispatch of that event. Non-blocking hooks run on their
// own goroutines, their failures and panics are logged, and Wait blocks until
// they finish. A nil *Bus ignores every call.
type Bus struct {
	mu      sync.RWMutex
	hooks   []Hook
	enabled bool
	logger  Logger

	inflight sync.WaitGroup
	emitted  atomic.Uint64
}

// Logger is the subset of telemetry.Logger the bus needs.
type Logger interface {
	Warn(msg string, keyvals ...interface{})
}

// NewBus creates an enabled bus. logger may be nil.
func NewBus(logger Logger) *Bus {
	return &Bus{enabled: true, logger: logger}
}

// Register appends a hook.
func (b *Bus) Register(h Hook) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = append(b.hooks, h)
}

// Unregister removes the first hook with the given name.
func (b *Bus) Unregister(name string) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, h := range b.hooks {
		if h.Name() == name {
			b.hooks = append(b.hooks[:i:i], b.hooks[i+1:]...)
			return true
		}
	}
	return false
}

// remove drops h itself, leaving other hooks with the same name in place.
func (b *Bus) remove(h Hook) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, registered := range b.hooks {
		if registered == h {
			b.hooks = append(b.hooks[:i:i], b.hooks[i+1:]...)
			return true
		}
	}
	return false
}

// HookNames lists registered hooks in dispatch order.
func (b *Bus) HookNames() []string {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, len(b.hooks))
	for i, h := range b.hooks {
		names[i] = h.Name()
	}
	return names
}

// SetEnabled pauses or resumes dispatch. Events emitted while disabled are
// dropped.
func (b *Bus) SetEnabled(enabled bool) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

// Emitted returns how many events have been dispatched.
func (b *Bus) Emitted() uint64 {
	if b == nil {
		return 0
	}
	return b.emitted.Load()
}

// Emit dispatches ev to every matching hook.
func (b *Bus) Emit(ev Event) error {
	if b == nil {
		return nil
	}

	b.mu.RLock()
	if !b.enabled {
		b.mu.RUnlock()
		return nil
	}
	hooks := append([]Hook(nil), b.hooks...)
	b.mu.RUnlock()

	b.emitted.Add(1)
	for _, h := range hooks {
		if !h.Matches(ev.Type) {
			continue
		}
		if !h.IsBlocking() {
			b.dispatchAsync(h, ev)
			continue
		}
		if err := h.Handle(ev); err != nil {
			return fmt.Errorf("blocking hook %s failed on %s: %w", h.Name(), ev.Type, err)
		}
	}
	return nil
}

func (b *Bus) dispatchAsync(h Hook, ev Event) {
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				b.warn("Non-blocking hook panicked", h, ev, "panic", r)
			}
		}()
		if err := h.Handle(ev); err != nil {
			b.warn("Non-blocking hook failed", h, ev, "error", err)
		}
	}()
}

func (b *Bus) warn(msg string, h Hook, ev Event, key string, val interface{}) {
	if b.logger == nil {
		return
	}
	b.logger.Warn(msg, "hook", h.Name(), "event", string(ev.Type), key, val)
}

// Wait blocks until all non-blocking hooks started so far have returned.
func (b *Bus) Wait() {
	if b == nil {
		return
	}
	b.inflight.Wait()
}

// WaitTimeout is Wait with an upper bound. It reports whether every hook
// finished in time.
func (b *Bus) WaitTimeout(d time.Duration) bool {
	if b == nil {
		return true
	}
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
