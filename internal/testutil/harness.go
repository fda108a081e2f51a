package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cadre-oss/warehouse/internal/config"
	"github.com/cadre-oss/warehouse/internal/event"
	"github.com/cadre-oss/warehouse/internal/memory"
	"github.com/cadre-oss/warehouse/internal/storage"
	"github.com/cadre-oss/warehouse/internal/telemetry"
)

// TestHarness provides everything needed for store tests:
// config, a scriptable backend, a store, events and assertion helpers.
type TestHarness struct {
	T        *testing.T
	Config   *config.Config
	Backend  *FailingBackend
	Adapter  *storage.Adapter
	Store    *memory.Store
	EventBus *event.Bus
	Logger   *telemetry.Logger
	Metrics  *telemetry.Metrics
	Clock    *FakeClock

	mu     sync.Mutex
	events []event.Event
}

// NewTestHarness creates an initialized store over an in-memory backend.
// The clock starts at a fixed time and only moves when advanced.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	logger := TestLogger()
	bus := event.NewBus(logger)
	backend := NewFailingBackend()

	h := &TestHarness{
		T:        t,
		Config:   TestConfig(),
		Backend:  backend,
		EventBus: bus,
		Logger:   logger,
		Metrics:  telemetry.NewMetrics(),
		Clock:    NewFakeClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)),
	}
	h.Adapter = storage.NewAdapter(backend, storage.WithLogger(logger))

	// Capture events via a hook
	bus.Register(&eventCapture{harness: h})

	h.Store = h.NewStore()
	h.Store.Initialize(context.Background())
	return h
}

// NewStore builds an uninitialized store sharing the harness backend,
// bus, clock and metrics.
func (h *TestHarness) NewStore() *memory.Store {
	return memory.NewStore(h.Adapter,
		memory.WithBus(h.EventBus),
		memory.WithLogger(h.Logger),
		memory.WithMetrics(h.Metrics),
		memory.WithClock(h.Clock.Now),
		memory.WithDefaultTitle(h.Config.Memory.DefaultTitle),
		memory.WithKeys(storage.KeysWithPrefix(h.Config.Storage.KeyPrefix)),
	)
}

// Reload initializes a fresh store from whatever the backend holds.
func (h *TestHarness) Reload() *memory.Store {
	h.T.Helper()
	s := h.NewStore()
	s.Initialize(context.Background())
	return s
}

// Events returns a copy of the captured events.
func (h *TestHarness) Events() []event.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]event.Event, len(h.events))
	copy(out, h.events)
	return out
}

// AssertEventEmitted checks that an event with the given type was emitted.
func (h *TestHarness) AssertEventEmitted(eventType event.EventType) {
	h.T.Helper()
	if h.EventCount(eventType) == 0 {
		h.T.Errorf("expected event %q to be emitted", eventType)
	}
}

// AssertNoEvent checks that an event type was NOT emitted.
func (h *TestHarness) AssertNoEvent(eventType event.EventType) {
	h.T.Helper()
	if h.EventCount(eventType) > 0 {
		h.T.Errorf("expected event %q NOT to be emitted, but it was", eventType)
	}
}

// EventCount returns the number of events with the given type.
func (h *TestHarness) EventCount(eventType event.EventType) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := 0
	for _, e := range h.events {
		if e.Type == eventType {
			count++
		}
	}
	return count
}

// eventCapture is a blocking hook that records events.
type eventCapture struct {
	harness *TestHarness
}

func (c *eventCapture) Name() string                 { return "test-capture" }
func (c *eventCapture) Matches(event.EventType) bool { return true } // match all
func (c *eventCapture) IsBlocking() bool             { return true } // sync for tests

func (c *eventCapture) Handle(ev event.Event) error {
	c.harness.mu.Lock()
	defer c.harness.mu.Unlock()
	c.harness.events = append(c.harness.events, ev)
	return nil
}
