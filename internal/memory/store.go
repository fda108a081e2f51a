// Package memory implements the warehouse's state module: an in-memory
// collection of entries and a tag registry, with derived views and
// write-through persistence to a storage.Adapter.
package memory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cadre-oss/warehouse/internal/event"
	"github.com/cadre-oss/warehouse/internal/storage"
	"github.com/cadre-oss/warehouse/internal/telemetry"
)

// DefaultTitle is given to entries added without a title.
const DefaultTitle = "Untitled memory"

// DefaultKeyPrefix is prepended to the persisted record keys.
const DefaultKeyPrefix = "memory_warehouse_"

// Store holds entries and tags. It is safe for concurrent use.
//
// Mutations are applied in memory under a lock and then written through to
// storage outside it. Each mutation bumps a version; a snapshot older than
// one already written is skipped, so storage never moves backwards.
type Store struct {
	adapter      *storage.Adapter
	keys         storage.Keys
	bus          *event.Bus
	logger       *telemetry.Logger
	metrics      *telemetry.Metrics
	clock        func() time.Time
	defaultTitle string

	mu      sync.RWMutex
	entries []Entry
	tags    []string
	loading bool
	version uint64
	lastNow time.Time

	persistMu sync.Mutex
	persisted uint64
}

// Option configures a Store.
type Option func(*Store)

// WithBus sets the bus that receives change events.
func WithBus(b *event.Bus) Option {
	return func(s *Store) { s.bus = b }
}

// WithLogger sets the store logger.
func WithLogger(l *telemetry.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithDefaultTitle overrides DefaultTitle.
func WithDefaultTitle(title string) Option {
	return func(s *Store) {
		if title != "" {
			s.defaultTitle = title
		}
	}
}

// WithKeys overrides the persisted record keys.
func WithKeys(keys storage.Keys) Option {
	return func(s *Store) { s.keys = keys }
}

// NewStore creates an empty store backed by adapter. Call Initialize to
// load persisted state.
func NewStore(adapter *storage.Adapter, opts ...Option) *Store {
	s := &Store{
		adapter:      adapter,
		keys:         storage.KeysWithPrefix(DefaultKeyPrefix),
		logger:       telemetry.Discard(),
		metrics:      telemetry.NewMetrics(),
		clock:        time.Now,
		defaultTitle: DefaultTitle,
		entries:      []Entry{},
		tags:         []string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys returns the persisted record keys.
func (s *Store) Keys() storage.Keys {
	return s.keys
}

// Metrics returns the store's metrics collector.
func (s *Store) Metrics() *telemetry.Metrics {
	return s.metrics
}

// now returns a UTC timestamp strictly after every one handed out before.
// Caller holds s.mu.
func (s *Store) now() time.Time {
	t := s.clock().Round(0).UTC()
	if !t.After(s.lastNow) {
		t = s.lastNow.Add(time.Nanosecond)
	}
	s.lastNow = t
	return t
}

// snapshot is the full state to write through. Caller holds s.mu.
type snapshot struct {
	version uint64
	entries []Entry
	tags    []string
}

func (s *Store) snapshotLocked() snapshot {
	s.version++
	return snapshot{
		version: s.version,
		entries: cloneEntries(s.entries),
		tags:    cloneStrings(s.tags),
	}
}

// persist writes both collections concurrently.
func (s *Store) persist(ctx context.Context, snap snapshot) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if snap.version <= s.persisted {
		return nil
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.adapter.Set(gctx, s.keys.Memories, snap.entries)
	})
	g.Go(func() error {
		return s.adapter.Set(gctx, s.keys.Tags, snap.tags)
	})
	err := g.Wait()
	s.metrics.RecordPersist(time.Since(start), err)
	if err != nil {
		return err
	}

	s.persisted = snap.version
	return nil
}

// commit persists snap and turns the result into an Outcome.
func (s *Store) commit(ctx context.Context, snap snapshot) Outcome {
	err := s.persist(ctx, snap)
	if err != nil {
		s.logger.WithTrace(ctx).Error("Failed to persist store", "version", snap.version, "error", err)
		s.emit(ctx, event.StorePersistFailed, map[string]interface{}{
			"version": snap.version,
			"error":   err.Error(),
		})
		return Outcome{Applied: true, Err: err}
	}
	return Outcome{Applied: true, Persisted: true}
}

func (s *Store) emit(ctx context.Context, t event.EventType, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	if tc := telemetry.TraceFromContext(ctx); tc != nil {
		if data == nil {
			data = map[string]interface{}{}
		}
		data["trace_id"] = tc.TraceID
	}
	if err := s.bus.Emit(event.NewEvent(t, data)); err != nil {
		s.logger.WithTrace(ctx).Warn("Event hook failed", "event", string(t), "error", err)
	}
}
