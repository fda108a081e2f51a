// Package warehouse provides a public API for the memory warehouse.
//
// Example usage:
//
//	import "github.com/cadre-oss/warehouse/pkg/warehouse"
//
//	w, err := warehouse.Open(".")
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//
//	entry, out := w.Store().AddEntry(ctx, warehouse.NewEntry{Title: "Standup", Tags: []string{"work"}})
//	if out.Unsaved() {
//		log.Printf("saved in memory only: %v", out.Err)
//	}
package warehouse

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cadre-oss/warehouse/internal/config"
	"github.com/cadre-oss/warehouse/internal/event"
	"github.com/cadre-oss/warehouse/internal/memory"
	"github.com/cadre-oss/warehouse/internal/storage"
	"github.com/cadre-oss/warehouse/internal/telemetry"
)

const hookDrainTimeout = 5 * time.Second

// Re-exported store types.
type (
	Store     = memory.Store
	Entry     = memory.Entry
	NewEntry  = memory.NewEntry
	Patch     = memory.Patch
	Outcome   = memory.Outcome
	Event     = event.Event
	EventType = event.EventType
	Config    = config.Config
)

// Options override the project configuration.
type Options struct {
	ConfigFile string    // explicit config file; default <dir>/warehouse.yaml
	Driver     string    // storage driver override
	Path       string    // storage path override
	LogLevel   string    // logging level override
	LogOutput  io.Writer // default os.Stderr
}

// Warehouse owns a configured, initialized store and its resources.
type Warehouse struct {
	dir      string
	cfg      *config.Config
	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
	exporter *telemetry.JSONLExporter
	bus      *event.Bus
	adapter  *storage.Adapter
	store    *memory.Store
}

// Open loads dir/warehouse.yaml (or defaults) and returns an initialized
// warehouse.
func Open(dir string) (*Warehouse, error) {
	return OpenWithOptions(context.Background(), dir, Options{})
}

// OpenWithOptions is Open with overrides.
func OpenWithOptions(ctx context.Context, dir string, opts Options) (*Warehouse, error) {
	cfgPath := opts.ConfigFile
	if cfgPath == "" {
		cfgPath = filepath.Join(dir, config.FileName)
	}
	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := ApplyOverrides(cfg, opts); err != nil {
		return nil, err
	}
	return OpenConfig(ctx, dir, cfg, opts.LogOutput)
}

// ApplyOverrides applies driver, path and log level overrides to cfg and
// revalidates it. Changing the driver without a path resets the path to
// the new driver's default.
func ApplyOverrides(cfg *config.Config, opts Options) error {
	if opts.Driver != "" && opts.Driver != cfg.Storage.Driver {
		cfg.Storage.Driver = opts.Driver
		cfg.Storage.Path = ""
	}
	if opts.Path != "" {
		cfg.Storage.Path = opts.Path
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	config.ApplyDefaults(cfg)
	return config.Validate(cfg)
}

// OpenConfig builds a warehouse from an already loaded config. Relative
// paths in cfg resolve against dir.
func OpenConfig(ctx context.Context, dir string, cfg *config.Config, logOutput io.Writer) (*Warehouse, error) {
	if logOutput == nil {
		logOutput = os.Stderr
	}

	w := &Warehouse{dir: dir, cfg: cfg}

	w.logger = telemetry.NewLoggerTo(logOutput, cfg.Logging.Level, cfg.Logging.Format)
	if cfg.Logging.File != "" {
		if err := w.logger.WithFile(ResolvePath(dir, cfg.Logging.File)); err != nil {
			return nil, err
		}
	}

	w.metrics = telemetry.NewMetrics()
	if cfg.Metrics.Path != "" {
		exp, err := telemetry.OpenJSONLExporter(ResolvePath(dir, cfg.Metrics.Path))
		if err != nil {
			w.logger.Close()
			return nil, err
		}
		w.exporter = exp
		w.metrics.SetExporter(exp)
	}

	bus, err := event.NewBusFromConfig(cfg.Hooks, w.logger)
	if err != nil {
		w.closeSinks()
		return nil, fmt.Errorf("failed to build hooks: %w", err)
	}
	w.bus = bus

	storageCfg := cfg.Storage
	if storageCfg.Driver != "memory" && storageCfg.Path != ":memory:" {
		storageCfg.Path = ResolvePath(dir, storageCfg.Path)
	}
	backend, err := storage.Open(storageCfg)
	if err != nil {
		w.closeSinks()
		return nil, err
	}

	w.adapter = storage.NewAdapter(backend,
		storage.WithLogger(w.logger),
		storage.WithLimit(cfg.Storage.LimitBytes),
	)
	w.store = memory.NewStore(w.adapter,
		memory.WithBus(w.bus),
		memory.WithLogger(w.logger),
		memory.WithMetrics(w.metrics),
		memory.WithDefaultTitle(cfg.Memory.DefaultTitle),
		memory.WithKeys(storage.KeysWithPrefix(cfg.Storage.KeyPrefix)),
	)
	w.store.Initialize(ctx)

	w.logger.Debug("Warehouse opened",
		"driver", cfg.Storage.Driver,
		"path", storageCfg.Path,
		"entries", w.store.Count(),
	)
	return w, nil
}

// ResolvePath resolves a relative path against dir.
func ResolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Store returns the memory store.
func (w *Warehouse) Store() *memory.Store { return w.store }

// Bus returns the change event bus. Use Bus().Subscribe to observe changes.
func (w *Warehouse) Bus() *event.Bus { return w.bus }

// Config returns the effective configuration.
func (w *Warehouse) Config() *config.Config { return w.cfg }

// Adapter returns the storage adapter.
func (w *Warehouse) Adapter() *storage.Adapter { return w.adapter }

// Metrics returns the store metrics.
func (w *Warehouse) Metrics() *telemetry.Metrics { return w.metrics }

// Logger returns the warehouse logger.
func (w *Warehouse) Logger() *telemetry.Logger { return w.logger }

// Dir returns the project directory.
func (w *Warehouse) Dir() string { return w.dir }

// Flush exports a metrics snapshot labelled with label.
func (w *Warehouse) Flush(label string) {
	w.metrics.Flush(label, map[string]string{"driver": w.cfg.Storage.Driver})
}

// Close waits for in-flight async hooks, then releases the backend, the
// metrics exporter and log files.
func (w *Warehouse) Close() error {
	if !w.bus.WaitTimeout(hookDrainTimeout) {
		w.logger.Warn("async hooks still running at close", "timeout", hookDrainTimeout)
	}
	err := w.adapter.Close()
	w.closeSinks()
	return err
}

func (w *Warehouse) closeSinks() {
	if w.exporter != nil {
		w.exporter.Close()
	}
	w.logger.Close()
}
