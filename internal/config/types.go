package config

// Config represents the project configuration (warehouse.yaml)
type Config struct {
	Name    string        `yaml:"name" json:"name"`
	Version string        `yaml:"version" json:"version"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Memory  MemoryConfig  `yaml:"memory" json:"memory"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Hooks   HooksConfig   `yaml:"hooks" json:"hooks"`
}

// StorageConfig configures the key-value backend behind the storage adapter
type StorageConfig struct {
	Driver     string `yaml:"driver" json:"driver"`                                 // memory, file, sqlite, sqlite-pure
	Path       string `yaml:"path" json:"path"`                                     // directory (file) or database file (sqlite)
	KeyPrefix  string `yaml:"key_prefix" json:"key_prefix"`                         // prepended to memories/tags/settings
	LimitBytes int64  `yaml:"limit_bytes,omitempty" json:"limit_bytes,omitempty"` // 0 = unlimited
}

// MemoryConfig configures the memory store
type MemoryConfig struct {
	DefaultTitle string `yaml:"default_title" json:"default_title"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`                   // debug, info, warn, error
	Format string `yaml:"format" json:"format"`                 // text, json
	File   string `yaml:"file,omitempty" json:"file,omitempty"` // optional extra sink
}

// MetricsConfig configures the metrics exporter
type MetricsConfig struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty"` // JSONL file; empty disables export
}

// HooksConfig configures change event hooks.
type HooksConfig struct {
	Enabled bool         `yaml:"enabled" json:"enabled"`
	Hooks   []HookConfig `yaml:"hooks" json:"hooks"`
}

// HookConfig defines a single hook.
type HookConfig struct {
	Name     string   `yaml:"name" json:"name"`
	Type     string   `yaml:"type" json:"type"`     // shell, webhook, log
	Events   []string `yaml:"events" json:"events"` // event types to match, empty = all
	Blocking bool     `yaml:"blocking" json:"blocking"`
	Command  string   `yaml:"command,omitempty" json:"command,omitempty"` // for shell hooks
	URL      string   `yaml:"url,omitempty" json:"url,omitempty"`         // for webhook hooks
	Level    string   `yaml:"level,omitempty" json:"level,omitempty"`     // for log hooks (debug, info, warn)
	Timeout  string   `yaml:"timeout,omitempty" json:"timeout,omitempty"` // shell and webhook hooks, e.g. "5s"
}
