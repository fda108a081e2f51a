package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	werrors "github.com/cadre-oss/warehouse/internal/errors"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up by Load.
const FileName = "warehouse.yaml"

// Default values applied when the config file leaves a field empty.
const (
	DefaultDriver       = "sqlite"
	DefaultSQLitePath   = ".warehouse/warehouse.db"
	DefaultFilePath     = ".warehouse/data"
	DefaultKeyPrefix    = "memory_warehouse_"
	DefaultTitle        = "Untitled memory"
	defaultLoggingLevel = "info"
)

var (
	envPattern = regexp.MustCompile(`\$\{env\.([^}]+)\}`)
	varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
)

// Load loads the project configuration from dir/warehouse.yaml
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile loads the configuration from an explicit path. A missing file
// yields the default configuration.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	content = []byte(interpolateEnv(string(content)))

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, werrors.Wrap(werrors.CodeConfigInvalid, "failed to parse "+path, err).
			WithSuggestion("Check the YAML syntax of " + FileName)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// interpolateEnv replaces ${env.VAR} and ${VAR} with environment values
func interpolateEnv(content string) string {
	content = envPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // keep original if not found
	})

	content = varPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := varPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return content
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{
		Name:    "warehouse",
		Version: "1.0",
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills empty fields. The storage path default depends on the
// driver, so callers overriding the driver should clear Path first.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DefaultDriver
	}
	if cfg.Storage.Path == "" {
		switch cfg.Storage.Driver {
		case "file":
			cfg.Storage.Path = DefaultFilePath
		case "sqlite", "sqlite-pure":
			cfg.Storage.Path = DefaultSQLitePath
		}
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.Memory.DefaultTitle == "" {
		cfg.Memory.DefaultTitle = DefaultTitle
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
