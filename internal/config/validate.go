package config

import (
	"fmt"
	"strings"
	"time"

	werrors "github.com/cadre-oss/warehouse/internal/errors"
)

var (
	validDrivers = map[string]bool{
		"memory":      true,
		"file":        true,
		"sqlite":      true,
		"sqlite-pure": true,
	}
	validLevels = map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	validFormats = map[string]bool{
		"text": true,
		"json": true,
	}
	validHookTypes = map[string]bool{
		"shell":   true,
		"webhook": true,
		"log":     true,
	}
)

// Validate checks a configuration after defaults have been applied.
func Validate(cfg *Config) error {
	var errors []string

	if !validDrivers[cfg.Storage.Driver] {
		errors = append(errors, fmt.Sprintf("invalid storage driver: %s", cfg.Storage.Driver))
	}
	if cfg.Storage.Driver != "memory" && cfg.Storage.Path == "" {
		errors = append(errors, "storage path is required")
	}
	if cfg.Storage.LimitBytes < 0 {
		errors = append(errors, "storage limit_bytes must not be negative")
	}
	if !validLevels[cfg.Logging.Level] {
		errors = append(errors, fmt.Sprintf("invalid logging level: %s", cfg.Logging.Level))
	}
	if !validFormats[cfg.Logging.Format] {
		errors = append(errors, fmt.Sprintf("invalid logging format: %s", cfg.Logging.Format))
	}

	for i, h := range cfg.Hooks.Hooks {
		label := h.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			errors = append(errors, fmt.Sprintf("hook %s: name is required", label))
		}
		if !validHookTypes[h.Type] {
			errors = append(errors, fmt.Sprintf("hook %s: invalid type: %s", label, h.Type))
		}
		if h.Type == "shell" && h.Command == "" {
			errors = append(errors, fmt.Sprintf("hook %s: shell hook requires command", label))
		}
		if h.Type == "webhook" && h.URL == "" {
			errors = append(errors, fmt.Sprintf("hook %s: webhook hook requires url", label))
		}
		if h.Timeout != "" {
			if d, err := time.ParseDuration(h.Timeout); err != nil || d <= 0 {
				errors = append(errors, fmt.Sprintf("hook %s: invalid timeout: %s", label, h.Timeout))
			}
		}
	}

	if len(errors) > 0 {
		return werrors.New(werrors.CodeConfigInvalid, "config validation failed: "+strings.Join(errors, "; ")).
			WithSuggestion("Run 'warehouse config validate' after fixing " + FileName)
	}
	return nil
}
