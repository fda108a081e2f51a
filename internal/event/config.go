package event

import (
	"fmt"
	"time"

	"github.com/cadre-oss/warehouse/internal/config"
)

// BuildHooks turns the hooks section of warehouse.yaml into hooks.
func BuildHooks(cfg config.HooksConfig, logger Logger) ([]Hook, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	hooks := make([]Hook, 0, len(cfg.Hooks))
	for _, hc := range cfg.Hooks {
		events := make([]EventType, 0, len(hc.Events))
		for _, e := range hc.Events {
			if !ValidPattern(e) {
				return nil, fmt.Errorf("hook %s: event %q matches no event type", hc.Name, e)
			}
			events = append(events, EventType(e))
		}

		timeout := DefaultHookTimeout
		if hc.Timeout != "" {
			d, err := time.ParseDuration(hc.Timeout)
			if err != nil {
				return nil, fmt.Errorf("hook %s: %w", hc.Name, err)
			}
			timeout = d
		}

		switch hc.Type {
		case "shell":
			h := NewShellHook(hc.Name, hc.Command, events, hc.Blocking)
			h.Timeout = timeout
			hooks = append(hooks, h)
		case "webhook":
			h := NewWebhookHook(hc.Name, hc.URL, events, hc.Blocking)
			h.Timeout = timeout
			hooks = append(hooks, h)
		case "log":
			if logger == nil {
				return nil, fmt.Errorf("log hook %s requires a logger", hc.Name)
			}
			hooks = append(hooks, NewLogHook(hc.Name, events, logger, hc.Level))
		default:
			return nil, fmt.Errorf("unknown hook type %q for hook %s", hc.Type, hc.Name)
		}
	}
	return hooks, nil
}

// NewBusFromConfig creates a bus with the configured hooks registered.
func NewBusFromConfig(cfg config.HooksConfig, logger Logger) (*Bus, error) {
	bus := NewBus(logger)
	hooks, err := BuildHooks(cfg, logger)
	if err != nil {
		return nil, err
	}
	for _, h := range hooks {
		bus.Register(h)
	}
	return bus, nil
}
