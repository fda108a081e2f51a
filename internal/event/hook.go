package event

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path"
	"time"
)

// DefaultHookTimeout bounds shell and webhook hooks without a configured timeout.
const DefaultHookTimeout = 10 * time.Second

// Hook reacts to store change events.
type Hook interface {
	Name() string
	// Matches reports whether the hook wants events of type t.
	Matches(t EventType) bool
	// IsBlocking hooks run inline and can fail the emit.
	IsBlocking() bool
	Handle(ev Event) error
}

type baseHook struct {
	name     string
	events   []EventType
	blocking bool
}

func (h *baseHook) Name() string     { return h.name }
func (h *baseHook) IsBlocking() bool { return h.blocking }

// Matches treats each configured event as a glob, so "entry.*" covers every
// entry event. No events means every event.
func (h *baseHook) Matches(t EventType) bool {
	if len(h.events) == 0 {
		return true
	}
	for _, pattern := range h.events {
		if ok, _ := path.Match(string(pattern), string(t)); ok {
			return true
		}
	}
	return false
}

// ValidPattern reports whether pattern is a well-formed event glob that
// matches at least one known event type.
func ValidPattern(pattern string) bool {
	for _, t := range AllTypes {
		ok, err := path.Match(pattern, string(t))
		if err != nil {
			return false
		}
		if ok {
			return true
		}
	}
	return false
}

// ShellHook runs `sh -c Command` per event. The event is passed in
// WAREHOUSE_EVENT_TYPE and WAREHOUSE_EVENT_JSON, plus WAREHOUSE_ENTRY_ID and
// WAREHOUSE_TAG when the event carries them. Output goes to stderr.
type ShellHook struct {
	baseHook
	Command string
	Timeout time.Duration
}

func NewShellHook(name, command string, events []EventType, blocking bool) *ShellHook {
	return &ShellHook{
		baseHook: baseHook{name: name, events: events, blocking: blocking},
		Command:  command,
		Timeout:  DefaultHookTimeout,
	}
}

func (h *ShellHook) Handle(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", h.Command)
	cmd.Env = append(os.Environ(), eventEnv(ev, payload)...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("shell hook %s timed out after %s", h.name, h.Timeout)
		}
		return fmt.Errorf("shell hook %s: %w", h.name, err)
	}
	return nil
}

func eventEnv(ev Event, payload []byte) []string {
	env := []string{
		"WAREHOUSE_EVENT_TYPE=" + string(ev.Type),
		"WAREHOUSE_EVENT_JSON=" + string(payload),
	}
	if id, ok := ev.Data["id"].(string); ok {
		env = append(env, "WAREHOUSE_ENTRY_ID="+id)
	}
	if tag, ok := ev.Data["tag"].(string); ok {
		env = append(env, "WAREHOUSE_TAG="+tag)
	}
	return env
}

// WebhookHook POSTs the event as JSON. Any non-2xx reply is a failure.
type WebhookHook struct {
	baseHook
	URL     string
	Timeout time.Duration
}

func NewWebhookHook(name, url string, events []EventType, blocking bool) *WebhookHook {
	return &WebhookHook{
		baseHook: baseHook{name: name, events: events, blocking: blocking},
		URL:      url,
		Timeout:  DefaultHookTimeout,
	}
}

func (h *WebhookHook) Handle(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook %s: %w", h.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Warehouse-Event", string(ev.Type))

	resp, err := (&http.Client{Timeout: h.Timeout}).Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", h.name, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s: unexpected status %d", h.name, resp.StatusCode)
	}
	return nil
}

// LevelLogger is what a LogHook needs beyond Logger.
type LevelLogger interface {
	Logger
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
}

// LogHook writes one structured line per event. Never blocking.
type LogHook struct {
	baseHook
	log func(msg string, keyvals ...interface{})
}

// NewLogHook logs at level (debug, info, warn). Loggers that only implement
// Warn always log at warn.
func NewLogHook(name string, events []EventType, logger Logger, level string) *LogHook {
	log := logger.Warn
	if ll, ok := logger.(LevelLogger); ok {
		switch level {
		case "debug":
			log = ll.Debug
		case "warn":
		default:
			log = ll.Info
		}
	}
	return &LogHook{baseHook: baseHook{name: name, events: events}, log: log}
}

func (h *LogHook) Handle(ev Event) error {
	keyvals := []interface{}{"hook", h.name}
	for k, v := range ev.Data {
		keyvals = append(keyvals, k, v)
	}
	h.log("store event "+string(ev.Type), keyvals...)
	return nil
}

// FuncHook wraps an in-process callback. It is blocking so subscribers see
// changes in emission order.
type FuncHook struct {
	baseHook
	fn func(Event)
}

func NewFuncHook(name string, events []EventType, fn func(Event)) *FuncHook {
	return &FuncHook{
		baseHook: baseHook{name: name, events: events, blocking: true},
		fn:       fn,
	}
}

func (h *FuncHook) Handle(ev Event) error {
	h.fn(ev)
	return nil
}

// Subscribe registers fn for the given event patterns (all events when
// empty). Calling cancel removes this subscription only, even when others
// share its name. Cancel is safe to call more than once.
func (b *Bus) Subscribe(name string, events []EventType, fn func(Event)) (cancel func()) {
	if b == nil {
		return func() {}
	}
	h := NewFuncHook(name, events, fn)
	b.Register(h)
	return func() { b.remove(h) }
}
