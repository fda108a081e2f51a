package telemetry

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type traceKey struct{}

// TraceContext correlates the log lines and events produced by one command.
// Each store action runs in its own span under the command's trace.
type TraceContext struct {
	Command  string `json:"command,omitempty"`
	TraceID  string `json:"trace_id"`
	SpanID   string `json:"span_id"`
	ParentID string `json:"parent_id,omitempty"`
	Action   string `json:"action,omitempty"`
	EntryID  string `json:"entry_id,omitempty"`
}

// NewTraceContext starts a trace for command (usually the cobra command path).
func NewTraceContext(command string) *TraceContext {
	return &TraceContext{
		Command: command,
		TraceID: shortID(),
		SpanID:  shortID(),
	}
}

// ChildSpan opens a span below tc. Action and EntryID are not inherited.
func (tc *TraceContext) ChildSpan() *TraceContext {
	return &TraceContext{
		Command:  tc.Command,
		TraceID:  tc.TraceID,
		SpanID:   shortID(),
		ParentID: tc.SpanID,
	}
}

// Args flattens the trace into slog key/value pairs. Empty fields are skipped.
func (tc *TraceContext) Args() []any {
	args := []any{"trace_id", tc.TraceID, "span_id", tc.SpanID}
	for _, kv := range [][2]string{
		{"parent_id", tc.ParentID},
		{"command", tc.Command},
		{"action", tc.Action},
		{"entry_id", tc.EntryID},
	} {
		if kv[1] != "" {
			args = append(args, kv[0], kv[1])
		}
	}
	return args
}

// ContextWithTrace stores tc in ctx.
func ContextWithTrace(ctx context.Context, tc *TraceContext) context.Context {
	return context.WithValue(ctx, traceKey{}, tc)
}

// TraceFromContext returns the trace stored in ctx, or nil.
func TraceFromContext(ctx context.Context) *TraceContext {
	tc, _ := ctx.Value(traceKey{}).(*TraceContext)
	return tc
}

// StartAction opens a span for a store action. When ctx carries no trace a
// fresh one is started, so every action can be correlated in the logs.
func StartAction(ctx context.Context, action string) (context.Context, *TraceContext) {
	var tc *TraceContext
	if parent := TraceFromContext(ctx); parent != nil {
		tc = parent.ChildSpan()
	} else {
		tc = NewTraceContext("")
	}
	tc.Action = action
	return ContextWithTrace(ctx, tc), tc
}

// TagEntry records the entry an action touches on the span in ctx and
// returns a context carrying the updated copy.
func TagEntry(ctx context.Context, id string) context.Context {
	tc := TraceFromContext(ctx)
	if tc == nil {
		return ctx
	}
	tagged := *tc
	tagged.EntryID = id
	return ContextWithTrace(ctx, &tagged)
}

// WithTrace returns l annotated with the trace in ctx, or l itself.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	tc := TraceFromContext(ctx)
	if tc == nil {
		return l
	}
	return l.With(tc.Args()...)
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
