package logging

import (
	"context"
	"log/slog"
)

type fieldsKey struct{}

// ContextWithFields returns a context carrying key-value pairs. Any record
// logged through a context-aware logger with this context includes them.
func ContextWithFields(ctx context.Context, kvPairs ...any) context.Context {
	existing := FieldsFromContext(ctx)
	merged := make([]any, 0, len(existing)+len(kvPairs))
	merged = append(merged, existing...)
	merged = append(merged, kvPairs...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// FieldsFromContext returns the key-value pairs attached to the context.
func FieldsFromContext(ctx context.Context) []any {
	fields, _ := ctx.Value(fieldsKey{}).([]any)
	return fields
}

// ExtractFromContextFn extracts key-value pairs from a context.
type ExtractFromContextFn func(context.Context) []any

// ContextHandler wraps an slog.Handler and injects extracted context values
// into each record before delegating to the wrapped handler.
type ContextHandler struct {
	handler slog.Handler
	extract ExtractFromContextFn
}

// NewContextHandler creates a handler injecting context values into records.
func NewContextHandler(handler slog.Handler, extract ExtractFromContextFn) *ContextHandler {
	return &ContextHandler{handler: handler, extract: extract}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.extract != nil {
		kvPairs := h.extract(ctx)
		for i := 0; i+1 < len(kvPairs); i += 2 {
			key, ok := kvPairs[i].(string)
			if !ok {
				continue
			}
			r.AddAttrs(slog.Any(key, kvPairs[i+1]))
		}
	}
	return h.handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewContextHandler(h.handler.WithAttrs(attrs), h.extract)
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return NewContextHandler(h.handler.WithGroup(name), h.extract)
}
