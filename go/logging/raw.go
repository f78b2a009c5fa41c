package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// RawHandler outputs the message followed by key=value pairs, no timestamps.
type RawHandler struct {
	writer io.Writer
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

// NewRawHandler creates a new RawHandler.
func NewRawHandler(w io.Writer, opts *slog.HandlerOptions) *RawHandler {
	level := slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level.Level()
	}
	return &RawHandler{writer: w, level: level}
}

// Enabled reports whether the handler handles records at the given level.
func (h *RawHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle writes the record to the underlying writer.
func (h *RawHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	for _, attr := range h.attrs {
		h.appendAttr(&b, attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		h.appendAttr(&b, attr)
		return true
	})
	_, err := fmt.Fprintln(h.writer, b.String())
	return err
}

func (h *RawHandler) appendAttr(b *strings.Builder, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	b.WriteString(" ")
	if len(h.groups) > 0 {
		b.WriteString(strings.Join(h.groups, "."))
		b.WriteString(".")
	}
	b.WriteString(attr.Key)
	b.WriteString("=")
	fmt.Fprintf(b, "%v", attr.Value)
}

// WithAttrs returns a new handler with additional attributes.
func (h *RawHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newAttrs = append(newAttrs, h.attrs...)
	newAttrs = append(newAttrs, attrs...)
	return &RawHandler{writer: h.writer, level: h.level, attrs: newAttrs, groups: h.groups}
}

// WithGroup returns a new handler with a group name.
func (h *RawHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newGroups := make([]string, 0, len(h.groups)+1)
	newGroups = append(newGroups, h.groups...)
	newGroups = append(newGroups, name)
	return &RawHandler{writer: h.writer, level: h.level, attrs: h.attrs, groups: newGroups}
}
