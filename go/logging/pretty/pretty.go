// Package pretty implements a colorized, human-oriented slog handler for
// development use.
package pretty

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

const (
	DefaultTimeFormat = "2006-01-02 15:04:05.000"

	reset = "\033[0m"

	red     = 31
	magenta = 35

	darkGray = 90

	lightGray    = 37
	lightRed     = 91
	lightGreen   = 92
	lightYellow  = 93
	lightBlue    = 94
	lightMagenta = 95
	lightCyan    = 96

	white = 97
)

// Options configures the pretty handler.
type Options struct {
	Level      slog.Level
	AddSource  bool
	Colorful   bool
	Multiline  bool
	TimeFormat string
}

// DefaultOptions returns the default pretty handler options.
func DefaultOptions() *Options {
	return &Options{
		Level:      slog.LevelInfo,
		Colorful:   true,
		TimeFormat: DefaultTimeFormat,
	}
}

// Handler renders records as colorized single- or multi-line output.
type Handler struct {
	opts   Options
	groups []string
	attrs  []slog.Attr
	out    io.Writer
	mu     *sync.Mutex
}

// New creates a new pretty handler writing to out.
func New(out io.Writer, opts *Options) *Handler {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = DefaultTimeFormat
	}
	return &Handler{opts: *opts, out: out, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 1024)
	buf = h.appendHeader(buf, r)

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	if h.opts.Multiline {
		buf = append(buf, '\n')
		indent := 1
		for _, group := range h.groups {
			buf = fmt.Appendf(buf, "%s%s:\n", strings.Repeat("  ", indent), h.colorize(magenta, group))
			indent++
		}
		for _, attr := range attrs {
			buf = h.appendAttr(buf, attr, indent)
		}
	} else {
		for _, group := range h.groups {
			buf = fmt.Appendf(buf, " %s:", h.colorize(magenta, group))
		}
		for _, attr := range attrs {
			buf = h.appendAttr(buf, attr, -1)
		}
		buf = append(buf, '\n')
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	h2.attrs = append(h2.attrs, h.attrs...)
	h2.attrs = append(h2.attrs, attrs...)
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = make([]string, 0, len(h.groups)+1)
	h2.groups = append(h2.groups, h.groups...)
	h2.groups = append(h2.groups, name)
	return &h2
}

func (h *Handler) appendHeader(buf []byte, r slog.Record) []byte {
	if !r.Time.IsZero() {
		buf = fmt.Appendf(buf, "%s ", h.colorize(lightGray, r.Time.Format(h.opts.TimeFormat)))
	}
	buf = fmt.Appendf(buf, "%-7s", h.levelString(r.Level))
	buf = fmt.Appendf(buf, " %s", h.colorize(white, r.Message))
	if h.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		buf = fmt.Appendf(buf, " %s", h.colorize(darkGray, fmt.Sprintf("source: %s:%d", frame.File, frame.Line)))
	}
	return buf
}

// appendAttr renders an attribute; indent < 0 selects inline key=value form.
func (h *Handler) appendAttr(buf []byte, a slog.Attr, indent int) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}

	if a.Value.Kind() == slog.KindGroup {
		groupAttrs := a.Value.Group()
		if len(groupAttrs) == 0 {
			return buf
		}
		if indent < 0 {
			buf = fmt.Appendf(buf, " %s:", h.colorize(lightMagenta, a.Key))
			for _, groupAttr := range groupAttrs {
				buf = h.appendAttr(buf, groupAttr, -1)
			}
			return buf
		}
		buf = fmt.Appendf(buf, "%s%s:\n", strings.Repeat("  ", indent), h.colorize(lightMagenta, a.Key))
		for _, groupAttr := range groupAttrs {
			buf = h.appendAttr(buf, groupAttr, indent+1)
		}
		return buf
	}

	valColor := lightBlue
	switch a.Value.Kind() {
	case slog.KindBool:
		valColor = lightRed
		if a.Value.Bool() {
			valColor = lightGreen
		}
	case slog.KindTime:
		a.Value = slog.StringValue(a.Value.Time().Format(h.opts.TimeFormat))
	}

	if indent < 0 {
		return fmt.Appendf(buf, " %s=%s",
			h.colorize(lightMagenta, a.Key),
			h.colorize(valColor, fmt.Sprintf("%q", a.Value.String())))
	}
	return fmt.Appendf(buf, "%s%s: %s\n",
		strings.Repeat("  ", indent),
		h.colorize(lightMagenta, a.Key),
		h.colorize(valColor, a.Value.String()))
}

func (h *Handler) levelString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return h.colorize(lightMagenta, "DEBUG")
	case slog.LevelInfo:
		return h.colorize(lightCyan, "INFO")
	case slog.LevelWarn:
		return h.colorize(lightYellow, "WARN")
	case slog.LevelError:
		return h.colorize(red, "ERROR")
	default:
		return level.String()
	}
}

func (h *Handler) colorize(colorCode int, v string) string {
	if !h.opts.Colorful {
		return v
	}
	return "\033[" + strconv.Itoa(colorCode) + "m" + v + reset
}
