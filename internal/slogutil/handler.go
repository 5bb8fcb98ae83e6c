// Package slogutil provides the slog handler and logger constructors used across linewatch.
package slogutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Timestamp layouts for file and console records
const (
	FileTimeLayout    = time.RFC3339
	ConsoleTimeLayout = "15:04:05.000"
)

var levelColors = map[string]*color.Color{
	"debug": color.New(color.FgHiBlack),
	"info":  color.New(color.FgCyan),
	"warn":  color.New(color.FgYellow),
	"error": color.New(color.FgRed, color.Bold),
}

// Handler writes one line per record:
//
//	TIMESTAMP [level] Message | key=value key="value with spaces"
type Handler struct {
	mu       *sync.Mutex
	w        io.Writer
	level    slog.Leveler
	prefix   string // open groups joined with "."
	attrs    []byte // pre-rendered WithAttrs output
	layout   string
	utc      bool
	colorize bool
}

// NewHandler creates a handler with UTC RFC3339 timestamps, for log files.
func NewHandler(w io.Writer, opts *slog.HandlerOptions) *Handler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &Handler{mu: &sync.Mutex{}, w: w, level: level, layout: FileTimeLayout, utc: true}
}

// NewConsoleHandler creates a handler with short local timestamps. The level
// tag is coloured when colorize is set.
func NewConsoleHandler(w io.Writer, level slog.Level, colorize bool) *Handler {
	h := NewHandler(w, &slog.HandlerOptions{Level: level})
	h.layout = ConsoleTimeLayout
	h.utc = false
	h.colorize = colorize
	return h
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	if h.utc {
		ts = ts.UTC()
	}
	buf.WriteString(ts.Format(h.layout))
	buf.WriteByte(' ')

	name := levelString(r.Level)
	tag := "[" + name + "]"
	if h.colorize {
		tag = levelColors[name].Sprint(tag)
	}
	buf.WriteString(tag)
	buf.WriteByte(' ')
	buf.WriteString(r.Message)

	var attrs bytes.Buffer
	attrs.Write(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&attrs, h.prefix, a)
		return true
	})
	if attrs.Len() > 0 {
		buf.WriteString(" |")
		buf.Write(attrs.Bytes())
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	var buf bytes.Buffer
	buf.Write(h.attrs)
	for _, a := range attrs {
		h.appendAttr(&buf, h.prefix, a)
	}
	h2.attrs = buf.Bytes()
	return &h2
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// appendAttr renders " key=value", flattening group attributes
func (h *Handler) appendAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.appendAttr(buf, inner, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	buf.WriteByte(' ')
	buf.WriteString(prefix)
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	buf.WriteString(formatValue(a.Value))
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
