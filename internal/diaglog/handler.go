// Package diaglog keeps recent warnings and errors in memory so a running
// daemon can report them over the control pipe.
package diaglog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time    time.Time  `json:"time"`
	Level   slog.Level `json:"level"`
	Message string     `json:"message"`
	// Attrs is the record's attributes rendered as space separated
	// key=value pairs, including those added with WithAttrs.
	Attrs string `json:"attrs,omitempty"`
}

func (e Entry) String() string {
	line := e.Time.Format("15:04:05") + " " + e.Level.String() + " " + e.Message
	if e.Attrs != "" {
		line += " " + e.Attrs
	}
	return line
}

// Sink receives captured entries.
type Sink func(Entry)

// TeeHandler forwards every record to a base handler and additionally passes
// records at or above minLevel to a sink.
type TeeHandler struct {
	base     slog.Handler
	sink     Sink
	minLevel slog.Level
	prefix   string // "group." prefix applied to record attributes
	attrs    string // pre-rendered WithAttrs attributes
}

// NewTeeHandler creates a TeeHandler. A nil sink only delegates to base.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, sink Sink) *TeeHandler {
	return &TeeHandler{
		base:     base,
		sink:     sink,
		minLevel: minLevel,
	}
}

// Enabled defers to the base handler; minLevel only gates the sink.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle forwards the record to the base handler, then to the sink when the
// level qualifies. The sink is called even if the base handler fails.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)

	if h.sink != nil && record.Level >= h.minLevel {
		entry := Entry{
			Time:    record.Time,
			Level:   record.Level,
			Message: record.Message,
			Attrs:   h.renderAttrs(record),
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					// Written to stderr: logging through slog would re-enter this handler.
					fmt.Fprintf(os.Stderr, "[diaglog] sink panicked: %v\n%s\n", r, debug.Stack())
				}
			}()
			h.sink(entry)
		}()
	}
	return err
}

func (h *TeeHandler) renderAttrs(record slog.Record) string {
	var b strings.Builder
	b.WriteString(h.attrs)
	record.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})
	return b.String()
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, groupPrefix, ga)
		}
		return
	}
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	fmt.Fprintf(b, "%s%s=%v", prefix, a.Key, a.Value.Any())
}

// WithAttrs returns a handler whose base has attrs applied; the attributes
// are also carried into captured entries.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}
	return &TeeHandler{
		base:     h.base.WithAttrs(attrs),
		sink:     h.sink,
		minLevel: h.minLevel,
		prefix:   h.prefix,
		attrs:    b.String(),
	}
}

// WithGroup returns a handler whose base is wrapped with the group name.
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &TeeHandler{
		base:     h.base.WithGroup(name),
		sink:     h.sink,
		minLevel: h.minLevel,
		prefix:   h.prefix + name + ".",
		attrs:    h.attrs,
	}
}
