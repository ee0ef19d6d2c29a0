package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

func parseLevel(s string, debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogger(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// setupFileLogger redirects slog to a file. The returned handler is the
// one installed, so callers can wrap it.
func setupFileLogger(path string, level slog.Level) slog.Handler {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		slog.Warn("failed to open log file, keeping stderr", "path", path, "error", err)
		return slog.Default().Handler()
	}
	h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
	return h
}

// ringBuffer stores the last N lines of log output.
type ringBuffer struct {
	mu    sync.RWMutex
	lines []string
	cap   int
}

func newRingBuffer(cap int) *ringBuffer {
	return &ringBuffer{
		lines: make([]string, 0, cap),
		cap:   cap,
	}
}

func (b *ringBuffer) Write(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) < b.cap {
		b.lines = append(b.lines, line)
	} else {
		b.lines = append(b.lines[1:], line)
	}
}

// Lines returns up to n of the most recent lines, oldest first. n <= 0
// returns everything.
func (b *ringBuffer) Lines(n int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	start := 0
	if n > 0 && n < len(b.lines) {
		start = len(b.lines) - n
	}
	out := make([]string, len(b.lines)-start)
	copy(out, b.lines[start:])
	return out
}

// ringHandler records formatted entries in a ring buffer and forwards
// them to next.
type ringHandler struct {
	buf   *ringBuffer
	level slog.Level
	attrs []slog.Attr
	next  slog.Handler
}

func newRingHandler(buf *ringBuffer, level slog.Level, next slog.Handler) *ringHandler {
	return &ringHandler{buf: buf, level: level, next: next}
}

func (h *ringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level || (h.next != nil && h.next.Enabled(ctx, level))
}

func (h *ringHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level {
		ts := r.Time.Format(time.TimeOnly)
		line := fmt.Sprintf("%s %s %s", ts, r.Level.String(), r.Message)
		for _, a := range h.attrs {
			line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		}
		r.Attrs(func(a slog.Attr) bool {
			line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
			return true
		})
		h.buf.Write(line)
	}
	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *ringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	if h.next != nil {
		c.next = h.next.WithAttrs(attrs)
	}
	return &c
}

func (h *ringHandler) WithGroup(name string) slog.Handler {
	c := *h
	if h.next != nil {
		c.next = h.next.WithGroup(name)
	}
	return &c
}
