package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestRingBuffer(t *testing.T) {
	b := newRingBuffer(3)
	for _, s := range []string{"a", "b", "c", "d"} {
		b.Write(s)
	}
	if got := strings.Join(b.Lines(0), ","); got != "b,c,d" {
		t.Errorf("Lines(0) = %s", got)
	}
	if got := strings.Join(b.Lines(2), ","); got != "c,d" {
		t.Errorf("Lines(2) = %s", got)
	}
	if got := strings.Join(b.Lines(10), ","); got != "b,c,d" {
		t.Errorf("Lines(10) = %s", got)
	}
}

func TestRingHandler(t *testing.T) {
	var out bytes.Buffer
	next := slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelWarn})
	buf := newRingBuffer(10)
	logger := slog.New(newRingHandler(buf, slog.LevelInfo, next)).With("component", "test")

	logger.Debug("hidden")
	logger.Info("node created", "id", "o1")
	logger.Warn("seed: skipping item")

	lines := buf.Lines(0)
	if len(lines) != 2 {
		t.Fatalf("ring lines = %v", lines)
	}
	if !strings.Contains(lines[0], "INFO node created component=test id=o1") {
		t.Errorf("line = %q", lines[0])
	}
	if strings.Contains(out.String(), "node created") || !strings.Contains(out.String(), "skipping item") {
		t.Errorf("forwarded = %q", out.String())
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("warn", false) != slog.LevelWarn {
		t.Error("warn")
	}
	if parseLevel("error", true) != slog.LevelDebug {
		t.Error("debug flag should win")
	}
	if parseLevel("", false) != slog.LevelInfo {
		t.Error("default")
	}
}
