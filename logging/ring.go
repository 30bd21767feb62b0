package logging

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultRingSize is how many lines the debug panel keeps.
const DefaultRingSize = 200

type ringBuffer struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

// Ring is a slog.Handler that keeps the last N records as short text lines.
// Handlers derived with WithAttrs/WithGroup share the same buffer.
type Ring struct {
	buf    *ringBuffer
	level  slog.Leveler
	attrs  []boundAttr
	groups []string
}

func NewRing(size int, level slog.Leveler) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	if level == nil {
		level = slog.LevelDebug
	}
	return &Ring{
		buf:   &ringBuffer{lines: make([]string, size)},
		level: level,
	}
}

func (r *Ring) Enabled(_ context.Context, level slog.Level) bool {
	return level >= r.level.Level()
}

func (r *Ring) Handle(_ context.Context, rec slog.Record) error {
	line := formatLine(rec, r.attrs, r.groups)

	b := r.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines[b.next] = line
	b.next = (b.next + 1) % len(b.lines)
	if b.next == 0 {
		b.full = true
	}
	return nil
}

func (r *Ring) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *r
	clone.attrs = bind(r.attrs, r.groups, attrs)
	return &clone
}

func (r *Ring) WithGroup(name string) slog.Handler {
	if name == "" {
		return r
	}
	clone := *r
	clone.groups = append(append([]string(nil), r.groups...), name)
	return &clone
}

// Lines returns the buffered lines, oldest first.
func (r *Ring) Lines() []string {
	b := r.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.full {
		return append([]string(nil), b.lines[:b.next]...)
	}
	out := make([]string, 0, len(b.lines))
	out = append(out, b.lines[b.next:]...)
	out = append(out, b.lines[:b.next]...)
	return out
}

// Tail returns at most n of the newest lines, oldest first.
func (r *Ring) Tail(n int) []string {
	lines := r.Lines()
	if n >= 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// formatLine renders "15:04:05 INFO msg key=value ..." with keys sorted.
func formatLine(rec slog.Record, bound []boundAttr, groups []string) string {
	payload := recordPayload(rec, bound, groups)
	when := rec.Time
	if when.IsZero() {
		when = time.Now()
	}

	var sb strings.Builder
	sb.WriteString(when.Format("15:04:05"))
	sb.WriteByte(' ')
	sb.WriteString(rec.Level.String())
	sb.WriteByte(' ')
	sb.WriteString(rec.Message)

	keys := make([]string, 0, len(payload))
	for k := range payload {
		switch k {
		case "time", "level", "msg":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, payload[k])
	}
	return sb.String()
}
