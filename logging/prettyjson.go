// Package logging provides the slog handlers used by the game: a JSON
// file handler, an in-memory ring that feeds the debug panel, and a
// fan-out that tees records to several handlers.
package logging

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PrettyJSONHandler is a slog.Handler that prints one JSON object per
// record. With Indent set the object is spread over several lines.
type PrettyJSONHandler struct {
	w         io.Writer
	mu        *sync.Mutex
	level     slog.Leveler
	addSource bool
	indent    bool

	attrs  []boundAttr
	groups []string
}

// boundAttr is an attribute added with WithAttrs, together with the groups
// open at that point.
type boundAttr struct {
	groups []string
	attr   slog.Attr
}

func bind(bound []boundAttr, groups []string, attrs []slog.Attr) []boundAttr {
	out := append([]boundAttr(nil), bound...)
	for _, a := range attrs {
		out = append(out, boundAttr{groups: groups, attr: a})
	}
	return out
}

// Options extends slog.HandlerOptions.
type Options struct {
	slog.HandlerOptions
	Indent bool
}

func NewPrettyJSONHandler(w io.Writer, opts *Options) *PrettyJSONHandler {
	var level slog.Leveler = slog.LevelInfo
	h := &PrettyJSONHandler{w: w, mu: &sync.Mutex{}}
	if opts != nil {
		if opts.Level != nil {
			level = opts.Level
		}
		h.addSource = opts.AddSource
		h.indent = opts.Indent
	}
	h.level = level
	return h
}

func (h *PrettyJSONHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PrettyJSONHandler) Handle(_ context.Context, r slog.Record) error {
	payload := recordPayload(r, h.attrs, h.groups)
	if h.addSource {
		payload["source"] = sourceFromPC(r.PC)
	}

	var b []byte
	var err error
	if h.indent {
		b, err = json.MarshalIndent(payload, "", "  ")
	} else {
		b, err = json.Marshal(payload)
	}
	if err != nil {
		// Keep the message even when an attribute cannot be encoded.
		b = []byte("{\"time\":" + strconv.Quote(payload["time"].(string)) + ",\"level\":" + strconv.Quote(payload["level"].(string)) + ",\"msg\":" + strconv.Quote(r.Message) + "}")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(append(b, '\n'))
	return err
}

func (h *PrettyJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = bind(h.attrs, h.groups, attrs)
	return &clone
}

func (h *PrettyJSONHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func recordPayload(r slog.Record, bound []boundAttr, groups []string) map[string]any {
	payload := make(map[string]any, 6)

	when := r.Time
	if when.IsZero() {
		when = time.Now()
	}
	payload["time"] = when.Format(time.RFC3339Nano)
	payload["level"] = r.Level.String()
	payload["msg"] = r.Message

	for _, b := range bound {
		addAttr(payload, b.groups, b.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(payload, groups, a)
		return true
	})
	return payload
}

func addAttr(root map[string]any, groups []string, attr slog.Attr) {
	attr = resolveAttr(attr)

	dst := root
	for _, g := range groups {
		m, ok := dst[g].(map[string]any)
		if !ok {
			m = map[string]any{}
			dst[g] = m
		}
		dst = m
	}

	addAttrToMap(dst, attr)
}

func addAttrToMap(dst map[string]any, attr slog.Attr) {
	k := attr.Key
	v := attr.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		child := map[string]any{}
		for _, ga := range v.Group() {
			ga = resolveAttr(ga)
			if ga.Key != "" {
				addAttrToMap(child, ga)
			}
		}
		dst[k] = child
		return
	}

	dst[k] = valueToAny(v)
}

func valueToAny(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	default:
		return v.String()
	}
}

func resolveAttr(a slog.Attr) slog.Attr {
	if a.Key == "" {
		return a
	}
	a.Value = a.Value.Resolve()
	return a
}

func sourceFromPC(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	f, _ := frames.Next()
	if f.File == "" {
		return ""
	}
	file := f.File
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		file = file[idx+1:]
	}
	return file + ":" + strconv.Itoa(f.Line)
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.TrimSpace(s)))
	return level, err
}
