package logger

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// TextTimeLayout is the timestamp written at the start of every text line.
// `animbridge logs --since` parses it back.
const TextTimeLayout = "2006-01-02 15:04:05"

type levelStyle struct {
	name  string
	color string
}

func styleFor(l slog.Level) levelStyle {
	switch {
	case l < slog.LevelInfo:
		return levelStyle{"DEBUG", ansiGray}
	case l < slog.LevelWarn:
		return levelStyle{"INFO", ansiGreen}
	case l < slog.LevelError:
		return levelStyle{"WARN", ansiYellow}
	default:
		return levelStyle{"ERROR", ansiRed}
	}
}

// ColorTextHandler writes one line per record:
//
//	[2006-01-02 15:04:05] [LEVEL] message key=value ...
//
// Level names and keys are colored when useColor is set.
type ColorTextHandler struct {
	opts     slog.HandlerOptions
	w        io.Writer
	mu       *sync.Mutex // shared by derived handlers
	prefix   string      // group path joined with dots, with trailing dot
	attrs    []slog.Attr
	useColor bool
}

// NewColorTextHandler returns a handler writing to w. opts may be nil.
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, useColor bool) *ColorTextHandler {
	h := &ColorTextHandler{w: w, mu: &sync.Mutex{}, useColor: useColor}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *ColorTextHandler) Enabled(_ context.Context, l slog.Level) bool {
	threshold := slog.LevelInfo
	if h.opts.Level != nil {
		threshold = h.opts.Level.Level()
	}
	return l >= threshold
}

func (h *ColorTextHandler) Handle(_ context.Context, r slog.Record) error {
	style := styleFor(r.Level)

	buf := make([]byte, 0, 128)
	buf = append(buf, '[')
	buf = r.Time.AppendFormat(buf, TextTimeLayout)
	buf = append(buf, "] ["...)
	buf = h.colored(buf, style.color, style.name)
	buf = append(buf, "] "...)
	buf = append(buf, r.Message...)

	for _, a := range h.attrs {
		buf = h.appendAttr(buf, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, h.prefix, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *ColorTextHandler) colored(buf []byte, color, s string) []byte {
	if !h.useColor {
		return append(buf, s...)
	}
	buf = append(buf, color...)
	buf = append(buf, s...)
	return append(buf, ansiReset...)
}

func (h *ColorTextHandler) appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}

	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			buf = h.appendAttr(buf, prefix, ga)
		}
		return buf
	}

	buf = append(buf, ' ')
	buf = h.colored(buf, ansiCyan, prefix+a.Key)
	buf = append(buf, '=')

	val := formatValue(a.Value)
	if strings.ContainsAny(val, " \t\n\"=") {
		val = strconv.Quote(val)
	}
	return append(buf, val...)
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', 3, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		// String, ints, bools, durations and Any all render via Value.String.
		return v.String()
	}
}

func (h *ColorTextHandler) clone() *ColorTextHandler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	return &c
}

func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := h.clone()
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		c.attrs = append(c.attrs, a)
	}
	return c
}

func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.prefix += name + "."
	return c
}
