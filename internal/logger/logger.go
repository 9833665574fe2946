// Package logger is the process-wide structured logger.
//
// It wraps log/slog with a level and format that can change at runtime, a
// colored text handler for terminals and per-command context fields carried
// through context.Context.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level is the minimum severity that gets written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

var slogLevels = [...]slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

func (l Level) toSlog() slog.Level {
	if l < LevelDebug || l > LevelError {
		return slog.LevelInfo
	}
	return slogLevels[l]
}

// ParseLevel maps a level name to a Level. ok is false for unknown names.
func ParseLevel(name string) (Level, bool) {
	name = strings.ToUpper(name)
	if name == "WARNING" {
		return LevelWarn, true
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), true
		}
	}
	return LevelInfo, false
}

// Config selects level, format (text or json) and output (stdout, stderr or
// a file path).
type Config struct {
	Level  string
	Format string
	Output string
}

var (
	currentLevel  atomic.Int32
	currentFormat atomic.Value // "text" or "json"

	mu       sync.RWMutex
	slogger  *slog.Logger
	output   io.Writer = os.Stdout
	useColor           = true
)

func init() {
	currentLevel.Store(int32(LevelInfo))
	currentFormat.Store("text")
	useColor = isTerminal(os.Stdout.Fd())
	reconfigure()
}

// reconfigure rebuilds the handler from the current output, level and format.
func reconfigure() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: Level(currentLevel.Load()).toSlog()}

	var h slog.Handler
	if format, _ := currentFormat.Load().(string); format == "json" {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = NewColorTextHandler(output, opts, useColor)
	}
	slogger = slog.New(h)
}

// openOutput resolves a Config.Output value. Files never get color.
func openOutput(name string) (io.Writer, bool, error) {
	switch strings.ToLower(name) {
	case "", "stdout":
		return os.Stdout, isTerminal(os.Stdout.Fd()), nil
	case "stderr":
		return os.Stderr, isTerminal(os.Stderr.Fd()), nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open log file %q: %w", name, err)
	}
	return f, false, nil
}

// Init applies cfg. Empty fields keep their current value.
func Init(cfg Config) error {
	if cfg.Output != "" {
		w, color, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}
		setOutput(w, color)
	}
	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		SetFormat(cfg.Format)
	}
	reconfigure()
	return nil
}

// InitWithWriter points the logger at w. Used by tests and the CLIs.
func InitWithWriter(w io.Writer, level, format string, enableColor bool) {
	setOutput(w, enableColor)
	if level != "" {
		SetLevel(level)
	}
	if format != "" {
		SetFormat(format)
	}
	reconfigure()
}

func setOutput(w io.Writer, color bool) {
	mu.Lock()
	output = w
	useColor = color
	mu.Unlock()
}

// SetLevel sets the minimum level. Unknown names are ignored.
func SetLevel(level string) {
	l, ok := ParseLevel(level)
	if !ok {
		return
	}
	currentLevel.Store(int32(l))
	reconfigure()
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	return Level(currentLevel.Load())
}

// Enabled reports whether messages at l are currently written.
func Enabled(l Level) bool {
	return l >= GetLevel()
}

// SetFormat switches between "text" and "json". Other values are ignored.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	currentFormat.Store(format)
	reconfigure()
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// emit writes one record if l is enabled. A non-nil ctx contributes its
// LogContext fields ahead of args.
func emit(ctx context.Context, l Level, msg string, args []any) {
	if !Enabled(l) {
		return
	}
	if ctx != nil {
		args = appendContextFields(ctx, args)
	} else {
		ctx = context.Background()
	}
	getLogger().Log(ctx, l.toSlog(), msg, args...)
}

// Debug logs at debug level with key/value pairs.
func Debug(msg string, args ...any) { emit(nil, LevelDebug, msg, args) }

// Info logs at info level with key/value pairs.
func Info(msg string, args ...any) { emit(nil, LevelInfo, msg, args) }

// Warn logs at warn level with key/value pairs.
func Warn(msg string, args ...any) { emit(nil, LevelWarn, msg, args) }

// Error logs at error level with key/value pairs.
func Error(msg string, args ...any) { emit(nil, LevelError, msg, args) }

// DebugCtx is Debug with the LogContext fields found in ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelDebug, msg, args) }

func InfoCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelInfo, msg, args) }

func WarnCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelWarn, msg, args) }

func ErrorCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelError, msg, args) }

// appendContextFields prepends the non-empty LogContext fields to args.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	fields := [...]struct{ key, val string }{
		{KeyTraceID, lc.TraceID},
		{KeySpanID, lc.SpanID},
		{KeyClientID, lc.ClientID},
		{KeyCommandType, lc.CommandType},
		{KeyTransport, lc.Transport},
	}
	out := make([]any, 0, 2*len(fields)+len(args))
	for _, f := range fields {
		if f.val != "" {
			out = append(out, f.key, f.val)
		}
	}
	return append(out, args...)
}

// With returns a logger that always adds args.
func With(args ...any) *slog.Logger {
	return getLogger().With(args...)
}

// Duration returns the milliseconds elapsed since start.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
