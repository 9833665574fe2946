package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer and returns a cleanup
// that restores the previous writer, level and format.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()

	originalLevel := currentLevel.Load()
	originalFormat, _ := currentFormat.Load().(string)
	reconfigure()

	return buf, func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		currentLevel.Store(originalLevel)
		currentFormat.Store(originalFormat)
		reconfigure()
	}
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		present []string
		absent  []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf, cleanup := captureOutput()
			defer cleanup()

			SetLevel(tt.level)
			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tt.present {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSetLevelIgnoresUnknown(t *testing.T) {
	_, cleanup := captureOutput()
	defer cleanup()

	SetLevel("WARN")
	SetLevel("verbose")
	assert.Equal(t, LevelWarn, GetLevel())

	SetLevel("warning")
	assert.Equal(t, LevelWarn, GetLevel())
	assert.True(t, Enabled(LevelError))
	assert.False(t, Enabled(LevelInfo))
}

func TestTextFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")
	Info("listener started", KeyPort, 9876, KeyAddr, "127.0.0.1:9876")

	out := buf.String()
	assert.Contains(t, out, "[INFO] listener started")
	assert.Contains(t, out, "port=9876")
	assert.Contains(t, out, "addr=127.0.0.1:9876")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("json")
	Info("command executed", KeyCommandType, "apply_pose", KeyDurationMs, 1.5)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "command executed", entry["msg"])
	assert.Equal(t, "apply_pose", entry["command_type"])
	assert.Equal(t, 1.5, entry["duration_ms"])
}

func TestContextLogging(t *testing.T) {
	t.Run("InjectsFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetFormat("json")

		lc := NewLogContext("socket", "127.0.0.1:50312").WithCommand("blend_pose").WithTrace("abc123", "xyz789")
		ctx := WithContext(context.Background(), lc)
		InfoCtx(ctx, "handled", "extra_field", "value")

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
		assert.Equal(t, "abc123", entry[KeyTraceID])
		assert.Equal(t, "xyz789", entry[KeySpanID])
		assert.Equal(t, "127.0.0.1:50312", entry[KeyClientID])
		assert.Equal(t, "blend_pose", entry[KeyCommandType])
		assert.Equal(t, "socket", entry[KeyTransport])
		assert.Equal(t, "value", entry["extra_field"])
	})

	t.Run("NilContext", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		require.NotPanics(t, func() {
			//nolint:staticcheck // nil context is tolerated
			InfoCtx(nil, "test message")
		})
		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("ContextWithoutLogContext", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		WarnCtx(context.Background(), "plain")
		assert.Contains(t, buf.String(), "plain")
	})
}

func TestLogContext(t *testing.T) {
	lc := NewLogContext("mailbox", "apply_1a2b3c4d.json")
	assert.Equal(t, "mailbox", lc.Transport)
	assert.False(t, lc.StartTime.IsZero())
	assert.GreaterOrEqual(t, lc.DurationMs(), 0.0)

	withCmd := lc.WithCommand("apply_animation")
	assert.Equal(t, "apply_animation", withCmd.CommandType)
	assert.Empty(t, lc.CommandType)

	var nilCtx *LogContext
	assert.Nil(t, nilCtx.Clone())
	assert.Zero(t, nilCtx.DurationMs())
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, "", Err(nil).Key)

	attr := Err(errors.New("boom"))
	assert.Equal(t, KeyError, attr.Key)
	assert.Equal(t, "boom", attr.Value.String())

	assert.Equal(t, KeyPort, Port(9877).Key)
	assert.Equal(t, int64(9877), Port(9877).Value.Int64())
}

func TestConcurrentLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Info("concurrent", "goroutine", id, "iter", j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 400)
	for _, line := range lines {
		assert.Contains(t, line, "[INFO] concurrent")
	}
}

func TestInit(t *testing.T) {
	t.Run("WithWriter", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		buf := new(bytes.Buffer)
		InitWithWriter(buf, "DEBUG", "text", false)
		Debug("test message")
		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("EmptyConfig", func(t *testing.T) {
		require.NoError(t, Init(Config{}))
	})

	t.Run("BadFilePath", func(t *testing.T) {
		err := Init(Config{Output: t.TempDir() + "/missing/dir/log.txt"})
		require.Error(t, err)
	})
}

func BenchmarkLogDisabled(b *testing.B) {
	InitWithWriter(new(bytes.Buffer), "ERROR", "text", false)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Debug("test message", "key", "value")
	}
}

func BenchmarkLogJSON(b *testing.B) {
	InitWithWriter(new(bytes.Buffer), "DEBUG", "json", false)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Info("test message", "key", "value", "count", i)
	}
}

func TestColorTextHandler(t *testing.T) {
	t.Run("GroupsAndAttrs", func(t *testing.T) {
		buf := new(bytes.Buffer)
		l := slog.New(NewColorTextHandler(buf, nil, false)).
			With(KeyTransport, "socket").
			WithGroup("blend")
		l.Info("updated", "factor", 0.5, "pose", "T Pose")

		out := buf.String()
		assert.Contains(t, out, "[INFO] updated transport=socket")
		assert.Contains(t, out, "blend.factor=0.500")
		assert.Contains(t, out, `blend.pose="T Pose"`)
	})

	t.Run("LevelThreshold", func(t *testing.T) {
		h := NewColorTextHandler(new(bytes.Buffer), &slog.HandlerOptions{Level: slog.LevelWarn}, false)
		assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
		assert.True(t, h.Enabled(context.Background(), slog.LevelError))
	})

	t.Run("Color", func(t *testing.T) {
		buf := new(bytes.Buffer)
		slog.New(NewColorTextHandler(buf, nil, true)).Warn("slow drain")
		assert.Contains(t, buf.String(), ansiYellow+"WARN"+ansiReset)
	})
}
