package logger

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	oldOutput := log.Writer()
	defer log.SetOutput(oldOutput)

	var buf bytes.Buffer
	log.SetOutput(&buf)

	ctx := context.Background()

	t.Run("Info", func(t *testing.T) {
		buf.Reset()
		Info(ctx, "board mounted")
		if !strings.Contains(buf.String(), "[INFO] board mounted") {
			t.Errorf("unexpected Info format: %s", buf.String())
		}
	})

	t.Run("Error with error", func(t *testing.T) {
		buf.Reset()
		err := errors.New("quota exceeded")
		Error(ctx, err, "save failed")
		if !strings.Contains(buf.String(), "[ERROR] save failed: quota exceeded") {
			t.Errorf("unexpected Error format: %s", buf.String())
		}
	})

	t.Run("Error without error", func(t *testing.T) {
		buf.Reset()
		Error(ctx, nil, "no cause")
		if !strings.Contains(buf.String(), "[ERROR] no cause") {
			t.Errorf("unexpected Error format without error: %s", buf.String())
		}
	})

	t.Run("Debug with level", func(t *testing.T) {
		buf.Reset()
		SetLevel(LevelDebug)
		defer SetLevel(LevelInfo)

		Debug(ctx, "debug line")
		if !strings.Contains(buf.String(), "[DEBUG] debug line") {
			t.Errorf("unexpected Debug format: %s", buf.String())
		}
	})

	t.Run("Debug without level", func(t *testing.T) {
		buf.Reset()
		SetLevel(LevelInfo)

		Debug(ctx, "must not be logged")
		if buf.String() != "" {
			t.Errorf("Debug must be suppressed at LevelInfo: %s", buf.String())
		}
	})

	t.Run("Warn suppressed at error level", func(t *testing.T) {
		buf.Reset()
		SetLevel(LevelError)
		defer SetLevel(LevelInfo)

		Warn(ctx, "ignored")
		if buf.String() != "" {
			t.Errorf("Warn must be suppressed at LevelError: %s", buf.String())
		}
	})
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	ctx := context.Background()

	t.Run("Info with fields", func(t *testing.T) {
		buf.Reset()
		Info(ctx, "task added", "key1", "value1", "key2", 42)
		output := buf.String()
		if !strings.Contains(output, "[INFO] task added") ||
			!strings.Contains(output, "key1=value1") ||
			!strings.Contains(output, "key2=42") {
			t.Errorf("unexpected format with fields: %s", output)
		}
	})

	t.Run("context fields", func(t *testing.T) {
		buf.Reset()
		sctx := With(ctx, "session", "tab-1")
		Info(sctx, "hydrated", "tasks", 3)
		output := buf.String()
		if !strings.Contains(output, "session=tab-1 tasks=3") {
			t.Errorf("context fields must precede call fields: %s", output)
		}
	})

	t.Run("odd field count", func(t *testing.T) {
		buf.Reset()
		Info(ctx, "dangling", "orphan")
		if !strings.Contains(buf.String(), "orphan=?") {
			t.Errorf("unexpected dangling key format: %s", buf.String())
		}
	})
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
