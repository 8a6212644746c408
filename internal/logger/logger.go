package logger

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var level atomic.Int32

func init() {
	level.Store(int32(LevelInfo))
}

func SetLevel(l Level) {
	level.Store(int32(l))
}

// ParseLevel maps a config value to a Level. Unknown names fall back to info.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type fieldsKey struct{}

// With returns a context whose log lines carry the given key/value pairs.
func With(ctx context.Context, kv ...any) context.Context {
	prev, _ := ctx.Value(fieldsKey{}).([]any)
	fields := make([]any, 0, len(prev)+len(kv))
	fields = append(fields, prev...)
	fields = append(fields, kv...)
	return context.WithValue(ctx, fieldsKey{}, fields)
}

func Debug(ctx context.Context, msg string, kv ...any) {
	write(ctx, LevelDebug, "DEBUG", msg, kv)
}

func Info(ctx context.Context, msg string, kv ...any) {
	write(ctx, LevelInfo, "INFO", msg, kv)
}

func Warn(ctx context.Context, msg string, kv ...any) {
	write(ctx, LevelWarn, "WARN", msg, kv)
}

// Error logs msg followed by err when err is non-nil.
func Error(ctx context.Context, err error, msg string, kv ...any) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	write(ctx, LevelError, "ERROR", msg, kv)
}

func write(ctx context.Context, l Level, tag, msg string, kv []any) {
	if l < Level(level.Load()) {
		return
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(tag)
	b.WriteString("] ")
	b.WriteString(msg)

	if ctx != nil {
		if fields, ok := ctx.Value(fieldsKey{}).([]any); ok {
			appendFields(&b, fields)
		}
	}
	appendFields(&b, kv)

	log.Print(b.String())
}

func appendFields(b *strings.Builder, kv []any) {
	for i := 0; i < len(kv); i += 2 {
		b.WriteString(" ")
		if i+1 < len(kv) {
			fmt.Fprintf(b, "%v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(b, "%v=?", kv[i])
		}
	}
}
