//go:build go1.21

package slog

import (
	"context"
	"io"
	stdslog "log/slog"
	"strings"

	rf "github.com/GL1KK/redisfirstapp"
)

var _ rf.Logger = Logger{}

type Logger struct{ L *stdslog.Logger }

// New builds a JSON slog logger writing to w at level.
func New(w io.Writer, level string) Logger {
	var lvl stdslog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = stdslog.LevelDebug
	case "warn", "warning":
		lvl = stdslog.LevelWarn
	case "error":
		lvl = stdslog.LevelError
	default:
		lvl = stdslog.LevelInfo
	}
	return Logger{L: stdslog.New(stdslog.NewJSONHandler(w, &stdslog.HandlerOptions{Level: lvl}))}
}

func (s Logger) Debug(msg string, f rf.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelDebug, msg, attrs(f)...)
}
func (s Logger) Info(msg string, f rf.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelInfo, msg, attrs(f)...)
}
func (s Logger) Warn(msg string, f rf.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelWarn, msg, attrs(f)...)
}
func (s Logger) Error(msg string, f rf.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelError, msg, attrs(f)...)
}

func (s Logger) With(f rf.Fields) rf.Logger {
	a := attrs(f)
	args := make([]any, len(a))
	for i := range a {
		args[i] = a[i]
	}
	return Logger{L: s.L.With(args...)}
}

func attrs(f rf.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	out := make([]stdslog.Attr, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, stdslog.String(k, err.Error()))
			continue
		}
		out = append(out, stdslog.Any(k, v))
	}
	return out
}
