package zap

import (
	"io"

	rf "github.com/GL1KK/redisfirstapp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ rf.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New builds a JSON logger writing to w at level ("debug", "info", "warn", "error").
func New(w io.Writer, level string) (ZapLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return ZapLogger{}, err
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(w),
		lvl,
	)
	return ZapLogger{L: zap.New(core)}, nil
}

func (z ZapLogger) Debug(msg string, f rf.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f rf.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f rf.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f rf.Fields) { z.L.Error(msg, zf(f)...) }

func (z ZapLogger) With(f rf.Fields) rf.Logger {
	return ZapLogger{L: z.L.With(zf(f)...)}
}

// Sync flushes buffered entries; call before exit.
func (z ZapLogger) Sync() error { return z.L.Sync() }

func zf(f rf.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
