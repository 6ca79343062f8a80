package logger

import (
	"sort"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/doeshing/geogenie-go/internal/ports"
)

// New builds a zap logger. format "json" selects the production encoder, anything else the console one.
func New(levelStr, format string) *zap.Logger {
	level := zapcore.InfoLevel
	switch levelStr {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// ZapLogger adapts zap.Logger to ports.Logger.
type ZapLogger struct {
	l *zap.Logger
}

// NewStructured creates a ports.Logger that logs using zap under the hood.
func NewStructured(levelStr, format string) *ZapLogger {
	return &ZapLogger{l: New(levelStr, format)}
}

// NewNop discards everything.
func NewNop() *ZapLogger {
	return &ZapLogger{l: zap.NewNop()}
}

// NewTest routes output through testing.TB.
func NewTest(t testing.TB) *ZapLogger {
	return &ZapLogger{l: zaptest.NewLogger(t)}
}

func (z *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	z.l.Debug(msg, mapToZapFields(fields)...)
}

func (z *ZapLogger) Info(msg string, fields map[string]interface{}) {
	z.l.Info(msg, mapToZapFields(fields)...)
}

func (z *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	z.l.Warn(msg, mapToZapFields(fields)...)
}

func (z *ZapLogger) Error(msg string, err error, fields map[string]interface{}) {
	zf := mapToZapFields(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	z.l.Error(msg, zf...)
}

func (z *ZapLogger) With(fields map[string]interface{}) ports.Logger {
	return &ZapLogger{l: z.l.With(mapToZapFields(fields)...)}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() {
	_ = z.l.Sync()
}

func mapToZapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(fields))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

var _ ports.Logger = (*ZapLogger)(nil)
