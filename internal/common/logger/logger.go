package logger

import (
	"sort"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Logger defines the minimal logging interface used across the worker.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
	With(fields map[string]interface{}) Logger
}

// New builds a zap logger writing to stderr.
func New(levelStr, format string) *zap.Logger {
	return NewWithOutput(levelStr, format, "stderr")
}

// NewWithOutput builds a zap logger writing to output, which is "stderr" or a
// file path. stdout is reserved for protocol lines and is redirected to
// stderr.
func NewWithOutput(levelStr, format, output string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if format != "json" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(levelStr))
	cfg.OutputPaths = []string{sink(output)}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// ParseLevel maps a config level name to a zap level, defaulting to info.
func ParseLevel(levelStr string) zapcore.Level {
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func sink(output string) string {
	switch output {
	case "", "stdout", "stderr":
		return "stderr"
	}
	return output
}

type zapLogger struct {
	z *zap.Logger
}

func (l *zapLogger) Debug(msg string, fields map[string]interface{}) { l.z.Debug(msg, toFields(fields)...) }
func (l *zapLogger) Info(msg string, fields map[string]interface{})  { l.z.Info(msg, toFields(fields)...) }
func (l *zapLogger) Warn(msg string, fields map[string]interface{})  { l.z.Warn(msg, toFields(fields)...) }
func (l *zapLogger) Error(msg string, fields map[string]interface{}) { l.z.Error(msg, toFields(fields)...) }

func (l *zapLogger) WithFields(fields map[string]interface{}) Logger {
	return &zapLogger{z: l.z.With(toFields(fields)...)}
}

func (l *zapLogger) WithError(err error) Logger {
	return &zapLogger{z: l.z.With(zap.Error(err))}
}

func (l *zapLogger) With(fields map[string]interface{}) Logger {
	return l.WithFields(fields)
}

// toFields converts a field map in key order so log lines are stable.
func toFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

// NewStructured builds a stderr Logger.
func NewStructured(levelStr, format string) Logger {
	return &zapLogger{z: New(levelStr, format)}
}

// NewZapAdapter wraps an existing *zap.Logger.
func NewZapAdapter(l *zap.Logger) Logger {
	return &zapLogger{z: l}
}

// NewTestLogger routes log output through t.
func NewTestLogger(t testing.TB) Logger {
	return &zapLogger{z: zaptest.NewLogger(t)}
}

func NewNoOpLogger() Logger {
	return &zapLogger{z: zap.NewNop()}
}
