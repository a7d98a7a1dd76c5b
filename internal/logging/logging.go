// Package logging provides the package-level structured logger shared by
// every other package in the module.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the global logger.
var L *zap.Logger

func init() {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	L = logger
}

// SetLevel raises the minimum level logged by L.
func SetLevel(level zapcore.Level) {
	L = L.WithOptions(zap.IncreaseLevel(level))
}

// LevelFromString converts a config string ("debug", "info", "warn",
// "error") into a zapcore.Level, defaulting to info for anything else.
func LevelFromString(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// FieldLogger is the narrow logging shape consumed by internal/errs.
// It is the single logging interface in this module; call sites that used
// to hold a *zap.Logger directly can still use it, this just gives
// HandleError something structural to depend on instead of zap directly.
type FieldLogger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type zapFieldLogger struct {
	z *zap.SugaredLogger
}

// NewFieldLogger adapts the global zap logger to the FieldLogger shape.
func NewFieldLogger() FieldLogger {
	return &zapFieldLogger{z: L.Sugar()}
}

func (f *zapFieldLogger) Debug(msg string, kv ...any) { f.z.Debugw(msg, kv...) }
func (f *zapFieldLogger) Info(msg string, kv ...any)  { f.z.Infow(msg, kv...) }
func (f *zapFieldLogger) Warn(msg string, kv ...any)  { f.z.Warnw(msg, kv...) }
func (f *zapFieldLogger) Error(msg string, kv ...any) { f.z.Errorw(msg, kv...) }
