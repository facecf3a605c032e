package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var L *zap.Logger

func init() {
	l, err := build(zapcore.InfoLevel)
	if err != nil {
		panic(err)
	}
	L = l
}

func build(level zapcore.Level) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(level)
	return config.Build(zap.AddCallerSkip(1))
}

// Configure rebuilds the global logger at the given level ("debug", "info", "warn", "error").
func Configure(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}
	l, err := build(lvl)
	if err != nil {
		return err
	}
	L = l
	return nil
}

// WithComponent returns a child logger tagged with the component field (handler, scanner, storage, mq ...).
func WithComponent(component string) *zap.Logger {
	return L.With(zap.String("component", component))
}

func Sync() {
	_ = L.Sync()
}
