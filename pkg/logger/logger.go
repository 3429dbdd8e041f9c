package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"steuerpilot/pkg/errors"
)

var global *Logger

// Logger wraps zap's sugared logger and forwards errors to the configured
// tracker so call sites never report twice.
type Logger struct {
	*zap.SugaredLogger
	tracker errors.Tracker
}

// Init builds the global logger. Production gets JSON output, everything
// else gets the colored console encoder.
func Init(level, env string) error {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	base, err := cfg.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return err
	}

	global = &Logger{SugaredLogger: base.Sugar()}
	return nil
}

// SetErrorTracker attaches a tracker to the global logger
func SetErrorTracker(tracker errors.Tracker) {
	if global != nil {
		global.tracker = tracker
	}
}

// Get returns the global logger, building a development one on first use so
// library code and tests never need explicit initialization
func Get() *Logger {
	if global == nil {
		base, _ := zap.NewDevelopment()
		global = &Logger{SugaredLogger: base.Sugar()}
	}
	return global
}

// With returns a child logger carrying additional key-value fields
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(args...),
		tracker:       l.tracker,
	}
}

// Error logs at error level and reports to the tracker when one is set
func (l *Logger) Error(args ...interface{}) {
	l.SugaredLogger.Error(args...)
	if l.tracker != nil {
		err := errors.Wrapf(errors.ErrInternal, "%v", args)
		_ = l.tracker.CaptureError(context.Background(), err, map[string]string{"component": "logger"})
	}
}

// Errorf logs a formatted error and reports to the tracker when one is set
func (l *Logger) Errorf(template string, args ...interface{}) {
	l.SugaredLogger.Errorf(template, args...)
	if l.tracker != nil {
		_ = l.tracker.CaptureError(context.Background(), fmt.Errorf(template, args...), map[string]string{"component": "logger"})
	}
}

// Sync flushes buffered entries on the global logger
func Sync() error {
	if global != nil {
		return global.SugaredLogger.Sync()
	}
	return nil
}
