package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"steuerpilot/pkg/errors"
)

const flushWait = 2 * time.Second

// Tracker reports errors to Sentry
type Tracker struct {
	hub *sentry.Hub
}

// New initializes the Sentry client and returns a tracker bound to the
// current hub
func New(dsn, environment string) (*Tracker, error) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	}); err != nil {
		return nil, err
	}
	return &Tracker{hub: sentry.CurrentHub()}, nil
}

// CaptureError sends an error with tags on a cloned scope
func (t *Tracker) CaptureError(_ context.Context, err error, tags map[string]string) error {
	hub := t.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
	})
	hub.CaptureException(err)
	return nil
}

// CaptureMessage sends a message at the mapped severity
func (t *Tracker) CaptureMessage(_ context.Context, message string, level errors.Level, tags map[string]string) error {
	hub := t.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		scope.SetLevel(toSentryLevel(level))
	})
	hub.CaptureMessage(message)
	return nil
}

// Flush drains the event queue, bounded by flushWait
func (t *Tracker) Flush(context.Context) error {
	sentry.Flush(flushWait)
	return nil
}

func toSentryLevel(level errors.Level) sentry.Level {
	switch level {
	case errors.LevelDebug:
		return sentry.LevelDebug
	case errors.LevelWarning:
		return sentry.LevelWarning
	case errors.LevelError:
		return sentry.LevelError
	case errors.LevelFatal:
		return sentry.LevelFatal
	default:
		return sentry.LevelInfo
	}
}
