package errors

import "context"

// Tracker reports errors to an external service such as Sentry. A no-op
// implementation exists for deployments without tracking configured.
type Tracker interface {
	// CaptureError sends an error with optional tags
	CaptureError(ctx context.Context, err error, tags map[string]string) error

	// CaptureMessage sends a plain message at the given severity
	CaptureMessage(ctx context.Context, message string, level Level, tags map[string]string) error

	// Flush blocks until pending events are delivered or ctx expires
	Flush(ctx context.Context) error
}

// Level is the severity attached to tracked events
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

func (l Level) String() string { return string(l) }
