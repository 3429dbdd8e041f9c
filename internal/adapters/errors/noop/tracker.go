package noop

import (
	"context"

	"steuerpilot/pkg/errors"
)

// Tracker discards everything. Used when no DSN is configured and in tests.
type Tracker struct{}

// New creates a no-op tracker
func New() *Tracker { return &Tracker{} }

func (t *Tracker) CaptureError(context.Context, error, map[string]string) error { return nil }

func (t *Tracker) CaptureMessage(context.Context, string, errors.Level, map[string]string) error {
	return nil
}

func (t *Tracker) Flush(context.Context) error { return nil }
