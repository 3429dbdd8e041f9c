package errors

import (
	"errors"
	"fmt"
)

// Storage and transport sentinels

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates insufficient permissions
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")
)

// Model provider sentinels

var (
	// ErrNoProvider indicates no language model provider is configured or reachable
	ErrNoProvider = errors.New("no language model provider available")

	// ErrMalformedModelOutput indicates the model returned unparseable structured output
	ErrMalformedModelOutput = errors.New("malformed model output")

	// ErrEmptyCompletion indicates the model returned an empty completion
	ErrEmptyCompletion = errors.New("empty completion")
)

// Conversation and expense sentinels

var (
	// ErrNoPendingExpense indicates a confirmation arrived with no pending suggestion
	ErrNoPendingExpense = errors.New("no pending expense to confirm")

	// ErrInvalidAmount indicates an expense amount that is zero or negative
	ErrInvalidAmount = errors.New("invalid expense amount")

	// ErrSessionExpired indicates session context is gone from the cache
	ErrSessionExpired = errors.New("session expired")
)

// Is reports whether err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target's type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap adds context while keeping the chain intact for Is checks
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// New creates a plain error
func New(message string) error {
	return errors.New(message)
}
