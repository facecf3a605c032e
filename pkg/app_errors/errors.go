package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed or missing client input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEventNotFound is returned when no event has the requested id.
	ErrEventNotFound = errors.New("event not found")
	// ErrPersistence marks on-disk state that could not be read or written.
	ErrPersistence = errors.New("persistence failure")
)

// Invalid wraps ErrInvalidInput with a descriptive message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Persistence wraps ErrPersistence around the underlying storage error.
func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// Message strips the sentinel prefix so the text can be shown to a client.
func Message(err error) string {
	for _, sentinel := range []error{ErrInvalidInput, ErrEventNotFound, ErrPersistence} {
		prefix := sentinel.Error() + ": "
		if msg := err.Error(); errors.Is(err, sentinel) && len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
			return msg[len(prefix):]
		}
	}
	return err.Error()
}
