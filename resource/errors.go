package resource

import (
	"errors"
	"fmt"
)

// Resource layer errors
var (
	// ErrUnsupportedOperation is returned by operations that have no defined semantics yet
	ErrUnsupportedOperation = errors.New("operation not supported")

	// ErrResourceExists is returned when a derived resource id already has statements
	ErrResourceExists = errors.New("resource already exists")

	// ErrHashReplaceIncomplete is returned when the old hash was removed but the new one was not stored
	ErrHashReplaceIncomplete = errors.New("password hash replacement incomplete")
)

// EntryError identifies the caller-supplied triple that could not be used.
type EntryError struct {
	Index    int
	Position string
	Err      error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d: invalid %s: %v", e.Index, e.Position, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// HashReplaceError reports a password change that left the user without a stored hash.
type HashReplaceError struct {
	Username string
	Err      error
}

func (e *HashReplaceError) Error() string {
	return fmt.Sprintf("user %s: %v: %v", e.Username, ErrHashReplaceIncomplete, e.Err)
}

// Unwrap exposes both the sentinel and the store failure to errors.Is.
func (e *HashReplaceError) Unwrap() []error {
	return []error{ErrHashReplaceIncomplete, e.Err}
}
