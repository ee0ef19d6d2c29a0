package hierarchy

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for malformed input. It is always raised
	// before any storage mutation begins.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced node or note does not exist.
	ErrNotFound = errors.New("not found")
)

// StorageError reports a failed database operation. The enclosing
// transaction has been rolled back by the time a caller sees it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Kind classifies err for boundary layers: "validation", "not_found",
// "storage", or "unknown".
func Kind(err error) string {
	var se *StorageError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &se):
		return "storage"
	default:
		return "unknown"
	}
}
