package cursor

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPosition is returned by Get when the cursor is not on an element
	ErrInvalidPosition = errors.New("cursor not positioned on an element")

	// ErrUnsupported is returned for operations a cursor cannot perform
	ErrUnsupported = errors.New("unsupported cursor operation")

	// ErrClosed is returned by any operation on a closed cursor
	ErrClosed = errors.New("cursor closed")

	// ErrAbandoned is returned when the search driving a cursor was abandoned
	ErrAbandoned = errors.New("operation abandoned")
)

// ClosedError reports that a cursor was closed for a specific reason.
// It matches ErrClosed with errors.Is and unwraps to the cause.
type ClosedError struct {
	Cause error
}

func (e *ClosedError) Error() string {
	if e.Cause == nil {
		return ErrClosed.Error()
	}
	return fmt.Sprintf("%s: %v", ErrClosed, e.Cause)
}

// Is lets errors.Is(err, ErrClosed) succeed.
func (e *ClosedError) Is(target error) bool {
	return target == ErrClosed
}

func (e *ClosedError) Unwrap() error {
	return e.Cause
}

// Unsupported wraps ErrUnsupported with the name of the operation.
func Unsupported(cursorType, op string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnsupported, cursorType, op)
}
