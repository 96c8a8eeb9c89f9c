// Package cursor defines the bidirectional cursor protocol shared by every
// traversal in dircore, along with in-memory cursors and the option set used
// to inject logging, metrics and closure monitoring.
//
// A cursor is either before the first element, positioned on an element,
// after the last element, or closed. Cursors are not safe for concurrent use:
// one caller drives a cursor at a time and there is no internal locking.
package cursor

// Cursor is a positionable iterator over elements of type E.
//
// Get succeeds only while Available reports true. Next and Previous return
// false once they run off either end and keep returning false on repeated
// calls. After Close every operation except IsClosed, Available and Close
// fails with an error satisfying errors.Is(err, ErrClosed).
type Cursor[E any] interface {
	// Before positions the cursor so that Next returns the first element not
	// less than pivot. Cursors without an ordering return ErrUnsupported.
	Before(pivot E) error

	// After positions the cursor so that Next returns the first element greater
	// than pivot. Cursors without an ordering return ErrUnsupported.
	After(pivot E) error

	// BeforeFirst positions the cursor before the first element
	BeforeFirst() error

	// AfterLast positions the cursor after the last element
	AfterLast() error

	// First positions the cursor on the first element
	First() (bool, error)

	// Last positions the cursor on the last element
	Last() (bool, error)

	// Next advances to the next element
	Next() (bool, error)

	// Previous moves back to the previous element
	Previous() (bool, error)

	// Get returns the current element
	Get() (E, error)

	// Available reports whether Get would succeed
	Available() bool

	// IsClosed reports whether the cursor has been closed
	IsClosed() bool

	// Close releases the cursor. Closing twice is a no-op.
	Close() error

	// CloseWithCause closes the cursor and records why, so that later calls
	// report the cause through a *ClosedError.
	CloseWithCause(cause error) error
}

// Positional is implemented by cursors that can report where they sit
// relative to the ends of their range.
type Positional interface {
	IsFirst() bool
	IsLast() bool
	IsBeforeFirst() bool
	IsAfterLast() bool
}

// Collect drains c from its current position forward and returns every element.
// The cursor is left after the last element and is not closed.
func Collect[E any](c Cursor[E]) ([]E, error) {
	var out []E
	for {
		ok, err := c.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		e, err := c.Get()
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}
