package cursor

import (
	"sync"
)

// ClosureMonitor tracks whether a cursor has been closed and why. A monitor can
// be shared between a cursor and its consumer so that the consumer learns the
// cause of an upstream close, such as an abandoned search.
type ClosureMonitor interface {
	// Close marks the monitor closed. Only the first cause is kept.
	Close(cause error)

	// IsClosed reports whether Close has been called
	IsClosed() bool

	// Cause returns the recorded cause, or nil
	Cause() error

	// CheckNotClosed returns nil while open, ErrClosed after a plain close and
	// a *ClosedError after a close with a cause.
	CheckNotClosed() error
}

// DefaultClosureMonitor is the monitor every cursor uses unless another is injected.
type DefaultClosureMonitor struct {
	mu     sync.Mutex
	closed bool
	cause  error
}

// NewClosureMonitor returns an open DefaultClosureMonitor.
func NewClosureMonitor() *DefaultClosureMonitor {
	return &DefaultClosureMonitor{}
}

func (m *DefaultClosureMonitor) Close(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.cause = cause
}

func (m *DefaultClosureMonitor) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *DefaultClosureMonitor) Cause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cause
}

func (m *DefaultClosureMonitor) CheckNotClosed() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		return nil
	}
	if m.cause != nil {
		return &ClosedError{Cause: m.cause}
	}
	return ErrClosed
}
