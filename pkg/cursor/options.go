package cursor

import (
	"context"

	"github.com/KevoDB/dircore/pkg/common/log"
)

// Options holds the collaborators injected into a cursor at construction.
type Options struct {
	Logger  log.Logger
	Metrics Metrics
	Monitor ClosureMonitor
	Context context.Context
}

// Option configures a cursor
type Option func(*Options)

// WithLogger sets the logger used for diagnostics and close failures
func WithLogger(l log.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

// WithClosureMonitor replaces the cursor's private closure monitor
func WithClosureMonitor(m ClosureMonitor) Option {
	return func(o *Options) {
		o.Monitor = m
	}
}

// WithContext sets the context passed to metrics and spans
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		o.Context = ctx
	}
}

// NewOptions applies opts over the defaults: a no-op logger, no-op metrics,
// a fresh DefaultClosureMonitor and context.Background.
func NewOptions(opts ...Option) Options {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}

	o.Logger = log.OrNop(o.Logger)
	if o.Metrics == nil {
		o.Metrics = NewNoopMetrics()
	}
	if o.Monitor == nil {
		o.Monitor = NewClosureMonitor()
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	return o
}

// Base carries the state every cursor shares: its options and closure monitor.
// Cursors embed it and call CheckNotClosed at the top of each operation.
type Base struct {
	Options
	Type string

	released bool
}

// NewBase creates the shared state for a cursor of the given type name.
func NewBase(cursorType string, opts ...Option) Base {
	o := NewOptions(opts...)
	o.Logger = o.Logger.WithField("cursor", cursorType)
	return Base{Options: o, Type: cursorType}
}

// CheckNotClosed returns the closed error if the cursor was closed.
func (b *Base) CheckNotClosed() error {
	return b.Monitor.CheckNotClosed()
}

// IsClosed reports whether the cursor was closed.
func (b *Base) IsClosed() bool {
	return b.Monitor.IsClosed()
}

// MarkClosed records the close on the monitor. It reports false if this cursor
// already released its resources, in which case the caller should do nothing.
// A shared monitor closed elsewhere still lets the cursor release once.
func (b *Base) MarkClosed(cause error) bool {
	if b.released {
		return false
	}
	b.released = true
	b.Monitor.Close(cause)
	return true
}
