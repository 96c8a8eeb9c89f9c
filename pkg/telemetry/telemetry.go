// Package telemetry wraps OpenTelemetry behind a small interface so that
// cursors and stores can record metrics and spans without importing the SDK.
// The zero configuration is disabled and yields a no-op implementation.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry records metrics and spans for dircore components.
type Telemetry interface {
	// RecordHistogram records a histogram value
	RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue)

	// RecordCounter adds value to a counter
	RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue)

	// StartSpan starts a span as a child of any span in ctx
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)

	// Shutdown flushes pending exports and stops the providers
	Shutdown(ctx context.Context) error
}

// ComponentMetrics is embedded by the metrics interfaces of cursors and stores.
type ComponentMetrics interface {
	Close() error
}

// NoopTelemetry discards everything.
type NoopTelemetry struct{}

// NewNoop returns telemetry that records nothing.
func NewNoop() Telemetry {
	return &NoopTelemetry{}
}

func (n *NoopTelemetry) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
}

func (n *NoopTelemetry) RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) {
}

// StartSpan returns ctx unchanged along with the span it already carries.
func (n *NoopTelemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

func (n *NoopTelemetry) Shutdown(ctx context.Context) error {
	return nil
}

// Attribute keys
const (
	AttrOperationType = "operation.type"
	AttrComponent     = "component"
	AttrCursorType    = "cursor.type"
	AttrStatus        = "status"
	AttrAttribute     = "ldap.attribute"
)

// Operation types recorded under AttrOperationType
const (
	OpTypeNext     = "next"
	OpTypePrevious = "previous"
	OpTypeFilter   = "filter"
	OpTypeDescend  = "descend"
	OpTypeClose    = "close"
	OpTypeLookup   = "lookup"
	OpTypeScan     = "scan"
	OpTypeAdd      = "add"
	OpTypeDelete   = "delete"
)

// Values for AttrStatus and AttrComponent
const (
	StatusSuccess = "success"
	StatusError   = "error"

	ComponentCursor = "cursor"
	ComponentStore  = "store"
	ComponentSearch = "search"
)
