// ABOUTME: Cursor telemetry metrics interface and implementation for tracking traversal operations
// ABOUTME: Covers stepping, filtering, subtree descent, index path selection and close fan-out

package cursor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/KevoDB/dircore/pkg/telemetry"
)

// Metrics defines the telemetry operations recorded by cursors.
// All metrics are optional; implementations can safely be no-op.
type Metrics interface {
	telemetry.ComponentMetrics

	// RecordStep records one Next or Previous call and whether it landed on an element.
	RecordStep(ctx context.Context, cursorType, op string, duration time.Duration, available bool)

	// RecordFiltered records the outcome of running a candidate through a filter chain.
	RecordFiltered(ctx context.Context, filterCount int, accepted bool)

	// RecordDescent records a subtree cursor pushing a frame at the given depth.
	RecordDescent(ctx context.Context, depth int)

	// RecordIndexPath records whether an equality cursor used an index or a full scan.
	RecordIndexPath(ctx context.Context, attr string, indexed bool)

	// RecordClose records a close and how many inner closes failed.
	RecordClose(ctx context.Context, cursorType string, failures int)
}

// cursorMetrics implements Metrics using the telemetry interface.
type cursorMetrics struct {
	tel telemetry.Telemetry
}

// NewMetrics creates a metrics implementation backed by tel.
// If tel is nil, returns a no-op implementation.
func NewMetrics(tel telemetry.Telemetry) Metrics {
	if tel == nil {
		return &noopMetrics{}
	}
	return &cursorMetrics{tel: tel}
}

// NewNoopMetrics creates a no-op metrics implementation.
func NewNoopMetrics() Metrics {
	return &noopMetrics{}
}

func (m *cursorMetrics) RecordStep(ctx context.Context, cursorType, op string, duration time.Duration, available bool) {
	m.tel.RecordHistogram(ctx, "dircore.cursor.step.duration", duration.Seconds(),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentCursor),
		attribute.String(telemetry.AttrCursorType, cursorType),
		attribute.String(telemetry.AttrOperationType, op),
	)

	m.tel.RecordCounter(ctx, "dircore.cursor.operations.total", 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentCursor),
		attribute.String(telemetry.AttrCursorType, cursorType),
		attribute.String(telemetry.AttrOperationType, op),
		attribute.String(telemetry.AttrStatus, statusFromAvailable(available)),
	)
}

func (m *cursorMetrics) RecordFiltered(ctx context.Context, filterCount int, accepted bool) {
	m.tel.RecordCounter(ctx, "dircore.cursor.filter.candidates", 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentCursor),
		attribute.String(telemetry.AttrOperationType, telemetry.OpTypeFilter),
		attribute.Int("filter_count", filterCount),
		attribute.Bool("accepted", accepted),
	)
}

func (m *cursorMetrics) RecordDescent(ctx context.Context, depth int) {
	m.tel.RecordHistogram(ctx, "dircore.cursor.descent.depth", float64(depth),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentSearch),
		attribute.String(telemetry.AttrOperationType, telemetry.OpTypeDescend),
	)
}

func (m *cursorMetrics) RecordIndexPath(ctx context.Context, attr string, indexed bool) {
	path := telemetry.OpTypeScan
	if indexed {
		path = telemetry.OpTypeLookup
	}
	m.tel.RecordCounter(ctx, "dircore.cursor.equality.path", 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentSearch),
		attribute.String(telemetry.AttrAttribute, attr),
		attribute.String(telemetry.AttrOperationType, path),
	)
}

func (m *cursorMetrics) RecordClose(ctx context.Context, cursorType string, failures int) {
	status := telemetry.StatusSuccess
	if failures > 0 {
		status = telemetry.StatusError
	}
	m.tel.RecordCounter(ctx, "dircore.cursor.close.total", 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentCursor),
		attribute.String(telemetry.AttrCursorType, cursorType),
		attribute.String(telemetry.AttrOperationType, telemetry.OpTypeClose),
		attribute.String(telemetry.AttrStatus, status),
	)
	if failures > 0 {
		m.tel.RecordCounter(ctx, "dircore.cursor.close.failures", int64(failures),
			attribute.String(telemetry.AttrCursorType, cursorType),
		)
	}
}

// Close implements telemetry.ComponentMetrics.
func (m *cursorMetrics) Close() error {
	return nil
}

// noopMetrics is used when telemetry is disabled.
type noopMetrics struct{}

func (n *noopMetrics) RecordStep(ctx context.Context, cursorType, op string, duration time.Duration, available bool) {
}

func (n *noopMetrics) RecordFiltered(ctx context.Context, filterCount int, accepted bool) {}

func (n *noopMetrics) RecordDescent(ctx context.Context, depth int) {}

func (n *noopMetrics) RecordIndexPath(ctx context.Context, attr string, indexed bool) {}

func (n *noopMetrics) RecordClose(ctx context.Context, cursorType string, failures int) {}

func (n *noopMetrics) Close() error { return nil }

func statusFromAvailable(available bool) string {
	if available {
		return telemetry.StatusSuccess
	}
	return "exhausted"
}
