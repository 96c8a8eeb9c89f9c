package memstore

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/KevoDB/dircore/pkg/telemetry"
)

// Metrics records store-level telemetry.
type Metrics interface {
	// RecordOperation records the duration and outcome of a store operation
	RecordOperation(ctx context.Context, op string, duration time.Duration, success bool)

	// RecordEntryCount records the number of entries held after a mutation
	RecordEntryCount(ctx context.Context, n int)

	// RecordBloomSkip records an equality lookup short-circuited by a bloom filter
	RecordBloomSkip(ctx context.Context, attr string)

	Close() error
}

type storeMetrics struct {
	tel telemetry.Telemetry
}

// NewMetrics creates store metrics backed by tel. A nil tel yields a no-op.
func NewMetrics(tel telemetry.Telemetry) Metrics {
	if tel == nil {
		return noopMetrics{}
	}
	return &storeMetrics{tel: tel}
}

func (m *storeMetrics) RecordOperation(ctx context.Context, op string, duration time.Duration, success bool) {
	status := telemetry.StatusSuccess
	if !success {
		status = telemetry.StatusError
	}

	m.tel.RecordHistogram(ctx, "dircore.store.operation.duration", duration.Seconds(),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentStore),
		attribute.String(telemetry.AttrOperationType, op),
	)
	m.tel.RecordCounter(ctx, "dircore.store.operations.total", 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentStore),
		attribute.String(telemetry.AttrOperationType, op),
		attribute.String(telemetry.AttrStatus, status),
	)
}

func (m *storeMetrics) RecordEntryCount(ctx context.Context, n int) {
	m.tel.RecordHistogram(ctx, "dircore.store.entries", float64(n),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentStore),
	)
}

func (m *storeMetrics) RecordBloomSkip(ctx context.Context, attr string) {
	m.tel.RecordCounter(ctx, "dircore.store.bloom.skips", 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentStore),
		attribute.String(telemetry.AttrAttribute, attr),
	)
}

func (m *storeMetrics) Close() error {
	return nil
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(context.Context, string, time.Duration, bool) {}
func (noopMetrics) RecordEntryCount(context.Context, int)                        {}
func (noopMetrics) RecordBloomSkip(context.Context, string)                      {}
func (noopMetrics) Close() error                                                 { return nil }
