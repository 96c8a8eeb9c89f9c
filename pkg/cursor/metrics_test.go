package cursor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/KevoDB/dircore/pkg/common/log"
	"github.com/KevoDB/dircore/pkg/telemetry"
)

// mockTelemetry captures recorded metrics
type mockTelemetry struct {
	mu         sync.Mutex
	histograms map[string][]float64
	counters   map[string][]int64
	attrs      map[string][]attribute.KeyValue
}

func newMockTelemetry() *mockTelemetry {
	return &mockTelemetry{
		histograms: make(map[string][]float64),
		counters:   make(map[string][]int64),
		attrs:      make(map[string][]attribute.KeyValue),
	}
}

func (m *mockTelemetry) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[name] = append(m.histograms[name], value)
	m.attrs[name] = attrs
}

func (m *mockTelemetry) RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] = append(m.counters[name], value)
	m.attrs[name] = attrs
}

func (m *mockTelemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

func (m *mockTelemetry) Shutdown(ctx context.Context) error {
	return nil
}

func (m *mockTelemetry) counterTotal(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, v := range m.counters[name] {
		total += v
	}
	return total
}

func hasAttr(attrs []attribute.KeyValue, key, value string) bool {
	for _, kv := range attrs {
		if string(kv.Key) == key && kv.Value.Emit() == value {
			return true
		}
	}
	return false
}

func TestNewMetricsNilTelemetry(t *testing.T) {
	m := NewMetrics(nil)
	_, ok := m.(*noopMetrics)
	assert.True(t, ok)
	assert.NoError(t, m.Close())
}

func TestMetricsRecording(t *testing.T) {
	tel := newMockTelemetry()
	m := NewMetrics(tel)
	ctx := context.Background()

	m.RecordStep(ctx, "list", telemetry.OpTypeNext, time.Microsecond, true)
	m.RecordStep(ctx, "list", telemetry.OpTypeNext, time.Microsecond, false)
	m.RecordFiltered(ctx, 2, false)
	m.RecordDescent(ctx, 3)
	m.RecordIndexPath(ctx, "uid", true)
	m.RecordClose(ctx, "composite", 2)

	assert.Equal(t, int64(2), tel.counterTotal("dircore.cursor.operations.total"))
	assert.Len(t, tel.histograms["dircore.cursor.step.duration"], 2)
	assert.True(t, hasAttr(tel.attrs["dircore.cursor.operations.total"], telemetry.AttrStatus, "exhausted"))
	assert.Equal(t, int64(1), tel.counterTotal("dircore.cursor.filter.candidates"))
	assert.Equal(t, []float64{3}, tel.histograms["dircore.cursor.descent.depth"])
	assert.True(t, hasAttr(tel.attrs["dircore.cursor.equality.path"], telemetry.AttrOperationType, telemetry.OpTypeLookup))
	assert.Equal(t, int64(2), tel.counterTotal("dircore.cursor.close.failures"))
	assert.True(t, hasAttr(tel.attrs["dircore.cursor.close.total"], telemetry.AttrStatus, telemetry.StatusError))
}

func TestListCursorRecordsSteps(t *testing.T) {
	tel := newMockTelemetry()
	c := NewListCursor([]int{1, 2}, nil, WithMetrics(NewMetrics(tel)))

	_, err := Collect[int](c)
	assert.NoError(t, err)
	assert.NoError(t, c.Close())

	// Two hits and one exhausted step
	assert.Equal(t, int64(3), tel.counterTotal("dircore.cursor.operations.total"))
	assert.Equal(t, int64(1), tel.counterTotal("dircore.cursor.close.total"))
}

func TestNewOptionsDefaults(t *testing.T) {
	o := NewOptions()
	assert.NotNil(t, o.Logger)
	assert.NotNil(t, o.Metrics)
	assert.NotNil(t, o.Monitor)
	assert.NotNil(t, o.Context)

	l := log.NewStandardLogger()
	ctx := context.WithValue(context.Background(), struct{}{}, 1)
	o = NewOptions(WithLogger(l), WithContext(ctx))
	assert.Equal(t, log.Logger(l), o.Logger)
	assert.Equal(t, ctx, o.Context)
}
