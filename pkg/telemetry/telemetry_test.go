// ABOUTME: Tests for the telemetry interface, no-op implementation and SDK-backed provider
// ABOUTME: Validates recording, span creation and lifecycle management

package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestNoopTelemetry(t *testing.T) {
	tel := NewNoop()
	ctx := context.Background()

	tel.RecordHistogram(ctx, "test.histogram", 1.5, attribute.String("key", "value"))
	tel.RecordCounter(ctx, "test.counter", 10, attribute.String("key", "value"))

	spanCtx, span := tel.StartSpan(ctx, "test.span", attribute.String("test", "value"))
	if spanCtx == nil {
		t.Error("StartSpan returned nil context")
	}
	if span == nil {
		t.Error("StartSpan returned nil span")
	}
	span.End()

	if err := tel.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
}

func TestNewDisabledReturnsNoop(t *testing.T) {
	tel, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tel.(*NoopTelemetry); !ok {
		t.Errorf("expected *NoopTelemetry, got %T", tel)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(Config{Enabled: true})
	if err == nil {
		t.Fatal("expected error for empty service name")
	}
}

func TestProviderRecordsAndShutsDown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporters = []string{"stdout"}

	tel, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	provider, ok := tel.(*TelemetryProvider)
	if !ok {
		t.Fatalf("expected *TelemetryProvider, got %T", tel)
	}

	ctx := context.Background()
	tel.RecordCounter(ctx, "dircore.test.counter", 1, attribute.String(AttrComponent, ComponentCursor))
	tel.RecordCounter(ctx, "dircore.test.counter", 2, attribute.String(AttrComponent, ComponentCursor))
	tel.RecordHistogram(ctx, "dircore.test.histogram", 0.25)

	if len(provider.counters) != 1 || len(provider.histograms) != 1 {
		t.Errorf("expected instruments to be cached once, got %d counters and %d histograms",
			len(provider.counters), len(provider.histograms))
	}

	_, span := tel.StartSpan(ctx, "dircore.test.span")
	span.End()

	if err := tel.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
}

func TestCreateExporters(t *testing.T) {
	tests := []struct {
		name      string
		exporters []string
		metrics   int
		spans     int
		wantErr   bool
	}{
		{"default", nil, 1, 1, false},
		{"stdout", []string{"stdout"}, 1, 1, false},
		{"otlp traces only", []string{"otlp"}, 0, 1, false},
		{"both", []string{"stdout", "otlp"}, 1, 2, false},
		{"unknown", []string{"jaeger"}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Exporters = tt.exporters

			metrics, err := createMetricExporters(cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unknown exporter")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			spans, err := createTraceExporters(cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(metrics) != tt.metrics {
				t.Errorf("expected %d metric exporters, got %d", tt.metrics, len(metrics))
			}
			if len(spans) != tt.spans {
				t.Errorf("expected %d span exporters, got %d", tt.spans, len(spans))
			}

			ctx := context.Background()
			for _, exp := range metrics {
				_ = exp.Shutdown(ctx)
			}
			for _, exp := range spans {
				_ = exp.Shutdown(ctx)
			}
		})
	}
}
