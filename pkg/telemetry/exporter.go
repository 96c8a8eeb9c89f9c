package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

// exporterFactory builds the exporters one configured exporter name stands
// for. Either constructor may be nil when the destination does not take that
// signal.
type exporterFactory struct {
	metrics func(cfg Config) (metric.Exporter, error)
	spans   func(cfg Config) (trace.SpanExporter, error)
}

var exporterFactories = map[string]exporterFactory{
	"stdout": {
		metrics: func(Config) (metric.Exporter, error) {
			return stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		},
		spans: func(Config) (trace.SpanExporter, error) {
			return stdouttrace.New(stdouttrace.WithPrettyPrint())
		},
	},
	"otlp": {
		spans: func(cfg Config) (trace.SpanExporter, error) {
			return otlptracegrpc.New(
				context.Background(),
				otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
				otlptracegrpc.WithInsecure(),
			)
		},
	},
}

// exporterNames returns the configured names, or stdout when none are set.
func exporterNames(cfg Config) []string {
	if len(cfg.Exporters) == 0 {
		return []string{"stdout"}
	}
	return cfg.Exporters
}

func createMetricExporters(cfg Config) ([]metric.Exporter, error) {
	var exporters []metric.Exporter
	for _, name := range exporterNames(cfg) {
		f, ok := exporterFactories[name]
		if !ok {
			return nil, fmt.Errorf("unknown exporter %q", name)
		}
		if f.metrics == nil {
			continue
		}
		exp, err := f.metrics(cfg)
		if err != nil {
			return nil, fmt.Errorf("create %s metric exporter: %w", name, err)
		}
		exporters = append(exporters, exp)
	}
	return exporters, nil
}

func createTraceExporters(cfg Config) ([]trace.SpanExporter, error) {
	var exporters []trace.SpanExporter
	for _, name := range exporterNames(cfg) {
		f, ok := exporterFactories[name]
		if !ok {
			return nil, fmt.Errorf("unknown exporter %q", name)
		}
		if f.spans == nil {
			continue
		}
		exp, err := f.spans(cfg)
		if err != nil {
			return nil, fmt.Errorf("create %s trace exporter: %w", name, err)
		}
		exporters = append(exporters, exp)
	}
	return exporters, nil
}
