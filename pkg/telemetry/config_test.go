// ABOUTME: Tests for telemetry configuration validation, environment variable loading and defaults

package telemetry

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ServiceName != "dircore" {
		t.Errorf("Expected default service name 'dircore', got '%s'", cfg.ServiceName)
	}
	if cfg.Enabled {
		t.Error("Expected telemetry to be disabled by default")
	}
	if cfg.ExportTimeout != 30*time.Second {
		t.Errorf("Expected default export timeout 30s, got %s", cfg.ExportTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty service name", func(c *Config) { c.ServiceName = "" }, true},
		{"sample rate too high", func(c *Config) { c.SampleRate = 1.5 }, true},
		{"zero export timeout", func(c *Config) { c.ExportTimeout = 0 }, true},
		{"unknown exporter", func(c *Config) { c.Exporters = []string{"jaeger"} }, true},
		{"otlp exporter", func(c *Config) { c.Exporters = []string{"otlp"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DIRCORE_TELEMETRY_ENABLED", "true")
	t.Setenv("DIRCORE_TELEMETRY_EXPORTERS", "stdout, otlp")
	t.Setenv("DIRCORE_TELEMETRY_SAMPLE_RATE", "0.5")
	t.Setenv("DIRCORE_TELEMETRY_BATCH_TIMEOUT", "2s")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	if !cfg.Enabled {
		t.Error("expected Enabled from env")
	}
	if !cfg.HasExporter("otlp") || !cfg.HasExporter("stdout") {
		t.Errorf("expected both exporters, got %v", cfg.Exporters)
	}
	if cfg.SampleRate != 0.5 {
		t.Errorf("expected sample rate 0.5, got %f", cfg.SampleRate)
	}
	if cfg.BatchTimeout != 2*time.Second {
		t.Errorf("expected batch timeout 2s, got %s", cfg.BatchTimeout)
	}
}
