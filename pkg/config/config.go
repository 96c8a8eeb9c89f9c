package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/KevoDB/dircore/pkg/common/log"
	"github.com/KevoDB/dircore/pkg/entry"
	"github.com/KevoDB/dircore/pkg/telemetry"
)

const (
	CurrentConfigVersion = 1
)

var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrConfigNotFound = errors.New("configuration file not found")
)

// Config describes how a directory store is indexed and how its records are
// encoded. It is safe to read from several goroutines; use Update to mutate.
type Config struct {
	Version int `json:"version" yaml:"version"`

	// Attributes that get an equality index. Names are normalized to lower case.
	IndexedAttributes []string `json:"indexed_attributes" yaml:"indexed_attributes"`

	// Record encoding
	RecordCompression entry.Compression `json:"record_compression" yaml:"record_compression"`
	VerifyChecksums   bool              `json:"verify_checksums" yaml:"verify_checksums"`

	// Expected number of values per equality index, used to size bloom filters
	BloomExpectedItems int     `json:"bloom_expected_items" yaml:"bloom_expected_items"`
	BloomFalsePositive float64 `json:"bloom_false_positive" yaml:"bloom_false_positive"`

	LogLevel  string           `json:"log_level" yaml:"log_level"`
	Telemetry telemetry.Config `json:"telemetry" yaml:"telemetry"`

	mu sync.RWMutex
}

// NewDefaultConfig creates a Config with recommended default values
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,

		IndexedAttributes: []string{"objectclass", "uid", "cn", "mail"},

		RecordCompression: entry.CompressionSnappy,
		VerifyChecksums:   true,

		BloomExpectedItems: 4096,
		BloomFalsePositive: 0.01,

		LogLevel:  "info",
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Version <= 0 {
		return fmt.Errorf("%w: invalid version %d", ErrInvalidConfig, c.Version)
	}

	for _, attr := range c.IndexedAttributes {
		if strings.TrimSpace(attr) == "" {
			return fmt.Errorf("%w: empty indexed attribute name", ErrInvalidConfig)
		}
	}

	if _, err := entry.ParseCompression(string(c.RecordCompression)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.BloomExpectedItems <= 0 {
		return fmt.Errorf("%w: bloom expected items must be positive", ErrInvalidConfig)
	}

	if c.BloomFalsePositive <= 0 || c.BloomFalsePositive >= 1 {
		return fmt.Errorf("%w: bloom false positive rate must be in (0, 1)", ErrInvalidConfig)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Telemetry.Enabled {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("%w: telemetry: %v", ErrInvalidConfig, err)
		}
	}

	return nil
}

// NormalizedIndexedAttributes returns the indexed attribute names lower-cased
// and de-duplicated, in configuration order.
func (c *Config) NormalizedIndexedAttributes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{}, len(c.IndexedAttributes))
	out := make([]string, 0, len(c.IndexedAttributes))
	for _, attr := range c.IndexedAttributes {
		name := entry.NormalizeAttributeName(attr)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// isYAML reports whether the path should be read and written as YAML.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadConfig reads a configuration file. Files ending in .yaml or .yml are
// parsed as YAML, anything else as JSON. Missing fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := NewDefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to path, replacing any existing file atomically.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	c.mu.RLock()
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename config: %w", err)
	}

	return nil
}

// Update applies the given function to modify the configuration
func (c *Config) Update(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}
