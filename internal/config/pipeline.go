package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the pipeline config checked into the repo.
const DefaultConfigPath = "config/scoutqr.json"

// PipelineConfig is the JSON configuration of the ingest pipeline and the
// commands around it. Every field is optional; the Get* methods supply the
// default for a field that is not set.
type PipelineConfig struct {
	// Schema registry YAML. Empty uses the registry built into the binary.
	SchemaPath *string `json:"schema_path,omitempty"`

	// Storage
	DatabasePath *string `json:"database_path,omitempty"`

	// Batch sources
	DataDir       *string `json:"data_dir,omitempty"`
	BatchGlob     *string `json:"batch_glob,omitempty"`
	OverridesPath *string `json:"overrides_path,omitempty"`

	// Consolidation
	UnconsolidatedFields []string `json:"unconsolidated_fields,omitempty"`

	// Serial QR scanner
	SerialPort    *string `json:"serial_port,omitempty"`
	SerialBaud    *int    `json:"serial_baud,omitempty"`
	FlushInterval *string `json:"flush_interval,omitempty"` // duration string like "30s"

	// Logging
	LogDir *string `json:"log_dir,omitempty"`
	Debug  *bool   `json:"debug,omitempty"`

	// HTTP
	ListenAddr *string `json:"listen_addr,omitempty"`
}

// EmptyPipelineConfig returns a PipelineConfig with all fields unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *PipelineConfig) Validate() error {
	if c.BatchGlob != nil {
		if _, err := filepath.Match(*c.BatchGlob, ""); err != nil {
			return fmt.Errorf("invalid batch_glob %q: %w", *c.BatchGlob, err)
		}
	}
	if c.SerialBaud != nil && *c.SerialBaud <= 0 {
		return fmt.Errorf("serial_baud must be positive, got %d", *c.SerialBaud)
	}
	if c.FlushInterval != nil && *c.FlushInterval != "" {
		d, err := time.ParseDuration(*c.FlushInterval)
		if err != nil {
			return fmt.Errorf("invalid flush_interval '%s': %w", *c.FlushInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("flush_interval must be positive, got %s", d)
		}
	}
	if c.DatabasePath != nil && *c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	return nil
}

func stringOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

// GetSchemaPath returns the registry path, or "" for the built-in registry.
func (c *PipelineConfig) GetSchemaPath() string { return stringOr(c.SchemaPath, "") }

// GetDatabasePath returns the sqlite database file.
func (c *PipelineConfig) GetDatabasePath() string { return stringOr(c.DatabasePath, "scoutqr.db") }

// GetDataDir returns the directory batch files are read from.
func (c *PipelineConfig) GetDataDir() string { return stringOr(c.DataDir, "data") }

// GetBatchGlob returns the pattern selecting batch files inside the data dir.
func (c *PipelineConfig) GetBatchGlob() string { return stringOr(c.BatchGlob, "*.txt") }

// GetOverridesPath returns the overrides file, or "" when none is used.
func (c *PipelineConfig) GetOverridesPath() string { return stringOr(c.OverridesPath, "") }

// GetUnconsolidatedFields returns the per-scout fields left out of canonical
// records. nil selects the consolidator's default.
func (c *PipelineConfig) GetUnconsolidatedFields() []string {
	return c.UnconsolidatedFields
}

// GetSerialPort returns the QR scanner's serial device.
func (c *PipelineConfig) GetSerialPort() string { return stringOr(c.SerialPort, "/dev/ttyACM0") }

// GetSerialBaud returns the QR scanner's baud rate.
func (c *PipelineConfig) GetSerialBaud() int {
	if c.SerialBaud == nil {
		return 115200
	}
	return *c.SerialBaud
}

// GetFlushInterval parses and returns how often scanned QRs are ingested.
func (c *PipelineConfig) GetFlushInterval() time.Duration {
	if c.FlushInterval == nil || *c.FlushInterval == "" {
		return 30 * time.Second // default
	}
	d, err := time.ParseDuration(*c.FlushInterval)
	if err != nil {
		return 30 * time.Second // default on parse error
	}
	return d
}

// GetLogDir returns the rotating log directory, or "" to log to stderr only.
func (c *PipelineConfig) GetLogDir() string { return stringOr(c.LogDir, "") }

// GetDebug reports whether debug logging is enabled.
func (c *PipelineConfig) GetDebug() bool { return c.Debug != nil && *c.Debug }

// GetListenAddr returns the HTTP listen address of the serve command.
func (c *PipelineConfig) GetListenAddr() string { return stringOr(c.ListenAddr, "localhost:8080") }
