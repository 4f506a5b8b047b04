package probeflow

import (
	"github.com/ghalamif/ProbeFlow/internal/adapters/csvreplay"
	"github.com/ghalamif/ProbeFlow/internal/adapters/natsbridge"
	"github.com/ghalamif/ProbeFlow/internal/app/config"
	"github.com/ghalamif/ProbeFlow/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls WAL/queue thresholds.
	Policy = ports.Policy
	// BridgeConfig holds the NATS connection and subject for device telemetry.
	BridgeConfig = natsbridge.Config
	// ReplayConfig describes how an exported file is fed back as events.
	ReplayConfig = csvreplay.Config
	// ArchiveConfig configures the SQL sample archive.
	ArchiveConfig = config.ArchiveConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// WALConfig configures on-disk durability.
	WALConfig = config.WALConfig
	// ExportConfig sets the export directory, app version and default unit.
	ExportConfig = config.ExportConfig
	// APIConfig configures the read API server.
	APIConfig = config.APIConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a config with every default applied, for callers that
// build the runtime without a YAML file.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}
