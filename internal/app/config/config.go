package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/ProbeFlow/internal/adapters/natsbridge"
	"github.com/ghalamif/ProbeFlow/internal/adapters/sink"
	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/ports"
)

type Config struct {
	Policy  ports.Policy      `yaml:"policy"`
	Bridge  natsbridge.Config `yaml:"bridge"`
	Archive ArchiveConfig     `yaml:"archive"`
	Metrics MetricsConfig     `yaml:"metrics"`
	WAL     WALConfig         `yaml:"wal"`
	Export  ExportConfig      `yaml:"export"`
	API     APIConfig         `yaml:"api"`
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"` // "postgres", "pgx", "sqlite3"
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type WALConfig struct {
	Dir string `yaml:"dir"`
}

type ExportConfig struct {
	Dir        string                 `yaml:"dir"`
	AppVersion string                 `yaml:"app_version"`
	Unit       domain.TemperatureUnit `yaml:"unit"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Policy.MaxWALSizeBytes == 0 {
		c.Policy.MaxWALSizeBytes = 1 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 10_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 500
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.OnWALFull == "" {
		c.Policy.OnWALFull = "block"
	}
	if c.Archive.Driver == "" {
		c.Archive.Driver = "postgres"
	}
	if c.Archive.Table == "" {
		c.Archive.Table = "probe_samples"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.WAL.Dir == "" {
		c.WAL.Dir = "./data/wal"
	}
	if c.Export.Dir == "" {
		c.Export.Dir = os.TempDir()
	}
	if c.Export.AppVersion == "" {
		c.Export.AppVersion = "dev"
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}

	c.Bridge.ApplyDefaults()
}

func (c *Config) Validate() error {
	if c.Policy.MaxQueueLen <= 0 {
		return fmt.Errorf("policy.max_queue_len must be > 0")
	}
	if c.Policy.MaxBatchSize <= 0 {
		return fmt.Errorf("policy.max_batch_size must be > 0")
	}
	if err := validPolicy("policy.on_wal_full", c.Policy.OnWALFull, "block", "drop"); err != nil {
		return err
	}
	if err := validPolicy("policy.on_queue_full", c.Policy.OnQueueFull, "block", "drop", "reject"); err != nil {
		return err
	}
	// an empty bridge url leaves ingestion to embedded publishers
	if c.Bridge.Enabled() {
		if err := c.Bridge.Validate(); err != nil {
			return fmt.Errorf("bridge config: %w", err)
		}
	}
	if c.Archive.Enabled {
		if _, err := sink.DialectForDriver(c.Archive.Driver); err != nil {
			return fmt.Errorf("archive config: %w", err)
		}
		if c.Archive.DSN == "" {
			return fmt.Errorf("archive.dsn is required when the archive is enabled")
		}
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	if c.WAL.Dir == "" {
		return fmt.Errorf("wal.dir is required")
	}
	return nil
}

func validPolicy(key, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported policy %q", key, v)
}
