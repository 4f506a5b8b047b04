package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ghalamif/ProbeFlow/internal/domain"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
policy:
  max_queue_len: 1000
bridge:
  url: nats://localhost:4222
export:
  unit: F
  app_version: "2.4.0"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Policy.MaxQueueLen != 1000 {
		t.Fatalf("expected explicit MaxQueueLen 1000, got %d", cfg.Policy.MaxQueueLen)
	}
	if cfg.Policy.IdleSleep != 5*time.Millisecond {
		t.Fatalf("expected IdleSleep default 5ms, got %s", cfg.Policy.IdleSleep)
	}
	if cfg.Policy.MaxBatchSize != 500 {
		t.Fatalf("expected MaxBatchSize default 500, got %d", cfg.Policy.MaxBatchSize)
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Fatalf("expected default metrics addr :9100, got %s", cfg.Metrics.Addr)
	}
	if cfg.WAL.Dir != "./data/wal" {
		t.Fatalf("expected default wal dir ./data/wal, got %s", cfg.WAL.Dir)
	}
	if cfg.Bridge.Subject != "probeflow.telemetry.>" {
		t.Fatalf("expected default bridge subject, got %s", cfg.Bridge.Subject)
	}
	if cfg.Archive.Enabled || cfg.Archive.Table != "probe_samples" {
		t.Fatalf("expected disabled archive with default table, got %+v", cfg.Archive)
	}
	if cfg.Export.Unit != domain.Fahrenheit {
		t.Fatalf("expected export unit F, got %s", cfg.Export.Unit)
	}
	if cfg.Export.AppVersion != "2.4.0" {
		t.Fatalf("expected app version 2.4.0, got %s", cfg.Export.AppVersion)
	}
	if cfg.Export.Dir != os.TempDir() {
		t.Fatalf("expected export dir to default to the temp dir, got %s", cfg.Export.Dir)
	}
}

func TestLoadRejectsInvalidArchive(t *testing.T) {
	path := writeConfig(t, `
archive:
  enabled: true
  driver: mysql
  dsn: "user@tcp(localhost)/db"
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "archive config") {
		t.Fatalf("expected archive driver error, got %v", err)
	}

	path = writeConfig(t, `
archive:
  enabled: true
  driver: sqlite3
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "archive.dsn") {
		t.Fatalf("expected missing dsn error, got %v", err)
	}
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	path := writeConfig(t, `
policy:
  on_queue_full: spill
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "policy.on_queue_full") {
		t.Fatalf("expected policy error, got %v", err)
	}
}

func TestLoadRejectsUnknownUnit(t *testing.T) {
	path := writeConfig(t, `
export:
  unit: kelvin
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unit parse error")
	}
}
