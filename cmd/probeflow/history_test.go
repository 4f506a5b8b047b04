package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghalamif/ProbeFlow/internal/adapters/wal"
	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/export"
	"github.com/ghalamif/ProbeFlow/internal/registry"
	"github.com/ghalamif/ProbeFlow/internal/timeline"
)

func probeHistory(t *testing.T, serial uint32, samples int) []*domain.Event {
	t.Helper()
	start := time.Unix(1700000000, 0)
	fw := "3.0.1"
	events := []*domain.Event{
		{Kind: domain.EventProbeIdentified, ProbeSerial: serial, FirmwareVersion: &fw},
		{Kind: domain.EventSessionStarted, ProbeSerial: serial, SessionID: 1, SamplePeriodMs: 1000, StartTime: &start},
	}
	for i := 0; i < samples; i++ {
		s, err := domain.NewSample(uint32(i), []float64{20, 21, 22, 23, 24, 25, 26, 27})
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		events = append(events, domain.SampleEvent(serial, 1, s, start))
	}
	return events
}

// writeCSV exports the given events the way the export command would and
// returns the file path.
func writeCSV(t *testing.T, serial uint32, samples int) string {
	t.Helper()
	reg := registry.New()
	for _, e := range probeHistory(t, serial, samples) {
		if err := reg.Apply(e); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	id, h, err := reg.Snapshot(serial)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	doc := export.NewCombined(timeline.New(h), export.Metadata{
		Probe:      id,
		ExportedAt: time.Date(2024, 3, 4, 5, 6, 7, 0, time.Local),
		AppVersion: "1.0.0",
	})
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		t.Fatalf("write export: %v", err)
	}
	path := filepath.Join(t.TempDir(), doc.Filename())
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func historyCommand(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "history"}
	cmd.Flags().String("config", filepath.Join(t.TempDir(), "missing.yaml"), "")
	cmd.Flags().String("serial", "", "")
	addHistoryFlags(cmd)
	for name, value := range flags {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set --%s: %v", name, err)
		}
	}
	return cmd
}

func TestLoadHistoryFromCSV(t *testing.T) {
	path := writeCSV(t, 0xABC, 3)

	reg, cfg, err := loadHistory(historyCommand(t, map[string]string{"from-csv": path}))
	if err != nil {
		t.Fatalf("loadHistory returned error: %v", err)
	}
	if cfg == nil || cfg.WAL.Dir == "" {
		t.Fatalf("expected default config when the config file is missing, got %+v", cfg)
	}
	id, h, err := reg.Snapshot(0xABC)
	if err != nil {
		t.Fatalf("expected probe 0ABC: %v", err)
	}
	if id.FirmwareVersion == nil || *id.FirmwareVersion != "3.0.1" {
		t.Fatalf("firmware not restored: %+v", id)
	}
	if len(h.Sessions) != 1 || h.SampleCount() != 3 {
		t.Fatalf("expected one session with 3 samples, got %d/%d", len(h.Sessions), h.SampleCount())
	}
}

func TestLoadHistoryErrors(t *testing.T) {
	if _, _, err := loadHistory(historyCommand(t, nil)); err == nil {
		t.Fatalf("expected missing config to fail without --from-csv")
	}

	bad := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(bad, []byte("not an export"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, _, err := loadHistory(historyCommand(t, map[string]string{"from-csv": bad})); err == nil {
		t.Fatalf("expected malformed export to fail")
	}
}

func TestLoadHistoryFromWAL(t *testing.T) {
	walDir := t.TempDir()
	w, err := wal.NewFileWAL(walDir)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}
	for _, e := range probeHistory(t, 0x42, 2) {
		if _, err := w.Append(e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close wal: %v", err)
	}

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("wal:\n  dir: "+walDir+"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reg, _, err := loadHistory(historyCommand(t, map[string]string{"config": cfgPath}))
	if err != nil {
		t.Fatalf("loadHistory returned error: %v", err)
	}
	_, h, err := reg.Snapshot(0x42)
	if err != nil {
		t.Fatalf("expected probe 0042: %v", err)
	}
	if h.SampleCount() != 2 {
		t.Fatalf("expected 2 samples, got %d", h.SampleCount())
	}
}

func TestSerialFlag(t *testing.T) {
	one := registry.New()
	one.Register(domain.ProbeIdentity{SerialNumber: 0x10AB})
	two := registry.New()
	two.Register(domain.ProbeIdentity{SerialNumber: 0x1})
	two.Register(domain.ProbeIdentity{SerialNumber: 0x2})

	tests := []struct {
		name    string
		serial  string
		reg     *registry.Registry
		want    uint32
		wantErr bool
	}{
		{name: "hex upper", serial: "10AB", reg: two, want: 0x10AB},
		{name: "hex lower", serial: "0abc", reg: two, want: 0xABC},
		{name: "not hex", serial: "zz", reg: one, wantErr: true},
		{name: "single probe", serial: "", reg: one, want: 0x10AB},
		{name: "ambiguous", serial: "", reg: two, wantErr: true},
		{name: "no probes", serial: "", reg: registry.New(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := historyCommand(t, map[string]string{"serial": tt.serial})
			got, err := serialFlag(cmd, tt.reg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got serial %X", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("serialFlag returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %X, got %X", tt.want, got)
			}
		})
	}
}

func TestOfflineCommands(t *testing.T) {
	path := writeCSV(t, 0xABC, 3)
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	outDir := t.TempDir()

	root := newRootCmd()
	root.SetArgs([]string{"export", "--config", missing, "--from-csv", path, "--out", outDir})
	if err := root.Execute(); err != nil {
		t.Fatalf("export command: %v", err)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read out dir: %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "Probe Data - 0ABC - ") {
		t.Fatalf("expected one export in %s, got %v", outDir, entries)
	}

	root = newRootCmd()
	root.SetArgs([]string{"export", "--config", missing, "--from-csv", path, "--mode", "simple"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "--session") {
		t.Fatalf("expected simple export without --session to fail, got %v", err)
	}

	png := filepath.Join(t.TempDir(), "chart.png")
	root = newRootCmd()
	root.SetArgs([]string{"chart", "--config", missing, "--from-csv", path, "--out", png, "--unit", "F", "--width", "400", "--height", "300"})
	if err := root.Execute(); err != nil {
		t.Fatalf("chart command: %v", err)
	}
	data, err := os.ReadFile(png)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("chart is not a PNG")
	}

	root = newRootCmd()
	root.SetArgs([]string{"summary", "--config", missing, "--from-csv", path, "--json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("summary command: %v", err)
	}
}
