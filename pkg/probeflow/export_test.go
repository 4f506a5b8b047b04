package probeflow

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ghalamif/ProbeFlow/internal/domain"
)

func seededRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, e := range probeEvents(0x0ABC, 3) {
		if err := reg.Apply(e); err != nil {
			t.Fatalf("Apply returned error: %v", err)
		}
	}
	return reg
}

func TestWriteExportSimple(t *testing.T) {
	reg := seededRegistry(t)
	now := func() time.Time { return time.Date(2024, 3, 4, 5, 6, 7, 800, time.Local) }

	var buf bytes.Buffer
	name, err := WriteExport(&buf, reg, 0x0ABC, ExportOptions{Mode: Simple, SessionID: 1, AppVersion: "9.9", Now: now})
	if err != nil {
		t.Fatalf("WriteExport returned error: %v", err)
	}
	if name != "Probe Data - 0ABC - 2024-03-04 05_06_07.csv" {
		t.Fatalf("unexpected filename %q", name)
	}
	lines := strings.Split(buf.String(), "\n")
	if lines[8] != "SequenceNumber,T1,T2,T3,T4,T5,T6,T7,T8" {
		t.Fatalf("unexpected column header %q", lines[8])
	}
	if lines[9] != "0,20.00,21.00,22.00,23.00,24.00,25.00,26.00,27.00" {
		t.Fatalf("unexpected first row %q", lines[9])
	}

	if _, err := WriteExport(&buf, reg, 0x0ABC, ExportOptions{Mode: Simple, SessionID: 4}); !errors.Is(err, domain.ErrUnknownSession) {
		t.Fatalf("expected unknown session, got %v", err)
	}
}

func TestExportProbeWritesAndRemoves(t *testing.T) {
	reg := seededRegistry(t)
	dir := t.TempDir()

	art, err := ExportProbe(reg, 0x0ABC, ExportOptions{Dir: dir, AppVersion: "1"})
	if err != nil {
		t.Fatalf("ExportProbe returned error: %v", err)
	}
	raw, err := os.ReadFile(art.Path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !strings.HasSuffix(string(raw), "2,1,2,20.00,21.00,22.00,23.00,24.00,25.00,26.00,27.00") {
		t.Fatalf("unexpected combined tail: %q", raw)
	}
	if err := RemoveExport(art.Path); err != nil {
		t.Fatalf("RemoveExport returned error: %v", err)
	}
	if err := RemoveExport(art.Path); err != nil {
		t.Fatalf("second RemoveExport must be a no-op, got %v", err)
	}
}

func TestBuildSeriesAndChart(t *testing.T) {
	reg := seededRegistry(t)

	set, err := BuildSeries(reg, 0x0ABC, Fahrenheit)
	if err != nil {
		t.Fatalf("BuildSeries returned error: %v", err)
	}
	if set.Len() != 3 {
		t.Fatalf("expected 3 points per channel, got %d", set.Len())
	}
	if y := set.Channels[0].Points[0].Y; y != 68 {
		t.Fatalf("expected 20C as 68F, got %v", y)
	}

	var png bytes.Buffer
	if err := RenderChart(&png, reg, 0x0ABC, Celsius, ChartOptions{Width: 320, Height: 200}); err != nil {
		t.Fatalf("RenderChart returned error: %v", err)
	}
	if !bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("expected PNG output")
	}
	if err := RenderChart(&png, reg, 0xFFFF, Celsius, ChartOptions{}); !errors.Is(err, domain.ErrUnknownProbe) {
		t.Fatalf("expected unknown probe, got %v", err)
	}
}

func TestParseExportMode(t *testing.T) {
	if m, err := ParseExportMode("simple"); err != nil || m != Simple {
		t.Fatalf("expected simple, got %v %v", m, err)
	}
	if _, err := ParseExportMode("xml"); err == nil {
		t.Fatalf("expected unknown mode error")
	}
}
