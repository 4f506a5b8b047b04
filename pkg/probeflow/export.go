package probeflow

import (
	"io"
	"time"

	"github.com/ghalamif/ProbeFlow/internal/chart"
	"github.com/ghalamif/ProbeFlow/internal/export"
	"github.com/ghalamif/ProbeFlow/internal/series"
	"github.com/ghalamif/ProbeFlow/internal/timeline"
)

type (
	// ExportMode selects the combined (all sessions) or simple (one session) table.
	ExportMode = export.Mode
	// Artifact is a written export file. The caller owns its removal.
	Artifact = export.Artifact
	// SeriesSet holds the eight channel point sequences of one probe.
	SeriesSet = series.Set
	// ChartOptions sizes and titles a rendered chart.
	ChartOptions = chart.Options
)

const (
	Combined = export.Combined
	Simple   = export.Simple
)

var (
	// ErrWriteFailure wraps storage errors hit while writing an export.
	ErrWriteFailure = export.ErrWriteFailure
	// ErrNoChartData is returned when no session has a start time or samples.
	ErrNoChartData = chart.ErrNoData
)

// ExportOptions controls a single export. Zero values fall back to a combined
// export into os.TempDir() stamped with the current time.
type ExportOptions struct {
	Mode       ExportMode
	SessionID  uint32
	Dir        string
	AppVersion string
	Now        func() time.Time
}

// ParseExportMode accepts "combined" and "simple".
func ParseExportMode(s string) (ExportMode, error) {
	return export.ParseMode(s)
}

// WriteExport renders the export table of one probe into w and returns the
// filename it would be saved under.
func WriteExport(w io.Writer, reg *Registry, serial uint32, opts ExportOptions) (string, error) {
	doc, _, err := exportDocument(reg, serial, opts)
	if err != nil {
		return "", err
	}
	if _, err := doc.WriteTo(w); err != nil {
		return "", err
	}
	return doc.Filename(), nil
}

// ExportProbe writes the export of one probe to opts.Dir.
func ExportProbe(reg *Registry, serial uint32, opts ExportOptions) (Artifact, error) {
	art, _, err := exportProbe(reg, serial, opts)
	return art, err
}

// RemoveExport deletes an artifact written by ExportProbe. Missing files are ignored.
func RemoveExport(path string) error {
	return export.Remove(path)
}

// exportProbe also reports whether the exported snapshot had an anchor.
func exportProbe(reg *Registry, serial uint32, opts ExportOptions) (Artifact, bool, error) {
	doc, anchored, err := exportDocument(reg, serial, opts)
	if err != nil {
		return Artifact{}, false, err
	}
	art, err := export.NewWriter(opts.Dir).Write(doc)
	if err != nil {
		return Artifact{}, false, err
	}
	return art, anchored, nil
}

func exportDocument(reg *Registry, serial uint32, opts ExportOptions) (*export.Document, bool, error) {
	id, h, err := reg.Snapshot(serial)
	if err != nil {
		return nil, false, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	meta := export.Metadata{Probe: id, ExportedAt: export.Stamp(now()), AppVersion: opts.AppVersion}

	r := timeline.New(h)
	if opts.Mode == Simple {
		doc, err := export.NewSimple(r, opts.SessionID, meta)
		return doc, r.HasAnchor(), err
	}
	return export.NewCombined(r, meta), r.HasAnchor(), nil
}

// BuildSeries converts the history of one probe into chartable series.
func BuildSeries(reg *Registry, serial uint32, unit TemperatureUnit) (*SeriesSet, error) {
	_, h, err := reg.Snapshot(serial)
	if err != nil {
		return nil, err
	}
	return series.Build(h, unit), nil
}

// RenderChart draws the series of one probe as a PNG. An empty title defaults
// to "Probe <serial>".
func RenderChart(w io.Writer, reg *Registry, serial uint32, unit TemperatureUnit, opts ChartOptions) error {
	id, h, err := reg.Snapshot(serial)
	if err != nil {
		return err
	}
	if opts.Title == "" {
		opts.Title = "Probe " + id.SerialHex()
	}
	return chart.Render(w, series.Build(h, unit), opts)
}
