package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ghalamif/ProbeFlow"
	"github.com/ghalamif/ProbeFlow/internal/adapters/csvreplay"
	"github.com/ghalamif/ProbeFlow/internal/adapters/wal"
	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/export"
	"github.com/ghalamif/ProbeFlow/internal/ports"
)

// addHistoryFlags registers the flags shared by the offline commands.
func addHistoryFlags(cmd *cobra.Command) {
	cmd.Flags().String("from-csv", "", "Rebuild history from an exported CSV file instead of the WAL")
	cmd.Flags().Uint32("period", 1000, "Sample period in ms assumed for CSV sessions")
}

// loadHistory rebuilds the registry offline, either from the runtime's WAL
// (read-only, safe while it runs) or from an exported CSV file. Events the
// registry rejects are skipped.
func loadHistory(cmd *cobra.Command) (*probeflow.Registry, *probeflow.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	csvPath, _ := cmd.Flags().GetString("from-csv")
	period, _ := cmd.Flags().GetUint32("period")

	cfg, err := probeflow.LoadConfig(cfgPath)
	if err != nil {
		if csvPath == "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		cfg = probeflow.DefaultConfig()
	}

	reg := probeflow.NewRegistry()
	if csvPath != "" {
		events, err := csvEvents(csvPath, period)
		if err != nil {
			return nil, nil, err
		}
		for _, e := range events {
			_ = reg.Apply(e)
		}
		return reg, cfg, nil
	}

	err = wal.ReadDir(cfg.WAL.Dir, 1, func(_ ports.WALEntryID, e *domain.Event) error {
		_ = reg.Apply(e)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("read wal: %w", err)
	}
	return reg, cfg, nil
}

func csvEvents(path string, period uint32) ([]*domain.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parsed, err := export.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return csvreplay.Events(parsed, csvreplay.Config{Path: path, SamplePeriodMs: period})
}

// serialFlag parses --serial as hex. When omitted and exactly one probe is
// known, that probe is used.
func serialFlag(cmd *cobra.Command, reg *probeflow.Registry) (uint32, error) {
	raw, _ := cmd.Flags().GetString("serial")
	if raw == "" {
		probes := reg.Probes()
		if len(probes) != 1 {
			return 0, fmt.Errorf("--serial is required (%d probes known)", len(probes))
		}
		return probes[0].Identity.SerialNumber, nil
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid serial %q: %w", raw, err)
	}
	return uint32(v), nil
}
