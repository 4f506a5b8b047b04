// Package csvreplay feeds a previously exported probe file back into the
// pipeline as telemetry events, for offline analysis and archive backfill.
package csvreplay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/export"
	"github.com/ghalamif/ProbeFlow/internal/ports"
	"github.com/ghalamif/ProbeFlow/internal/timeline"
)

// Config describes how to rebuild sessions from an export. Exports carry
// timestamps but not sample periods, so the period is supplied here.
type Config struct {
	Path           string
	SamplePeriodMs uint32
	// Anchor is the wall-clock time of timestamp zero. Defaults to the
	// export's header date.
	Anchor time.Time
	// SessionID is used for simple exports, which do not name their session.
	SessionID uint32
	// Serial overrides the serial number from the header when non-zero.
	Serial uint32
}

func (c *Config) ApplyDefaults() {
	if c.SamplePeriodMs == 0 {
		c.SamplePeriodMs = 1000
	}
	if c.SessionID == 0 {
		c.SessionID = 1
	}
}

func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

// Events converts a parsed export into the event stream that would have
// produced it. Every replayed session is retired at the end.
func Events(p *export.Parsed, cfg Config) ([]*domain.Event, error) {
	cfg.ApplyDefaults()
	serial := p.Meta.Probe.SerialNumber
	if cfg.Serial != 0 {
		serial = cfg.Serial
	}
	anchor := cfg.Anchor
	if anchor.IsZero() {
		anchor = p.Meta.ExportedAt
	}
	if anchor.IsZero() {
		return nil, fmt.Errorf("replay %s: no anchor time in header or config", cfg.Path)
	}
	at := anchor

	out := make([]*domain.Event, 0, len(p.Rows)+4)
	out = append(out, &domain.Event{
		Kind:             domain.EventProbeIdentified,
		ProbeSerial:      serial,
		FirmwareVersion:  p.Meta.Probe.FirmwareVersion,
		HardwareRevision: p.Meta.Probe.HardwareRevision,
		ObservedAt:       at,
	})

	var (
		started = make(map[uint32]bool)
		order   []uint32
	)
	for _, row := range p.Rows {
		sid := row.SessionID
		if p.Mode == export.Simple {
			sid = cfg.SessionID
		}
		if !started[sid] {
			started[sid] = true
			order = append(order, sid)
			offset := timeline.LocalOffsetSeconds(row.SequenceNumber, cfg.SamplePeriodMs)
			start := anchor
			if p.Mode == export.Combined {
				start = time.Unix(anchor.Unix()+row.Timestamp-offset, int64(anchor.Nanosecond())).In(anchor.Location())
			}
			out = append(out, &domain.Event{
				Kind:           domain.EventSessionStarted,
				ProbeSerial:    serial,
				SessionID:      sid,
				SamplePeriodMs: cfg.SamplePeriodMs,
				StartTime:      &start,
				ObservedAt:     at,
			})
		}
		s := domain.Sample{SequenceNumber: row.SequenceNumber, Temperatures: row.Temperatures}
		out = append(out, domain.SampleEvent(serial, sid, s, at))
	}
	for _, sid := range order {
		out = append(out, &domain.Event{Kind: domain.EventSessionRetired, ProbeSerial: serial, SessionID: sid, ObservedAt: at})
	}
	return out, nil
}

// Collector replays one export file. It parses the file on Start and emits
// the events asynchronously; Done is closed once every event was handed off.
type Collector struct {
	cfg    Config
	obs    ports.Observability
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

func NewCollector(cfg Config, obs ports.Observability) (*Collector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Collector{cfg: cfg, obs: obs, done: make(chan struct{})}, nil
}

func (c *Collector) Start(out chan<- *domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return fmt.Errorf("csv replay collector already started")
	}

	f, err := os.Open(c.cfg.Path)
	if err != nil {
		return err
	}
	parsed, err := export.Parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("replay %s: %w", c.cfg.Path, err)
	}
	events, err := Events(parsed, c.cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go func() {
		defer close(c.done)
		for _, e := range events {
			select {
			case <-ctx.Done():
				return
			case out <- e:
			}
		}
		c.obs.LogInfo("csv_replay_complete",
			ports.Field{Key: "path", Value: c.cfg.Path},
			ports.Field{Key: "rows", Value: len(parsed.Rows)})
	}()
	return nil
}

// Done is closed when replay finishes or is stopped.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

func (c *Collector) Stop() error {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-c.done
	return nil
}

var _ ports.Collector = (*Collector)(nil)
