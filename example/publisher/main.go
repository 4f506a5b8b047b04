// Command publisher simulates a probe in-process and writes a combined export.
package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/ghalamif/ProbeFlow"
)

func main() {
	dir, err := os.MkdirTemp("", "probeflow-wal-*")
	if err != nil {
		log.Fatalf("wal dir: %v", err)
	}
	defer os.RemoveAll(dir)

	pub, err := probeflow.NewPublisher(&probeflow.PublisherConfig{
		WAL: probeflow.WALConfig{Dir: dir},
	}, nil)
	if err != nil {
		log.Fatalf("publisher: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	defer pub.Close(ctx)

	const serial = 0x1F2E
	start := time.Now().Add(-time.Minute).Truncate(time.Second)
	fw := "1.4.2"
	events := []*probeflow.Event{
		{Kind: probeflow.EventProbeIdentified, ProbeSerial: serial, FirmwareVersion: &fw, ObservedAt: start},
		{Kind: probeflow.EventSessionStarted, ProbeSerial: serial, SessionID: 1, SamplePeriodMs: 1000, StartTime: &start, ObservedAt: start},
	}
	for seq := uint32(0); seq < 60; seq++ {
		temps := make([]float64, 8)
		for ch := range temps {
			temps[ch] = 20 + float64(ch) + math.Sin(float64(seq)/10)
		}
		s, err := probeflow.NewSample(seq, temps)
		if err != nil {
			log.Fatalf("sample: %v", err)
		}
		events = append(events, &probeflow.Event{
			Kind:        probeflow.EventSampleRecorded,
			ProbeSerial: serial,
			SessionID:   1,
			Sample:      &s,
			ObservedAt:  start.Add(time.Duration(seq) * time.Second),
		})
	}

	for _, e := range events {
		if err := pub.Publish(e); err != nil {
			log.Fatalf("publish: %v", err)
		}
	}
	if err := pub.Flush(ctx); err != nil {
		log.Fatalf("flush: %v", err)
	}

	for _, p := range pub.Registry().Probes() {
		fmt.Printf("%s  %-12s  %s  %d records  %s\n",
			p.Serial, p.State, p.RangeText(), p.RecordCount, p.CurrentText(probeflow.Celsius))
	}

	art, err := probeflow.ExportProbe(pub.Registry(), serial, probeflow.ExportOptions{AppVersion: "example"})
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Printf("wrote %d rows to %s\n", art.Rows, art.Path)
}
