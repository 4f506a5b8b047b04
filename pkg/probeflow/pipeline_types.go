package probeflow

import (
	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/ports"
	"github.com/ghalamif/ProbeFlow/internal/registry"
)

// Event is the telemetry record that flows through the WAL→queue→registry pipeline.
type Event = domain.Event

// EventKind names what happened on the device.
type EventKind = domain.EventKind

const (
	EventProbeIdentified   = domain.EventProbeIdentified
	EventConnectionChanged = domain.EventConnectionChanged
	EventSessionStarted    = domain.EventSessionStarted
	EventStartTimeResolved = domain.EventStartTimeResolved
	EventSampleRecorded    = domain.EventSampleRecorded
	EventSessionRetired    = domain.EventSessionRetired
)

type (
	// Sample is one 8-channel reading in Celsius.
	Sample = domain.Sample
	// Session is a contiguous recording run on one probe.
	Session = domain.Session
	// History is the ordered session list of one probe.
	History = domain.History
	// ProbeIdentity carries serial, firmware and hardware revision.
	ProbeIdentity = domain.ProbeIdentity
	// ConnectionState is the link state reported for a probe.
	ConnectionState = domain.ConnectionState
	// TemperatureUnit selects Celsius or Fahrenheit output.
	TemperatureUnit = domain.TemperatureUnit
	// ProbeSummary is one row of the probe overview.
	ProbeSummary = registry.Summary
	// Registry holds the live session logs of every known probe.
	Registry = registry.Registry
)

const (
	Celsius    = domain.Celsius
	Fahrenheit = domain.Fahrenheit
)

// NewSample validates that exactly eight readings were supplied.
func NewSample(seq uint32, celsius []float64) (Sample, error) {
	return domain.NewSample(seq, celsius)
}

// NewRegistry returns an empty probe registry.
func NewRegistry() *Registry {
	return registry.New()
}

// QueuedEvent represents an item buffered inside the bounded queue.
type QueuedEvent = ports.QueuedEvent

// Collector streams events from any device bridge into the pipeline.
type Collector = ports.Collector

// EventQueue is the bounded, in-memory queue that decouples the collector and the registry.
type EventQueue = ports.EventQueue

// Applier folds events into probe history.
type Applier = ports.Applier

// Sink consumes batches of applied events and persists them to any downstream system.
type Sink = ports.Sink

// Observability emits metrics/logs about throughput, latency, and DLQ conditions.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// WAL abstracts the write-ahead log used for durability and crash recovery.
type WAL = ports.WAL

// WALStats exposes WAL metadata for observability.
type WALStats = ports.WALStats

// WALEntryID uniquely identifies a WAL entry.
type WALEntryID = ports.WALEntryID
