package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidEvent = errors.New("invalid telemetry event")

// EventKind names what happened on the device.
type EventKind string

const (
	EventProbeIdentified   EventKind = "probe_identified"
	EventConnectionChanged EventKind = "connection_changed"
	EventSessionStarted    EventKind = "session_started"
	EventStartTimeResolved EventKind = "start_time_resolved"
	EventSampleRecorded    EventKind = "sample_recorded"
	EventSessionRetired    EventKind = "session_retired"
)

// Event is the canonical unit of telemetry flowing through ProbeFlow.
// Only the fields relevant to Kind are populated.
type Event struct {
	Kind             EventKind        `json:"kind"`
	ProbeSerial      uint32           `json:"probe_serial"`
	SessionID        uint32           `json:"session_id,omitempty"`
	SamplePeriodMs   uint32           `json:"sample_period_ms,omitempty"`
	StartTime        *time.Time       `json:"start_time,omitempty"`
	Sample           *Sample          `json:"sample,omitempty"`
	State            *ConnectionState `json:"state,omitempty"`
	FirmwareVersion  *string          `json:"firmware_version,omitempty"`
	HardwareRevision *string          `json:"hardware_revision,omitempty"`
	ObservedAt       time.Time        `json:"observed_at"`
}

// Validate checks that the fields required by Kind are present.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}
	switch e.Kind {
	case EventProbeIdentified:
		return nil
	case EventConnectionChanged:
		if e.State == nil {
			return fmt.Errorf("%w: %s without state", ErrInvalidEvent, e.Kind)
		}
	case EventSessionStarted:
		if e.SamplePeriodMs == 0 {
			return fmt.Errorf("%w: session %d has zero sample period", ErrInvalidEvent, e.SessionID)
		}
	case EventStartTimeResolved:
		if e.StartTime == nil {
			return fmt.Errorf("%w: %s without start time", ErrInvalidEvent, e.Kind)
		}
	case EventSampleRecorded:
		if e.Sample == nil {
			return fmt.Errorf("%w: %s without sample", ErrInvalidEvent, e.Kind)
		}
	case EventSessionRetired:
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	return nil
}

// SampleEvent is a convenience constructor used by collectors.
func SampleEvent(serial, session uint32, s Sample, at time.Time) *Event {
	return &Event{
		Kind:        EventSampleRecorded,
		ProbeSerial: serial,
		SessionID:   session,
		Sample:      &s,
		ObservedAt:  at,
	}
}
