package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ChannelCount is the number of temperature sensors on a probe (T1..T8).
const ChannelCount = 8

var (
	// ErrMalformedSample is returned when a sample does not carry exactly ChannelCount readings.
	ErrMalformedSample = errors.New("malformed sample")
	// ErrSequenceOrder is returned when a sample does not strictly follow the previous one in its session.
	ErrSequenceOrder = errors.New("sequence number out of order")
)

// Temperatures holds one Celsius reading per channel.
type Temperatures [ChannelCount]float64

// Sample is a single sequence-numbered reading of all probe channels.
type Sample struct {
	SequenceNumber uint32       `json:"seq"`
	Temperatures   Temperatures `json:"temps"`
}

// NewSample validates the reading count and builds a Sample. It never truncates or pads.
func NewSample(seq uint32, celsius []float64) (Sample, error) {
	if len(celsius) != ChannelCount {
		return Sample{}, fmt.Errorf("%w: seq %d has %d channel values, want %d",
			ErrMalformedSample, seq, len(celsius), ChannelCount)
	}
	s := Sample{SequenceNumber: seq}
	copy(s.Temperatures[:], celsius)
	return s, nil
}

// UnmarshalJSON rejects payloads whose temperature array is not exactly ChannelCount long.
// A plain [8]float64 decode would silently zero-fill short arrays.
func (s *Sample) UnmarshalJSON(b []byte) error {
	var raw struct {
		SequenceNumber *uint32   `json:"seq"`
		Temperatures   []float64 `json:"temps"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.SequenceNumber == nil {
		return fmt.Errorf("%w: missing seq", ErrMalformedSample)
	}
	parsed, err := NewSample(*raw.SequenceNumber, raw.Temperatures)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Channel returns the reading for a zero-based channel index.
func (s Sample) Channel(i int) float64 {
	return s.Temperatures[i]
}

// ChannelLabel returns "T1".."T8" for a zero-based channel index.
func ChannelLabel(i int) string {
	return fmt.Sprintf("T%d", i+1)
}
