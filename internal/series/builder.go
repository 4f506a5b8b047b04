// Package series turns a probe history into eight chart-ready channel series.
package series

import (
	"math"

	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/timeline"
)

// Point is one chart entry. X is seconds since the Unix epoch.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Channel is a labelled series for one sensor.
type Channel struct {
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

// Bounds returns the min and max Y of the series; ok is false when it is empty.
func (c Channel) Bounds() (lo, hi float64, ok bool) {
	if len(c.Points) == 0 {
		return 0, 0, false
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range c.Points {
		lo = math.Min(lo, p.Y)
		hi = math.Max(hi, p.Y)
	}
	return lo, hi, true
}

// Set is the full T1..T8 output. All channels are index-aligned.
type Set struct {
	Unit     domain.TemperatureUnit       `json:"unit"`
	Channels [domain.ChannelCount]Channel `json:"channels"`
	// Skipped lists sessions that had samples but no start time.
	Skipped []uint32 `json:"skipped_sessions,omitempty"`
}

// Len is the number of points per channel.
func (s *Set) Len() int {
	return len(s.Channels[0].Points)
}

// Bounds is the min/max across every channel.
func (s *Set) Bounds() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, ch := range s.Channels {
		l, h, has := ch.Bounds()
		if !has {
			continue
		}
		ok = true
		lo = math.Min(lo, l)
		hi = math.Max(hi, h)
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

// Build produces the series over every session with a known start time.
// Sessions without one contribute no points; the gap is left visible.
func Build(h domain.History, unit domain.TemperatureUnit) *Set {
	out := &Set{Unit: unit}
	n := 0
	for _, s := range h.Sessions {
		if s.HasStartTime() {
			n += len(s.Samples)
		}
	}
	for i := range out.Channels {
		out.Channels[i] = Channel{Label: domain.ChannelLabel(i), Points: make([]Point, 0, n)}
	}

	for i := range h.Sessions {
		s := &h.Sessions[i]
		if !s.HasStartTime() {
			if len(s.Samples) > 0 {
				out.Skipped = append(out.Skipped, s.ID)
			}
			continue
		}
		for _, smp := range s.Samples {
			ts, _ := timeline.Absolute(s, smp.SequenceNumber)
			x := float64(ts.Unix()) + float64(ts.Nanosecond())/1e9
			for c := 0; c < domain.ChannelCount; c++ {
				out.Channels[c].Points = append(out.Channels[c].Points, Point{
					X: x,
					Y: unit.Convert(smp.Temperatures[c]),
				})
			}
		}
	}
	return out
}
