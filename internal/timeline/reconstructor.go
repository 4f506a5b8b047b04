// Package timeline places sequence-numbered samples on a wall-clock timeline.
//
// Each session contributes floor(seq * periodMs / 1000) seconds past its own
// start time. Sessions are stitched together relative to an anchor: the start
// time of the earliest session that has one. When no session has a start time
// every timestamp is zero.
package timeline

import (
	"time"

	"github.com/ghalamif/ProbeFlow/internal/domain"
)

// Row is one sample positioned on the combined timeline.
type Row struct {
	// Timestamp is seconds relative to the anchor.
	Timestamp      int64
	SessionID      uint32
	SequenceNumber uint32
	Temperatures   domain.Temperatures
}

// Reconstructor works over an immutable history snapshot.
type Reconstructor struct {
	history domain.History
	anchor  time.Time
	ok      bool
}

func New(h domain.History) *Reconstructor {
	r := &Reconstructor{history: h}
	for _, s := range h.Sessions {
		if s.StartTime != nil {
			r.anchor = *s.StartTime
			r.ok = true
			break
		}
	}
	return r
}

// Anchor returns the time-zero of the combined timeline.
func (r *Reconstructor) Anchor() (time.Time, bool) {
	return r.anchor, r.ok
}

// HasAnchor is false when no session has a known start time.
func (r *Reconstructor) HasAnchor() bool {
	return r.ok
}

// History returns the snapshot being reconstructed.
func (r *Reconstructor) History() domain.History {
	return r.history
}

// LocalOffsetSeconds is floor(seq * periodMs / 1000), computed in 64 bits.
func LocalOffsetSeconds(seq, samplePeriodMs uint32) int64 {
	return int64(uint64(seq) * uint64(samplePeriodMs) / 1000)
}

// Absolute returns startTime + local offset. ok is false when the session has no start time.
func Absolute(s *domain.Session, seq uint32) (time.Time, bool) {
	if s.StartTime == nil {
		return time.Time{}, false
	}
	off := LocalOffsetSeconds(seq, s.SamplePeriodMs)
	// time.Duration overflows past ~292 years of offset; stay in Unix seconds.
	start := *s.StartTime
	return time.Unix(start.Unix()+off, int64(start.Nanosecond())).In(start.Location()), true
}

// SessionStartDiff is floor(startTime - anchor) in seconds.
func (r *Reconstructor) SessionStartDiff(s *domain.Session) (int64, bool) {
	if !r.ok || s.StartTime == nil {
		return 0, false
	}
	diff := s.StartTime.Unix() - r.anchor.Unix()
	if s.StartTime.Nanosecond() < r.anchor.Nanosecond() {
		diff--
	}
	return diff, true
}

// Relative is the anchor-relative export timestamp. It is zero when there is no
// anchor or when the session itself has no start time.
func (r *Reconstructor) Relative(s *domain.Session, seq uint32) int64 {
	diff, ok := r.SessionStartDiff(s)
	if !ok {
		return 0
	}
	return LocalOffsetSeconds(seq, s.SamplePeriodMs) + diff
}

// Rows returns every sample in session-start order, then ascending sequence.
// Overlapping sessions are not merged; first in order wins.
func (r *Reconstructor) Rows() []Row {
	out := make([]Row, 0, r.history.SampleCount())
	for i := range r.history.Sessions {
		out = append(out, r.sessionRows(&r.history.Sessions[i])...)
	}
	return out
}

// SessionRows returns the rows of a single session, or false if it is not in the snapshot.
func (r *Reconstructor) SessionRows(id uint32) ([]Row, bool) {
	for i := range r.history.Sessions {
		if r.history.Sessions[i].ID == id {
			return r.sessionRows(&r.history.Sessions[i]), true
		}
	}
	return nil, false
}

func (r *Reconstructor) sessionRows(s *domain.Session) []Row {
	rows := make([]Row, len(s.Samples))
	for j, smp := range s.Samples {
		rows[j] = Row{
			Timestamp:      r.Relative(s, smp.SequenceNumber),
			SessionID:      s.ID,
			SequenceNumber: smp.SequenceNumber,
			Temperatures:   smp.Temperatures,
		}
	}
	return rows
}
