package domain

import (
	"errors"
	"time"
)

var (
	ErrUnknownSession   = errors.New("unknown session")
	ErrDuplicateSession = errors.New("session already exists")
	ErrSessionRetired   = errors.New("session is retired")
	ErrStartTimeChanged = errors.New("session start time already resolved")
)

// Session is one contiguous recording interval on a probe.
type Session struct {
	ID             uint32     `json:"id"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	SamplePeriodMs uint32     `json:"sample_period_ms"`
	Samples        []Sample   `json:"samples"`
	Retired        bool       `json:"retired"`
}

// HasStartTime reports whether the session can be placed on the global timeline.
func (s *Session) HasStartTime() bool {
	return s.StartTime != nil
}

// Clone returns a deep copy safe to hand to readers.
func (s *Session) Clone() Session {
	out := Session{
		ID:             s.ID,
		SamplePeriodMs: s.SamplePeriodMs,
		Retired:        s.Retired,
	}
	if s.StartTime != nil {
		t := *s.StartTime
		out.StartTime = &t
	}
	if len(s.Samples) > 0 {
		out.Samples = make([]Sample, len(s.Samples))
		copy(out.Samples, s.Samples)
	}
	return out
}

// History is an immutable, ordered snapshot of a probe's sessions.
type History struct {
	Sessions []Session `json:"sessions"`
}

// SampleCount is the total number of samples across all sessions.
func (h History) SampleCount() int {
	n := 0
	for i := range h.Sessions {
		n += len(h.Sessions[i].Samples)
	}
	return n
}

// Session looks up a session by ID.
func (h History) Session(id uint32) (Session, bool) {
	for _, s := range h.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return Session{}, false
}

// SessionSummary is the per-session line shown in probe summaries.
// Sessions without a start time still report their sample count.
type SessionSummary struct {
	ID             uint32     `json:"id"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	SamplePeriodMs uint32     `json:"sample_period_ms"`
	SampleCount    int        `json:"sample_count"`
	FirstSequence  *uint32    `json:"first_seq,omitempty"`
	LastSequence   *uint32    `json:"last_seq,omitempty"`
	Retired        bool       `json:"retired"`
	Anchorable     bool       `json:"anchorable"`
}

// Summarize builds the summary line for a session.
func Summarize(s Session) SessionSummary {
	sum := SessionSummary{
		ID:             s.ID,
		SamplePeriodMs: s.SamplePeriodMs,
		SampleCount:    len(s.Samples),
		Retired:        s.Retired,
		Anchorable:     s.HasStartTime(),
	}
	if s.StartTime != nil {
		t := *s.StartTime
		sum.StartTime = &t
	}
	if n := len(s.Samples); n > 0 {
		first := s.Samples[0].SequenceNumber
		last := s.Samples[n-1].SequenceNumber
		sum.FirstSequence = &first
		sum.LastSequence = &last
	}
	return sum
}
