// Package sessionlog keeps the ordered recording sessions of a single probe.
package sessionlog

import (
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/ProbeFlow/internal/domain"
)

// Log is an append-only, ordered store of sessions. It is safe for concurrent use;
// readers work on Snapshot copies so a sample arriving mid-export cannot change them.
type Log struct {
	mu       sync.RWMutex
	sessions []*domain.Session
	index    map[uint32]int
	samples  int
}

func New() *Log {
	return &Log{index: make(map[uint32]int)}
}

// StartSession registers a new session in start order.
func (l *Log) StartSession(id, samplePeriodMs uint32) error {
	if samplePeriodMs == 0 {
		return fmt.Errorf("session %d: sample period must be > 0", id)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[id]; ok {
		return fmt.Errorf("session %d: %w", id, domain.ErrDuplicateSession)
	}
	l.index[id] = len(l.sessions)
	l.sessions = append(l.sessions, &domain.Session{ID: id, SamplePeriodMs: samplePeriodMs})
	return nil
}

// ResolveStartTime records the absolute start once the device handshake determines it.
// Re-resolving to the same instant is a no-op.
func (l *Log) ResolveStartTime(id uint32, start time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.lookupLocked(id)
	if err != nil {
		return err
	}
	if s.StartTime != nil {
		if s.StartTime.Equal(start) {
			return nil
		}
		return fmt.Errorf("session %d: %w", id, domain.ErrStartTimeChanged)
	}
	if s.Retired {
		return fmt.Errorf("session %d: %w", id, domain.ErrSessionRetired)
	}
	t := start
	s.StartTime = &t
	return nil
}

// AppendSample adds a sample to the end of a session. Sequence numbers must strictly increase.
func (l *Log) AppendSample(id uint32, sample domain.Sample) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.lookupLocked(id)
	if err != nil {
		return err
	}
	if s.Retired {
		return fmt.Errorf("session %d: %w", id, domain.ErrSessionRetired)
	}
	if n := len(s.Samples); n > 0 {
		last := s.Samples[n-1].SequenceNumber
		if sample.SequenceNumber <= last {
			return fmt.Errorf("session %d: seq %d after %d: %w",
				id, sample.SequenceNumber, last, domain.ErrSequenceOrder)
		}
	}
	s.Samples = append(s.Samples, sample)
	l.samples++
	return nil
}

// Retire freezes a session. Retiring twice is allowed.
func (l *Log) Retire(id uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.lookupLocked(id)
	if err != nil {
		return err
	}
	s.Retired = true
	return nil
}

// Snapshot returns a deep copy of every session in start order.
func (l *Log) Snapshot() domain.History {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h := domain.History{Sessions: make([]domain.Session, len(l.sessions))}
	for i, s := range l.sessions {
		h.Sessions[i] = s.Clone()
	}
	return h
}

// Summaries lists every session, including those that cannot be charted.
func (l *Log) Summaries() []domain.SessionSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.SessionSummary, len(l.sessions))
	for i, s := range l.sessions {
		out[i] = domain.Summarize(*s)
	}
	return out
}

// Latest returns the newest sample of the most recent session that has one.
func (l *Log) Latest() (domain.Sample, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.sessions) - 1; i >= 0; i-- {
		if n := len(l.sessions[i].Samples); n > 0 {
			return l.sessions[i].Samples[n-1], true
		}
	}
	return domain.Sample{}, false
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sessions)
}

func (l *Log) SampleCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.samples
}

func (l *Log) lookupLocked(id uint32) (*domain.Session, error) {
	i, ok := l.index[id]
	if !ok {
		return nil, fmt.Errorf("session %d: %w", id, domain.ErrUnknownSession)
	}
	return l.sessions[i], nil
}
