// Package registry tracks every known probe: its identity, link state and
// session history. It is the in-process owner of telemetry state and the
// Applier the ingest pipeline folds events into.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/ports"
	"github.com/ghalamif/ProbeFlow/internal/sessionlog"
)

type probe struct {
	identity domain.ProbeIdentity
	state    domain.ConnectionState
	log      *sessionlog.Log
	lastSeen time.Time
}

// Registry maps probe serial numbers to their state.
type Registry struct {
	mu     sync.RWMutex
	probes map[uint32]*probe
}

func New() *Registry {
	return &Registry{probes: make(map[uint32]*probe)}
}

// Register adds a probe or updates the identity fields it reports.
// Nil firmware or hardware values keep whatever was known before.
func (r *Registry) Register(id domain.ProbeIdentity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.ensureLocked(id.SerialNumber)
	if id.FirmwareVersion != nil {
		v := *id.FirmwareVersion
		p.identity.FirmwareVersion = &v
	}
	if id.HardwareRevision != nil {
		v := *id.HardwareRevision
		p.identity.HardwareRevision = &v
	}
}

// Apply folds one telemetry event into the probe it belongs to.
// Probes are registered on first sight so a bridge that never sends
// probe_identified still produces history.
func (r *Registry) Apply(e *domain.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	p := r.ensureLocked(e.ProbeSerial)
	if !e.ObservedAt.IsZero() && e.ObservedAt.After(p.lastSeen) {
		p.lastSeen = e.ObservedAt
	}
	switch e.Kind {
	case domain.EventProbeIdentified:
		if e.FirmwareVersion != nil {
			v := *e.FirmwareVersion
			p.identity.FirmwareVersion = &v
		}
		if e.HardwareRevision != nil {
			v := *e.HardwareRevision
			p.identity.HardwareRevision = &v
		}
		r.mu.Unlock()
		return nil
	case domain.EventConnectionChanged:
		p.state = *e.State
		r.mu.Unlock()
		return nil
	}
	log := p.log
	r.mu.Unlock()

	var err error
	switch e.Kind {
	case domain.EventSessionStarted:
		err = log.StartSession(e.SessionID, e.SamplePeriodMs)
		if err == nil && e.StartTime != nil {
			err = log.ResolveStartTime(e.SessionID, *e.StartTime)
		}
	case domain.EventStartTimeResolved:
		err = log.ResolveStartTime(e.SessionID, *e.StartTime)
	case domain.EventSampleRecorded:
		err = log.AppendSample(e.SessionID, *e.Sample)
	case domain.EventSessionRetired:
		err = log.Retire(e.SessionID)
	}
	if err != nil {
		return fmt.Errorf("probe %04X: %w", e.ProbeSerial, err)
	}
	return nil
}

// Log returns the live session log of a probe.
func (r *Registry) Log(serial uint32) (*sessionlog.Log, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.probes[serial]
	if !ok {
		return nil, fmt.Errorf("probe %04X: %w", serial, domain.ErrUnknownProbe)
	}
	return p.log, nil
}

// Snapshot returns the identity and a deep copy of the history of a probe.
func (r *Registry) Snapshot(serial uint32) (domain.ProbeIdentity, domain.History, error) {
	r.mu.RLock()
	p, ok := r.probes[serial]
	var id domain.ProbeIdentity
	if ok {
		id = cloneIdentity(p.identity)
	}
	r.mu.RUnlock()
	if !ok {
		return domain.ProbeIdentity{}, domain.History{}, fmt.Errorf("probe %04X: %w", serial, domain.ErrUnknownProbe)
	}
	return id, p.log.Snapshot(), nil
}

// Len is the number of registered probes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.probes)
}

// Summary is the per-probe row shown by listings.
type Summary struct {
	Identity    domain.ProbeIdentity   `json:"identity"`
	Serial      string                 `json:"serial"`
	State       domain.ConnectionState `json:"state"`
	Sessions    int                    `json:"sessions"`
	RecordCount int                    `json:"record_count"`
	MinSequence *uint32                `json:"min_seq,omitempty"`
	MaxSequence *uint32                `json:"max_seq,omitempty"`
	Current     *domain.Sample         `json:"current,omitempty"`
	LastSeen    time.Time              `json:"last_seen"`
}

// CurrentText renders the latest readings as "T1 20.00°C, T2 ...", or "" when
// the probe has not reported a sample yet.
func (s Summary) CurrentText(unit domain.TemperatureUnit) string {
	if s.Current == nil {
		return ""
	}
	parts := make([]string, domain.ChannelCount)
	for i, c := range s.Current.Temperatures {
		parts[i] = fmt.Sprintf("%s %.02f%s", domain.ChannelLabel(i), unit.Convert(c), unit.Symbol())
	}
	return strings.Join(parts, ", ")
}

// RangeText renders the record range as "min - max", or "-" with no records.
func (s Summary) RangeText() string {
	if s.MinSequence == nil || s.MaxSequence == nil {
		return "-"
	}
	return fmt.Sprintf("%d - %d", *s.MinSequence, *s.MaxSequence)
}

// Probes lists every registered probe ordered by serial number.
func (r *Registry) Probes() []Summary {
	r.mu.RLock()
	type entry struct {
		identity domain.ProbeIdentity
		state    domain.ConnectionState
		log      *sessionlog.Log
		lastSeen time.Time
	}
	entries := make([]entry, 0, len(r.probes))
	for _, p := range r.probes {
		entries = append(entries, entry{cloneIdentity(p.identity), p.state, p.log, p.lastSeen})
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].identity.SerialNumber < entries[j].identity.SerialNumber
	})

	out := make([]Summary, len(entries))
	for i, e := range entries {
		sum := Summary{
			Identity:    e.identity,
			Serial:      e.identity.SerialHex(),
			State:       e.state,
			Sessions:    e.log.Len(),
			RecordCount: e.log.SampleCount(),
			LastSeen:    e.lastSeen,
		}
		for _, ss := range e.log.Summaries() {
			if ss.FirstSequence != nil && (sum.MinSequence == nil || *ss.FirstSequence < *sum.MinSequence) {
				v := *ss.FirstSequence
				sum.MinSequence = &v
			}
			if ss.LastSequence != nil && (sum.MaxSequence == nil || *ss.LastSequence > *sum.MaxSequence) {
				v := *ss.LastSequence
				sum.MaxSequence = &v
			}
		}
		if latest, ok := e.log.Latest(); ok {
			sum.Current = &latest
		}
		out[i] = sum
	}
	return out
}

func (r *Registry) ensureLocked(serial uint32) *probe {
	p, ok := r.probes[serial]
	if !ok {
		p = &probe{
			identity: domain.ProbeIdentity{SerialNumber: serial},
			log:      sessionlog.New(),
		}
		r.probes[serial] = p
	}
	return p
}

func cloneIdentity(id domain.ProbeIdentity) domain.ProbeIdentity {
	out := domain.ProbeIdentity{SerialNumber: id.SerialNumber}
	if id.FirmwareVersion != nil {
		v := *id.FirmwareVersion
		out.FirmwareVersion = &v
	}
	if id.HardwareRevision != nil {
		v := *id.HardwareRevision
		out.HardwareRevision = &v
	}
	return out
}

var _ ports.Applier = (*Registry)(nil)
