package natsbridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/ports"
)

func TestDecodeSampleFromSubject(t *testing.T) {
	payload := `{"kind":"sample_recorded","session_id":3,"sample":{"seq":12,"temps":[1,2,3,4,5,6,7,8]},"observed_at":"2023-11-14T22:13:20Z"}`

	e, err := Decode(SubjectFor(0x10AB), []byte(payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.ProbeSerial != 0x10AB {
		t.Fatalf("expected serial from subject, got %04X", e.ProbeSerial)
	}
	if e.Sample == nil || e.Sample.SequenceNumber != 12 || e.Sample.Temperatures[7] != 8 {
		t.Fatalf("unexpected sample: %+v", e.Sample)
	}
}

func TestDecodeRejectsMalformedSample(t *testing.T) {
	payload := `{"kind":"sample_recorded","probe_serial":1,"session_id":3,"sample":{"seq":12,"temps":[1,2,3]}}`
	if _, err := Decode("probeflow.telemetry.0001", []byte(payload)); !errors.Is(err, domain.ErrMalformedSample) {
		t.Fatalf("expected ErrMalformedSample, got %v", err)
	}
}

func TestDecodeRejectsInvalidEvent(t *testing.T) {
	if _, err := Decode("probeflow.telemetry.0001", []byte(`{"kind":"session_started","session_id":1}`)); !errors.Is(err, domain.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for zero period, got %v", err)
	}
	if _, err := Decode("probeflow.telemetry.0001", []byte(`not json`)); err == nil {
		t.Fatalf("expected json error")
	}
}

func TestSerialFromSubject(t *testing.T) {
	if v, ok := serialFromSubject("probeflow.telemetry.BEEF"); !ok || v != 0xBEEF {
		t.Fatalf("expected BEEF, got %X %v", v, ok)
	}
	if _, ok := serialFromSubject("other.BEEF"); ok {
		t.Fatalf("expected foreign subject to be ignored")
	}
	if _, ok := serialFromSubject("probeflow.telemetry.xyz"); ok {
		t.Fatalf("expected non-hex suffix to be ignored")
	}
}

func TestHandlerForwardsAndRejects(t *testing.T) {
	obs := &stubObs{}
	c, err := NewCollector(Config{URL: "nats://127.0.0.1:4222"}, obs)
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}
	fixed := time.Unix(1700000000, 0)
	c.now = func() time.Time { return fixed }

	out := make(chan *domain.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	h := c.handler(ctx, out)

	h(SubjectFor(7), []byte(`{"kind":"session_retired","session_id":2}`))
	select {
	case e := <-out:
		if e.ProbeSerial != 7 || !e.ObservedAt.Equal(fixed) {
			t.Fatalf("unexpected event: %+v", e)
		}
	default:
		t.Fatalf("expected event to be forwarded")
	}

	h(SubjectFor(7), []byte(`{"kind":"bogus"}`))
	if obs.dlq != 1 {
		t.Fatalf("expected rejected message to be counted, got %d", obs.dlq)
	}

	// a full channel must not block once the collector is stopping
	out <- &domain.Event{}
	cancel()
	done := make(chan struct{})
	go func() {
		h(SubjectFor(7), []byte(`{"kind":"session_retired","session_id":2}`))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler blocked after cancel")
	}
}

func TestNewCollectorRequiresURL(t *testing.T) {
	if _, err := NewCollector(Config{}, &stubObs{}); err == nil {
		t.Fatalf("expected missing url error")
	}
	c, err := NewCollector(Config{URL: "nats://localhost:4222"}, &stubObs{})
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}
	if c.cfg.Subject != "probeflow.telemetry.>" || c.cfg.MaxReconnects != -1 {
		t.Fatalf("defaults not applied: %+v", c.cfg)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
}

type stubObs struct{ dlq int }

func (s *stubObs) LogInfo(string, ...ports.Field)                   {}
func (s *stubObs) LogError(string, error, ...ports.Field)           {}
func (s *stubObs) LogCritical(string, error, ...ports.Field)        {}
func (s *stubObs) IncCounter(string, float64)                       {}
func (s *stubObs) ObserveLatency(string, float64)                   {}
func (s *stubObs) SetGauge(string, float64)                         {}
func (s *stubObs) RecordDLQ(ports.WALEntryID, *domain.Event, error) { s.dlq++ }
