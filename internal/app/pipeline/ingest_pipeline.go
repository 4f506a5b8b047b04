package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/ports"
)

const defaultRetryBackoff = time.Second

// Ingester applies dequeued events to probe history, hands the applied ones to
// the archive sink (nil disables it) and commits the WAL behind them.
//
// Events the sink refused are held and written again ahead of the next batch.
// The WAL is never committed past a held event, so a restart replays it.
type Ingester struct {
	wal  ports.WAL
	app  ports.Applier
	sink ports.Sink
	obs  ports.Observability

	held         []*domain.Event
	pendingID    ports.WALEntryID
	retryBackoff time.Duration
	retryAfter   time.Time
}

func NewIngester(wal ports.WAL, app ports.Applier, sink ports.Sink, obs ports.Observability) *Ingester {
	return &Ingester{
		wal:          wal,
		app:          app,
		sink:         sink,
		obs:          obs,
		retryBackoff: defaultRetryBackoff,
	}
}

// Held is the number of applied events waiting for the sink.
func (in *Ingester) Held() int {
	return len(in.held)
}

// Ingest processes one dequeued batch and reports whether the WAL was
// committed past it.
func (in *Ingester) Ingest(batch []ports.QueuedEvent) bool {
	start := time.Now()
	applied := 0
	for _, item := range batch {
		if item.ID > in.pendingID {
			in.pendingID = item.ID
		}
		if err := in.app.Apply(item.Event); err != nil {
			in.obs.RecordDLQ(item.ID, item.Event, err)
			continue
		}
		in.held = append(in.held, item.Event)
		applied++
	}
	in.obs.IncCounter(ports.MetricEventsApplied, float64(applied))

	ok := in.flush()
	in.obs.ObserveLatency(ports.MetricIngestLatency, time.Since(start).Seconds())
	return ok
}

// Retry archives held events and commits once the backoff after the last
// sink failure has passed. It reports whether the WAL was committed.
func (in *Ingester) Retry() bool {
	if len(in.held) == 0 && in.pendingID == 0 {
		return false
	}
	if time.Now().Before(in.retryAfter) {
		return false
	}
	return in.flush()
}

func (in *Ingester) flush() bool {
	if in.sink != nil && len(in.held) > 0 {
		if err := in.sink.WriteBatch(in.held); err != nil {
			in.obs.LogError("sink_write_failed", err,
				ports.Field{Key: "sink", Value: in.sink.Name()},
				ports.Field{Key: "held", Value: len(in.held)})
			in.retryAfter = time.Now().Add(in.retryBackoff)
			return false
		}
		in.obs.IncCounter(ports.MetricSamplesArchived, float64(countSamples(in.held)))
	}
	in.held = nil

	if in.pendingID == 0 {
		return false
	}
	if err := in.wal.Commit(in.pendingID); err != nil {
		in.obs.LogError("wal_commit_failed", err)
		return false
	}
	in.pendingID = 0
	return true
}

// RunIngestPipeline drains the queue through in until ctx is done. Idle
// turns retry events held back by a sink failure.
func RunIngestPipeline(ctx context.Context, q ports.EventQueue, in *Ingester, pol ports.Policy) {
	idle := idleSleep(pol)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch := q.DequeueBatch(pol.MaxBatchSize)
		if len(batch) == 0 {
			in.Retry()
			time.Sleep(idle)
			continue
		}
		in.Ingest(batch)
	}
}

func countSamples(events []*domain.Event) int {
	n := 0
	for _, e := range events {
		if e.Kind == domain.EventSampleRecorded {
			n++
		}
	}
	return n
}
