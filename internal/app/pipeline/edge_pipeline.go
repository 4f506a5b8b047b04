package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/ports"
)

// RunEdgePipeline starts the collector and journals every event it emits
// before handing it to the queue. It returns once the collector is running.
func RunEdgePipeline(col ports.Collector, wal ports.WAL, q ports.EventQueue, pol ports.Policy, obs ports.Observability) error {
	ch := make(chan *domain.Event, pol.MaxQueueLen)

	if err := col.Start(ch); err != nil {
		return err
	}

	go func() {
		for e := range ch {
			err := Journal(e, wal, q, pol, obs)
			if errors.Is(err, ErrWALFull) || errors.Is(err, ErrQueueFull) {
				obs.IncCounter(ports.MetricQueueDropped, 1)
			}
		}
	}()

	return nil
}

var (
	ErrWALFull   = errors.New("wal full")
	ErrQueueFull = errors.New("queue full")
)

// Journal appends one event to the WAL and enqueues it according to policy.
// Invalid events are refused before they reach the journal.
func Journal(e *domain.Event, wal ports.WAL, q ports.EventQueue, pol ports.Policy, obs ports.Observability) error {
	if err := e.Validate(); err != nil {
		obs.RecordDLQ(0, e, err)
		return err
	}
	if !waitForWALCapacity(wal, pol, obs) {
		return ErrWALFull
	}

	id, err := wal.Append(e)
	if err != nil {
		obs.LogCritical("wal_append_failed", err)
		return err
	}

	if !enqueueWithPolicy(q, id, e, pol, obs) {
		return ErrQueueFull
	}
	return nil
}

func waitForWALCapacity(wal ports.WAL, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxWALSizeBytes <= 0 {
		return true
	}
	sleep := idleSleep(pol)
	warned := false

	for {
		stats := wal.Stats()
		if stats.SizeBytes < pol.MaxWALSizeBytes {
			return true
		}

		switch pol.OnWALFull {
		case "block":
			// the WAL holds all history, so this stalls until max_wal_size_bytes is raised
			if !warned {
				obs.LogError("wal_full_blocking", fmt.Errorf("size=%d limit=%d", stats.SizeBytes, pol.MaxWALSizeBytes))
				warned = true
			}
			time.Sleep(sleep)
		case "drop":
			obs.LogError("wal_full_drop", fmt.Errorf("size=%d limit=%d", stats.SizeBytes, pol.MaxWALSizeBytes))
			return false
		default:
			obs.LogError("wal_policy_invalid", fmt.Errorf("policy=%s", pol.OnWALFull))
			return false
		}
	}
}

func enqueueWithPolicy(q ports.EventQueue, id ports.WALEntryID, e *domain.Event, pol ports.Policy, obs ports.Observability) bool {
	sleep := idleSleep(pol)

	for {
		if ok := q.Enqueue(id, e); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			time.Sleep(sleep)
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}

func idleSleep(pol ports.Policy) time.Duration {
	if pol.IdleSleep <= 0 {
		return 5 * time.Millisecond
	}
	return pol.IdleSleep
}
