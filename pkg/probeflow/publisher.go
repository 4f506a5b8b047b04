package probeflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/ProbeFlow/internal/adapters/observability"
	"github.com/ghalamif/ProbeFlow/internal/adapters/queue"
	"github.com/ghalamif/ProbeFlow/internal/adapters/wal"
	"github.com/ghalamif/ProbeFlow/internal/app/pipeline"
	"github.com/ghalamif/ProbeFlow/internal/ports"
	"github.com/ghalamif/ProbeFlow/internal/registry"
)

// EventBatchSink is invoked with every batch of events the registry accepted,
// in journal order.
type EventBatchSink func([]*Event) error

// PublisherConfig configures the WAL-backed publisher used by device libraries
// that run in the same process.
type PublisherConfig struct {
	Policy Policy
	WAL    WALConfig
	// Observability defaults to Prometheus on the default registerer.
	Observability Observability
}

// applyDefaults fills in sane thresholds so callers only override what they need.
func (c *PublisherConfig) applyDefaults() {
	if c.Policy.MaxWALSizeBytes == 0 {
		c.Policy.MaxWALSizeBytes = 1 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 10_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 500
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.OnWALFull == "" {
		c.Policy.OnWALFull = "block"
	}
	if c.WAL.Dir == "" {
		c.WAL.Dir = "./data/probeflow-wal"
	}
}

func (c *PublisherConfig) validate() error {
	if c.WAL.Dir == "" {
		return fmt.Errorf("wal.dir is required")
	}
	if c.Policy.MaxQueueLen <= 0 {
		return fmt.Errorf("policy.max_queue_len must be > 0")
	}
	if c.Policy.MaxBatchSize <= 0 {
		return fmt.Errorf("policy.max_batch_size must be > 0")
	}
	return nil
}

// Publisher exposes the WAL→queue→registry pipeline to in-process producers
// without a collector, metrics server or archive.
type Publisher struct {
	policy   Policy
	wal      ports.WAL
	queue    ports.EventQueue
	obs      ports.Observability
	registry *registry.Registry

	cancel    context.CancelFunc
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewPublisher replays the WAL into a fresh registry and starts ingesting.
// fn may be nil when the caller only reads the registry.
func NewPublisher(cfg *PublisherConfig, fn EventBatchSink) (*Publisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	walAdapter, err := wal.NewFileWAL(cfg.WAL.Dir)
	if err != nil {
		return nil, err
	}
	obs := cfg.Observability
	if obs == nil {
		obs = observability.NewPromObs()
	}
	q := queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	reg := registry.New()

	var snk ports.Sink
	if fn != nil {
		snk = NewCallbackSink("publisher", fn)
	}
	ingester := pipeline.NewIngester(walAdapter, reg, snk, obs)

	if err := replayWAL(walAdapter, reg, q, ingester, cfg.Policy, obs); err != nil {
		walAdapter.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	pub := &Publisher{
		policy:   cfg.Policy,
		wal:      walAdapter,
		queue:    q,
		obs:      obs,
		registry: reg,
		cancel:   cancel,
		doneCh:   make(chan struct{}),
	}

	go func() {
		defer close(pub.doneCh)
		pipeline.RunIngestPipeline(ctx, q, ingester, cfg.Policy)
	}()
	return pub, nil
}

// Publish validates the event, appends it to the WAL and enqueues it
// according to policy.
func (p *Publisher) Publish(e *Event) error {
	err := pipeline.Journal(e, p.wal, p.queue, p.policy, p.obs)
	if errors.Is(err, ErrWALFull) || errors.Is(err, ErrQueueFull) {
		p.obs.IncCounter(ports.MetricQueueDropped, 1)
	}
	return err
}

// Registry returns the registry fed by this publisher.
func (p *Publisher) Registry() *Registry {
	return p.registry
}

// Flush waits until every published event has been ingested and committed.
func (p *Publisher) Flush(ctx context.Context) error {
	return waitCommitted(ctx, p.wal, p.policy.IdleSleep)
}

// Close stops the ingest loop, respecting the provided context, and closes the WAL.
func (p *Publisher) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.cancel()
	})

	select {
	case <-p.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.wal.Close()
}
