package probeflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/ProbeFlow/internal/adapters/csvreplay"
	"github.com/ghalamif/ProbeFlow/internal/adapters/natsbridge"
	"github.com/ghalamif/ProbeFlow/internal/adapters/observability"
	"github.com/ghalamif/ProbeFlow/internal/adapters/queue"
	"github.com/ghalamif/ProbeFlow/internal/adapters/sink"
	"github.com/ghalamif/ProbeFlow/internal/adapters/wal"
	"github.com/ghalamif/ProbeFlow/internal/api"
	"github.com/ghalamif/ProbeFlow/internal/app/pipeline"
	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/ports"
	"github.com/ghalamif/ProbeFlow/internal/registry"
)

var (
	// ErrQueueFull indicates the in-memory queue rejected the event according to policy.
	ErrQueueFull = pipeline.ErrQueueFull
	// ErrWALFull indicates the WAL is at capacity and OnWALFull != "block".
	ErrWALFull = pipeline.ErrWALFull
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	collector     Collector
	sink          Sink
	wal           WAL
	queue         EventQueue
	observability Observability
	registry      *Registry
	replay        *ReplayConfig
}

// WithCollector injects a custom collector (device SDK bridge, simulator, CSV replay).
func WithCollector(col Collector) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.collector = col
	}
}

// WithSink injects a custom archive sink in place of the configured SQL archive.
func WithSink(s Sink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sink = s
	}
}

// WithWAL lets callers bring their own WAL implementation or reuse an existing instance.
func WithWAL(w WAL) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.wal = w
	}
}

// WithEventQueue injects a custom queue implementation.
func WithEventQueue(q EventQueue) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithReplay feeds a previously exported file through the pipeline instead of
// a live collector.
func WithReplay(cfg ReplayConfig) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.replay = &cfg
	}
}

// WithRegistry shares an existing registry, e.g. one pre-seeded from a replay.
func WithRegistry(reg *Registry) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.registry = reg
	}
}

// Runtime wires up the collector → WAL → queue → registry pipeline, the optional
// SQL archive and the metrics and read API servers.
type Runtime struct {
	cfg       *Config
	policy    ports.Policy
	obs       ports.Observability
	wal       ports.WAL
	queue     ports.EventQueue
	registry  *registry.Registry
	collector ports.Collector
	sink      ports.Sink
	ingester  *pipeline.Ingester
	db        *sql.DB

	metricsSrv   *http.Server
	apiSrv       *http.Server
	gaugeStopCh  chan struct{}
	ingestCancel context.CancelFunc
	ingestDoneCh chan struct{}
}

// NewRuntime bootstraps the default adapters (file WAL, in-memory queue,
// Prometheus observability, NATS bridge when configured, SQL archive when
// enabled) and replays the WAL. Committed entries are folded straight into
// the registry; the rest are queued for ingestion, or ingested in place when
// they outnumber the queue.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	var (
		walAdapter ports.WAL
		err        error
	)
	if overrides.wal != nil {
		walAdapter = overrides.wal
	} else {
		walAdapter, err = wal.NewFileWAL(cfg.WAL.Dir)
		if err != nil {
			return nil, err
		}
	}

	q := overrides.queue
	if q == nil {
		q = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	}

	reg := overrides.registry
	if reg == nil {
		reg = registry.New()
	}

	var (
		db  *sql.DB
		snk ports.Sink
	)
	if overrides.sink != nil {
		snk = overrides.sink
	} else if cfg.Archive.Enabled {
		db, snk, err = openArchive(cfg.Archive)
		if err != nil {
			return nil, err
		}
	}
	closeDB := func() {
		if db != nil {
			db.Close()
		}
	}

	ingester := pipeline.NewIngester(walAdapter, reg, snk, obs)
	if err := replayWAL(walAdapter, reg, q, ingester, cfg.Policy, obs); err != nil {
		closeDB()
		return nil, err
	}

	col := overrides.collector
	switch {
	case col != nil:
	case overrides.replay != nil:
		col, err = csvreplay.NewCollector(*overrides.replay, obs)
	case cfg.Bridge.Enabled():
		col, err = natsbridge.NewCollector(cfg.Bridge, obs)
	}
	if err != nil {
		closeDB()
		return nil, err
	}

	return &Runtime{
		cfg:       cfg,
		policy:    cfg.Policy,
		obs:       obs,
		wal:       walAdapter,
		queue:     q,
		registry:  reg,
		collector: col,
		sink:      snk,
		ingester:  ingester,
		db:        db,
	}, nil
}

func openArchive(cfg ArchiveConfig) (*sql.DB, ports.Sink, error) {
	dialect, err := sink.DialectForDriver(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	archive := sink.NewSampleArchive(db, cfg.Table, dialect)
	if err := archive.EnsureSchema(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("archive schema: %w", err)
	}
	return db, archive, nil
}

// Registry exposes the live probe registry for exports and summaries.
func (r *Runtime) Registry() *Registry {
	return r.registry
}

// Start begins the edge and ingest pipelines and launches the HTTP servers.
// It returns immediately; call Run to block on a context instead.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	if r.collector != nil {
		if err := pipeline.RunEdgePipeline(r.collector, r.wal, r.queue, r.policy, r.obs); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.ingestCancel = cancel
	r.ingestDoneCh = make(chan struct{})
	go func() {
		pipeline.RunIngestPipeline(ctx, r.queue, r.ingester, r.policy)
		close(r.ingestDoneCh)
	}()

	if r.cfg.Metrics.Addr != "" {
		r.startMetrics()
	}
	if r.cfg.API.Enabled {
		r.startAPI()
	}

	r.gaugeStopCh = make(chan struct{})
	go r.recordResourceGauges(r.gaugeStopCh, time.Second)
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Publish journals an event from an in-process producer. It applies the same
// validation and backpressure policy as collector input.
func (r *Runtime) Publish(e *Event) error {
	err := pipeline.Journal(e, r.wal, r.queue, r.policy, r.obs)
	if errors.Is(err, ErrWALFull) || errors.Is(err, ErrQueueFull) {
		r.obs.IncCounter(ports.MetricQueueDropped, 1)
	}
	return err
}

// Export writes an export of one probe to the configured export directory.
func (r *Runtime) Export(serial uint32, mode ExportMode, sessionID uint32) (Artifact, error) {
	start := time.Now()
	art, anchored, err := exportProbe(r.registry, serial, ExportOptions{
		Mode:       mode,
		SessionID:  sessionID,
		Dir:        r.cfg.Export.Dir,
		AppVersion: r.cfg.Export.AppVersion,
	})
	if err != nil {
		r.obs.IncCounter(ports.MetricExportFailures, 1)
		r.obs.LogError("export_failed", err, ports.Field{Key: "serial", Value: fmt.Sprintf("%04X", serial)})
		return Artifact{}, err
	}
	r.obs.IncCounter(ports.MetricExportsWritten, 1)
	r.obs.ObserveLatency(ports.MetricExportLatency, time.Since(start).Seconds())
	if !anchored {
		r.obs.LogInfo("export_no_anchor", ports.Field{Key: "serial", Value: fmt.Sprintf("%04X", serial)})
	}
	r.obs.LogInfo("export_written",
		ports.Field{Key: "id", Value: art.ID.String()},
		ports.Field{Key: "path", Value: art.Path},
		ports.Field{Key: "rows", Value: art.Rows})
	return art, nil
}

// Shutdown stops the collector and HTTP servers, waits for queued events to be
// committed until ctx expires, then closes the WAL and DB connection.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
		r.gaugeStopCh = nil
	}

	for _, srv := range []*http.Server{r.metricsSrv, r.apiSrv} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if r.collector != nil {
		if err := r.collector.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if r.ingestCancel != nil {
		if err := waitCommitted(ctx, r.wal, r.policy.IdleSleep); err != nil {
			r.obs.LogError("shutdown_drain_incomplete", err, ports.Field{Key: "queued", Value: r.queue.Len()})
		}
		r.ingestCancel()
		select {
		case <-r.ingestDoneCh:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	if err := r.wal.Close(); err != nil {
		errs = append(errs, err)
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// waitCommitted blocks until the WAL is committed up to its last entry.
func waitCommitted(ctx context.Context, w ports.WAL, idle time.Duration) error {
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}
	for {
		stats := w.Stats()
		if stats.OldestUncommitted > stats.LatestAppended {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(idle):
		}
	}
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}
	r.serve(r.metricsSrv, "metrics")
}

func (r *Runtime) startAPI() {
	srv := api.NewServer(r.registry, api.Options{
		AppVersion: r.cfg.Export.AppVersion,
		Unit:       r.cfg.Export.Unit,
	})
	r.apiSrv = &http.Server{
		Addr:              r.cfg.API.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	r.serve(r.apiSrv, "api")
}

func (r *Runtime) serve(srv *http.Server, name string) {
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("http_server_exited", err,
				ports.Field{Key: "server", Value: name},
				ports.Field{Key: "addr", Value: srv.Addr})
		}
	}()
}

func (r *Runtime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.recordGauges()
		}
	}
}

func (r *Runtime) recordGauges() {
	stats := r.wal.Stats()
	r.obs.SetGauge(ports.MetricWALSizeBytes, float64(stats.SizeBytes))
	r.obs.SetGauge(ports.MetricQueueLength, float64(r.queue.Len()))
	r.obs.SetGauge(ports.MetricProbesTracked, float64(r.registry.Len()))
}

// replayWAL rebuilds probe history after a restart. Uncommitted entries that
// do not fit in the queue are ingested in place.
func replayWAL(walAdapter ports.WAL, reg ports.Applier, q ports.EventQueue, in *pipeline.Ingester, pol ports.Policy, obs ports.Observability) error {
	stats := walAdapter.Stats()
	if stats.LatestAppended == 0 {
		return nil
	}
	pending := stats.OldestUncommitted

	batchSize := pol.MaxBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	var (
		restored, queued, ingested int
		overflow                   []ports.QueuedEvent
	)
	err := walAdapter.Iterate(1, func(id ports.WALEntryID, e *domain.Event) error {
		if id < pending {
			// committed events that fail here already went to the DLQ
			if reg.Apply(e) == nil {
				restored++
			}
			return nil
		}
		if len(overflow) == 0 && q.Enqueue(id, e) {
			queued++
			return nil
		}
		overflow = append(overflow, ports.QueuedEvent{ID: id, Event: e})
		return nil
	})
	if err != nil {
		return err
	}

	// Iterate holds the WAL, so the overflow is ingested afterwards.
	for _, item := range overflow {
		for !q.Enqueue(item.ID, item.Event) {
			batch := q.DequeueBatch(batchSize)
			if len(batch) == 0 {
				return fmt.Errorf("queue rejected entry %d during WAL replay", item.ID)
			}
			in.Ingest(batch)
			queued -= len(batch)
			ingested += len(batch)
		}
		queued++
	}
	if restored > 0 || queued > 0 || ingested > 0 {
		obs.LogInfo("wal_replay_complete",
			ports.Field{Key: "restored", Value: restored},
			ports.Field{Key: "queued", Value: queued},
			ports.Field{Key: "ingested", Value: ingested},
			ports.Field{Key: "from_id", Value: pending})
	}
	return nil
}
