package observability

import (
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/ports"
)

type PromObs struct {
	logger   *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers ProbeFlow metrics on the default registerer and logs
// as JSON to stderr.
func NewPromObs() *PromObs {
	return NewPromObsWith(prometheus.DefaultRegisterer, slog.New(slog.NewJSONHandler(os.Stderr, nil)))
}

func NewPromObsWith(reg prometheus.Registerer, logger *slog.Logger) *PromObs {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	p := &PromObs{
		logger: logger,
		counters: map[string]prometheus.Counter{
			ports.MetricEventsApplied:   counter(ports.MetricEventsApplied, "Telemetry events folded into probe history."),
			ports.MetricSamplesArchived: counter(ports.MetricSamplesArchived, "Samples handed to the SQL archive."),
			ports.MetricDLQ:             counter(ports.MetricDLQ, "Events rejected at ingestion (malformed, out of order, unknown session)."),
			ports.MetricQueueDropped:    counter(ports.MetricQueueDropped, "Events lost due to queue backpressure policies."),
			ports.MetricExportsWritten:  counter(ports.MetricExportsWritten, "Export artifacts written."),
			ports.MetricExportFailures:  counter(ports.MetricExportFailures, "Export artifacts that could not be written."),
		},
		gauges: map[string]prometheus.Gauge{
			ports.MetricWALSizeBytes:  gauge(ports.MetricWALSizeBytes, "Size of the event journal on disk."),
			ports.MetricQueueLength:   gauge(ports.MetricQueueLength, "Events buffered in the in-memory queue."),
			ports.MetricProbesTracked: gauge(ports.MetricProbesTracked, "Probes present in the registry."),
		},
		histos: map[string]prometheus.Observer{
			ports.MetricIngestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    ports.MetricIngestLatency,
				Help:    "Time to apply and archive one dequeued batch.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			}),
			ports.MetricExportLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    ports.MetricExportLatency,
				Help:    "Time to reconstruct and write one export.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			}),
		},
	}

	for _, c := range p.counters {
		reg.MustRegister(c)
	}
	for _, g := range p.gauges {
		reg.MustRegister(g)
	}
	for _, h := range p.histos {
		reg.MustRegister(h.(prometheus.Collector))
	}
	return p
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(attrs(fields), slog.Any("err", err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(attrs(fields), slog.Any("err", err), slog.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDLQ(id ports.WALEntryID, e *domain.Event, err error) {
	p.IncCounter(ports.MetricDLQ, 1)
	if e == nil {
		return
	}
	p.logger.Warn("event_rejected",
		slog.Uint64("wal_id", uint64(id)),
		slog.String("kind", string(e.Kind)),
		slog.Uint64("probe", uint64(e.ProbeSerial)),
		slog.Uint64("session", uint64(e.SessionID)),
		slog.Any("err", err),
	)
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
