package ports

import "github.com/ghalamif/ProbeFlow/internal/domain"

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)

	RecordDLQ(id WALEntryID, e *domain.Event, err error)
}

type Field struct {
	Key   string
	Value any
}

// Metric names understood by Observability implementations.
const (
	MetricEventsApplied   = "probeflow_events_applied_total"
	MetricSamplesArchived = "probeflow_samples_archived_total"
	MetricDLQ             = "probeflow_dlq_total"
	MetricQueueDropped    = "probeflow_queue_dropped_total"
	MetricExportsWritten  = "probeflow_exports_total"
	MetricExportFailures  = "probeflow_export_failures_total"
	MetricWALSizeBytes    = "probeflow_wal_size_bytes"
	MetricQueueLength     = "probeflow_queue_length"
	MetricProbesTracked   = "probeflow_probes_tracked"
	MetricIngestLatency   = "probeflow_ingest_latency_seconds"
	MetricExportLatency   = "probeflow_export_latency_seconds"
)
