package probeflow

import (
	"io"

	base "github.com/ghalamif/ProbeFlow/pkg/probeflow"
)

// Re-exported errors for convenience.
var (
	ErrQueueFull         = base.ErrQueueFull
	ErrWALFull           = base.ErrWALFull
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
	ErrWriteFailure      = base.ErrWriteFailure
	ErrNoChartData       = base.ErrNoChartData
)

// Type aliases so consumers can import github.com/ghalamif/ProbeFlow directly.
type (
	Config          = base.Config
	Policy          = base.Policy
	BridgeConfig    = base.BridgeConfig
	ReplayConfig    = base.ReplayConfig
	ArchiveConfig   = base.ArchiveConfig
	MetricsConfig   = base.MetricsConfig
	WALConfig       = base.WALConfig
	ExportConfig    = base.ExportConfig
	APIConfig       = base.APIConfig
	Flow            = base.Flow
	FlowOption      = base.FlowOption
	StreamInOption  = base.StreamInOption
	StreamOutOption = base.StreamOutOption
	Runtime         = base.Runtime
	RuntimeOption   = base.RuntimeOption
	Event           = base.Event
	EventKind       = base.EventKind
	Sample          = base.Sample
	Session         = base.Session
	History         = base.History
	ProbeIdentity   = base.ProbeIdentity
	ProbeSummary    = base.ProbeSummary
	ConnectionState = base.ConnectionState
	TemperatureUnit = base.TemperatureUnit
	Registry        = base.Registry
	EventBatchSink  = base.EventBatchSink
	Collector       = base.Collector
	Sink            = base.Sink
	EventQueue      = base.EventQueue
	WAL             = base.WAL
	Observability   = base.Observability
	Field           = base.Field
	QueuedEvent     = base.QueuedEvent
	WALEntryID      = base.WALEntryID
	WALStats        = base.WALStats
	Publisher       = base.Publisher
	PublisherConfig = base.PublisherConfig
	ExportMode      = base.ExportMode
	ExportOptions   = base.ExportOptions
	Artifact        = base.Artifact
	SeriesSet       = base.SeriesSet
	ChartOptions    = base.ChartOptions
)

const (
	EventProbeIdentified   = base.EventProbeIdentified
	EventConnectionChanged = base.EventConnectionChanged
	EventSessionStarted    = base.EventSessionStarted
	EventStartTimeResolved = base.EventStartTimeResolved
	EventSampleRecorded    = base.EventSampleRecorded
	EventSessionRetired    = base.EventSessionRetired

	Celsius    = base.Celsius
	Fahrenheit = base.Fahrenheit

	Combined = base.Combined
	Simple   = base.Simple
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInCollector(col Collector) StreamInOption {
	return base.StreamInCollector(col)
}

func StreamInReplay(cfg ReplayConfig) StreamInOption {
	return base.StreamInReplay(cfg)
}

func StreamInQueue(q EventQueue) StreamInOption {
	return base.StreamInQueue(q)
}

func StreamInWAL(w WAL) StreamInOption {
	return base.StreamInWAL(w)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutSink(s Sink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutRegistry(reg *Registry) StreamOutOption {
	return base.StreamOutRegistry(reg)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn EventBatchSink) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithCollector(col Collector) RuntimeOption {
	return base.WithCollector(col)
}

func WithReplay(cfg ReplayConfig) RuntimeOption {
	return base.WithReplay(cfg)
}

func WithSink(s Sink) RuntimeOption {
	return base.WithSink(s)
}

func WithWAL(w WAL) RuntimeOption {
	return base.WithWAL(w)
}

func WithEventQueue(q EventQueue) RuntimeOption {
	return base.WithEventQueue(q)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithRegistry(reg *Registry) RuntimeOption {
	return base.WithRegistry(reg)
}

// Sink adapters.
func NewCallbackSink(name string, fn EventBatchSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []*Event, func()) {
	return base.NewChannelSink(name, buffer)
}

// In-process publisher.
func NewPublisher(cfg *PublisherConfig, fn EventBatchSink) (*Publisher, error) {
	return base.NewPublisher(cfg, fn)
}

// Probe history.
func NewRegistry() *Registry {
	return base.NewRegistry()
}

func NewSample(seq uint32, celsius []float64) (Sample, error) {
	return base.NewSample(seq, celsius)
}

// Export, series and chart.
func ParseExportMode(s string) (ExportMode, error) {
	return base.ParseExportMode(s)
}

func WriteExport(w io.Writer, reg *Registry, serial uint32, opts ExportOptions) (string, error) {
	return base.WriteExport(w, reg, serial, opts)
}

func ExportProbe(reg *Registry, serial uint32, opts ExportOptions) (Artifact, error) {
	return base.ExportProbe(reg, serial, opts)
}

func RemoveExport(path string) error {
	return base.RemoveExport(path)
}

func BuildSeries(reg *Registry, serial uint32, unit TemperatureUnit) (*SeriesSet, error) {
	return base.BuildSeries(reg, serial, unit)
}

func RenderChart(w io.Writer, reg *Registry, serial uint32, unit TemperatureUnit, opts ChartOptions) error {
	return base.RenderChart(w, reg, serial, unit, opts)
}
