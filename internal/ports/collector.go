package ports

import "github.com/ghalamif/ProbeFlow/internal/domain"

// Collector streams telemetry events from a device bridge into the pipeline.
type Collector interface {
	Start(out chan<- *domain.Event) error
	Stop() error
}
