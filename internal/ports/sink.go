package ports

import "github.com/ghalamif/ProbeFlow/internal/domain"

// Sink archives applied events. Implementations may ignore kinds they do not store.
type Sink interface {
	WriteBatch(events []*domain.Event) error
	Name() string
}
