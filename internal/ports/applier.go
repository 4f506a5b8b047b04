package ports

import "github.com/ghalamif/ProbeFlow/internal/domain"

// Applier folds an event into probe history. Rejected events go to the DLQ.
type Applier interface {
	Apply(e *domain.Event) error
}
