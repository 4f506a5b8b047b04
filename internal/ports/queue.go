package ports

import "github.com/ghalamif/ProbeFlow/internal/domain"

type QueuedEvent struct {
	ID    WALEntryID
	Event *domain.Event
}

type EventQueue interface {
	Enqueue(id WALEntryID, e *domain.Event) bool
	DequeueBatch(max int) []QueuedEvent
	Len() int
}
