package ports

import "github.com/ghalamif/ProbeFlow/internal/domain"

type WALEntryID uint64

type WAL interface {
	Append(e *domain.Event) (WALEntryID, error)
	Iterate(from WALEntryID, fn func(id WALEntryID, e *domain.Event) error) error
	Commit(upto WALEntryID) error
	Stats() WALStats
	Close() error
}

type WALStats struct {
	OldestUncommitted WALEntryID
	LatestAppended    WALEntryID
	SizeBytes         int64
}
