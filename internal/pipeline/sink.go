package pipeline

import (
	"context"

	"github.com/meridian-chain/eventcore/internal/storage"
	"github.com/meridian-chain/eventcore/pkg/event"
	"github.com/meridian-chain/eventcore/pkg/store"
)

// Sink receives collected output events.
type Sink interface {
	Write(ctx context.Context, ev *event.OutputEvent) error
	Close() error
}

// StoreSink feeds collected events into the in-memory pool.
type StoreSink struct {
	pool *store.Store
}

// NewStoreSink wraps an event pool as a sink.
func NewStoreSink(pool *store.Store) *StoreSink {
	return &StoreSink{pool: pool}
}

// Write adds the event to the pool. Pool-level validation failures
// (duplicate identity or slot index) surface as errors.
func (s *StoreSink) Write(ctx context.Context, ev *event.OutputEvent) error {
	return s.pool.Add(*ev)
}

// Close is a no-op; the pool outlives the pipeline.
func (s *StoreSink) Close() error {
	return nil
}

// ArchiveSink writes committed events to the DuckDB archive. Read-only
// events are speculative and never archived.
type ArchiveSink struct {
	archive *storage.Archive
}

// NewArchiveSink wraps an archive as a sink.
func NewArchiveSink(archive *storage.Archive) *ArchiveSink {
	return &ArchiveSink{archive: archive}
}

// Write archives the event unless it came from a read-only execution.
func (s *ArchiveSink) Write(ctx context.Context, ev *event.OutputEvent) error {
	if ev.Context.ReadOnly {
		return nil
	}
	return s.archive.InsertEvents(ctx, []event.OutputEvent{*ev})
}

// Close is a no-op; the archive is owned by the caller.
func (s *ArchiveSink) Close() error {
	return nil
}
