// Package storage archives finalized output events into DuckDB so
// explorers and indexers can query history that the in-memory pool has
// already pruned.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/meridian-chain/eventcore/pkg/event"
	"github.com/meridian-chain/eventcore/pkg/types"
)

// Archive stores output events in a DuckDB database.
type Archive struct {
	db *sql.DB
}

// NewArchive opens (or creates) the archive database at path. An empty
// path opens an in-memory database, which is useful for tests.
func NewArchive(path string) (*Archive, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	a := &Archive{db: db}
	if err := a.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive: %w", err)
	}
	return a, nil
}

// initialize creates the events table.
func (a *Archive) initialize() error {
	const schema = `
CREATE TABLE IF NOT EXISTS events (
    id            VARCHAR PRIMARY KEY,
    period        BIGINT  NOT NULL,
    thread        SMALLINT NOT NULL,
    block_id      VARCHAR,
    read_only     BOOLEAN NOT NULL,
    index_in_slot BIGINT  NOT NULL,
    call_stack    VARCHAR NOT NULL,
    data          VARCHAR NOT NULL,
    archived_at   TIMESTAMP NOT NULL DEFAULT current_timestamp,
    UNIQUE (period, thread, read_only, index_in_slot)
)`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}
	return nil
}

// InsertEvents archives a batch of events in one transaction.
func (a *Archive) InsertEvents(ctx context.Context, events []event.OutputEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO events (id, period, thread, block_id, read_only, index_in_slot, call_stack, data)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		callStack, err := json.Marshal(ev.Context.CallStack)
		if err != nil {
			return fmt.Errorf("failed to marshal call stack of %s: %w", ev.ID, err)
		}

		var blockID any
		if ev.Context.Block != nil {
			blockID = ev.Context.Block.String()
		}

		_, err = stmt.ExecContext(ctx,
			ev.ID.String(),
			int64(ev.Context.Slot.Period),
			int16(ev.Context.Slot.Thread),
			blockID,
			ev.Context.ReadOnly,
			int64(ev.Context.IndexInSlot),
			string(callStack),
			ev.Data,
		)
		if err != nil {
			return fmt.Errorf("failed to insert event %s: %w", ev.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// GetEvent loads one archived event by its checksummed identity.
func (a *Archive) GetEvent(ctx context.Context, id event.ID) (event.OutputEvent, error) {
	row := a.db.QueryRowContext(ctx, `
SELECT id, period, thread, block_id, read_only, index_in_slot, call_stack, data
FROM events WHERE id = ?`, id.String())
	return scanEvent(row)
}

// QuerySlotRange returns archived events with slots in [start, end),
// ordered by (period, thread, read_only, index_in_slot).
func (a *Archive) QuerySlotRange(ctx context.Context, start, end types.Slot) ([]event.OutputEvent, error) {
	rows, err := a.db.QueryContext(ctx, `
SELECT id, period, thread, block_id, read_only, index_in_slot, call_stack, data
FROM events
WHERE (period > ? OR (period = ? AND thread >= ?))
  AND (period < ? OR (period = ? AND thread < ?))
ORDER BY period, thread, read_only, index_in_slot`,
		int64(start.Period), int64(start.Period), int16(start.Thread),
		int64(end.Period), int64(end.Period), int16(end.Thread),
	)
	if err != nil {
		return nil, fmt.Errorf("slot range query failed: %w", err)
	}
	defer rows.Close()

	var out []event.OutputEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// CountBySlot returns how many committed and read-only events a slot holds.
func (a *Archive) CountBySlot(ctx context.Context, slot types.Slot) (committed, readOnly int64, err error) {
	row := a.db.QueryRowContext(ctx, `
SELECT
    count(*) FILTER (WHERE NOT read_only),
    count(*) FILTER (WHERE read_only)
FROM events WHERE period = ? AND thread = ?`,
		int64(slot.Period), int16(slot.Thread))
	if err := row.Scan(&committed, &readOnly); err != nil {
		return 0, 0, fmt.Errorf("slot count query failed: %w", err)
	}
	return committed, readOnly, nil
}

// PruneBefore deletes archived events from slots strictly before the
// horizon and returns how many rows went away.
func (a *Archive) PruneBefore(ctx context.Context, horizon types.Slot) (int64, error) {
	res, err := a.db.ExecContext(ctx, `
DELETE FROM events
WHERE period < ? OR (period = ? AND thread < ?)`,
		int64(horizon.Period), int64(horizon.Period), int16(horizon.Thread))
	if err != nil {
		return 0, fmt.Errorf("prune failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		log.Printf("archive: rows affected unavailable: %v", err)
		return 0, nil
	}
	return n, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// rowScanner matches *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (event.OutputEvent, error) {
	var (
		idStr     string
		period    int64
		thread    int16
		blockID   sql.NullString
		readOnly  bool
		index     int64
		callStack string
		data      string
	)
	if err := row.Scan(&idStr, &period, &thread, &blockID, &readOnly, &index, &callStack, &data); err != nil {
		return event.OutputEvent{}, err
	}

	id, err := event.ParseID(idStr)
	if err != nil {
		return event.OutputEvent{}, fmt.Errorf("archived id corrupt: %w", err)
	}

	ctx := event.ExecutionContext{
		Slot:        types.NewSlot(uint64(period), uint8(thread)),
		ReadOnly:    readOnly,
		IndexInSlot: uint64(index),
	}
	if blockID.Valid {
		b, err := types.BlockIDFromString(blockID.String)
		if err != nil {
			return event.OutputEvent{}, fmt.Errorf("archived block id corrupt: %w", err)
		}
		ctx.Block = &b
	}
	if err := json.Unmarshal([]byte(callStack), &ctx.CallStack); err != nil {
		return event.OutputEvent{}, fmt.Errorf("archived call stack corrupt: %w", err)
	}

	return event.OutputEvent{ID: id, Context: ctx, Data: data}, nil
}
