// Package store keeps the node's in-memory pool of output events. It is the
// boundary where producer-side contracts are actually checked: duplicate
// identities and duplicate (slot, read_only, index_in_slot) positions are
// rejected at insertion instead of being trusted.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/meridian-chain/eventcore/pkg/event"
	"github.com/meridian-chain/eventcore/pkg/hash"
	"github.com/meridian-chain/eventcore/pkg/types"
)

var (
	// ErrDuplicateID means an event with the same identity is already
	// stored.
	ErrDuplicateID = errors.New("duplicate event id")
	// ErrDuplicateIndex means another event already occupies the same
	// (slot, read_only, index_in_slot) position, which violates the
	// producer contract.
	ErrDuplicateIndex = errors.New("duplicate index in slot")
)

// position is the uniqueness domain of index_in_slot.
type position struct {
	slot     types.Slot
	readOnly bool
	index    uint64
}

// Store is a mutex-guarded event pool indexed by event identity. Events are
// immutable once added; the store hands out copies, never shared pointers.
type Store struct {
	mu         sync.RWMutex
	byID       map[[hash.Size]byte]event.OutputEvent
	byPosition map[position][hash.Size]byte
	subs       map[uuid.UUID]chan event.OutputEvent
}

// New creates an empty store.
func New() *Store {
	return &Store{
		byID:       make(map[[hash.Size]byte]event.OutputEvent),
		byPosition: make(map[position][hash.Size]byte),
		subs:       make(map[uuid.UUID]chan event.OutputEvent),
	}
}

// Add inserts one event. It fails without mutating anything when the
// identity or the (slot, read_only, index_in_slot) position is already
// taken.
func (s *Store) Add(ev event.OutputEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ev.ID.PreHashedBytes()
	if _, ok := s.byID[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, ev.ID)
	}
	pos := position{
		slot:     ev.Context.Slot,
		readOnly: ev.Context.ReadOnly,
		index:    ev.Context.IndexInSlot,
	}
	if other, ok := s.byPosition[pos]; ok {
		return fmt.Errorf("%w: slot %s read_only=%t index=%d already held by %s",
			ErrDuplicateIndex, ev.Context.Slot, ev.Context.ReadOnly,
			ev.Context.IndexInSlot, event.NewID(other))
	}

	s.byID[key] = ev
	s.byPosition[pos] = key

	for _, ch := range s.subs {
		// Slow subscribers drop events rather than blocking the pool.
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// AddBatch inserts events in order and stops at the first failure,
// reporting how many were added.
func (s *Store) AddBatch(evs []event.OutputEvent) (int, error) {
	for i, ev := range evs {
		if err := s.Add(ev); err != nil {
			return i, fmt.Errorf("event %d/%d: %w", i, len(evs), err)
		}
	}
	return len(evs), nil
}

// Get looks an event up by identity.
func (s *Store) Get(id event.ID) (event.OutputEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.byID[id.PreHashedBytes()]
	return ev, ok
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Filter selects the stored events a consumer asked for. Nil fields match
// everything. Emitter matches the innermost call-stack entry, Caller the
// outermost. Results are ordered by (slot, read_only, index_in_slot).
type Filter struct {
	// Start and End bound the slot range as [Start, End).
	Start *types.Slot
	End   *types.Slot
	// Emitter is the contract that emitted the event (last call-stack
	// element).
	Emitter *types.Address
	// Caller is the original caller (first call-stack element).
	Caller *types.Address
	// ReadOnly selects one identity namespace.
	ReadOnly *bool
	// ID selects a single event.
	ID *event.ID
}

func (f Filter) matches(ev event.OutputEvent) bool {
	if f.Start != nil && ev.Context.Slot.Less(*f.Start) {
		return false
	}
	if f.End != nil && !ev.Context.Slot.Less(*f.End) {
		return false
	}
	if f.ReadOnly != nil && ev.Context.ReadOnly != *f.ReadOnly {
		return false
	}
	if f.ID != nil && ev.ID != *f.ID {
		return false
	}
	if f.Emitter != nil {
		emitter, ok := ev.Context.Emitter()
		if !ok || emitter != *f.Emitter {
			return false
		}
	}
	if f.Caller != nil {
		caller, ok := ev.Context.OriginalCaller()
		if !ok || caller != *f.Caller {
			return false
		}
	}
	return true
}

// Filter returns all stored events matching f, ordered by
// (slot, read_only, index_in_slot).
func (s *Store) Filter(f Filter) []event.OutputEvent {
	s.mu.RLock()
	out := make([]event.OutputEvent, 0)
	for _, ev := range s.byID {
		if f.matches(ev) {
			out = append(out, ev)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Context, out[j].Context
		if c := a.Slot.Compare(b.Slot); c != 0 {
			return c < 0
		}
		if a.ReadOnly != b.ReadOnly {
			// Committed events order before the read-only namespace.
			return !a.ReadOnly
		}
		return a.IndexInSlot < b.IndexInSlot
	})
	return out
}

// Prune drops every event from a slot strictly before the horizon and
// returns how many were removed.
func (s *Store) Prune(before types.Slot) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, ev := range s.byID {
		if ev.Context.Slot.Less(before) {
			delete(s.byID, key)
			delete(s.byPosition, position{
				slot:     ev.Context.Slot,
				readOnly: ev.Context.ReadOnly,
				index:    ev.Context.IndexInSlot,
			})
			removed++
		}
	}
	return removed
}

// Subscribe registers a live feed of newly added events. The returned
// channel has the requested buffer; events are dropped when it is full.
func (s *Store) Subscribe(buffer int) (uuid.UUID, <-chan event.OutputEvent) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan event.OutputEvent, buffer)
	token := uuid.New()

	s.mu.Lock()
	s.subs[token] = ch
	s.mu.Unlock()

	return token, ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(token uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[token]; ok {
		delete(s.subs, token)
		close(ch)
	}
}
