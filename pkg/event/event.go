// Package event defines the output-event record produced by smart-contract
// execution: a digest-backed event identity, the execution context that
// attributes and orders the event, and the aggregate record carrying the
// opaque payload.
package event

import (
	"github.com/meridian-chain/eventcore/pkg/hash"
	"github.com/meridian-chain/eventcore/pkg/types"
)

// IDSize is the byte length of an event identity on the wire.
const IDSize = hash.Size

// ID is the identity of a single output event. It wraps the digest computed
// by the execution engine; this package never derives the digest itself.
// By producer contract the digest is a deterministic function of
// (slot, read_only, index_in_slot), so uniqueness within a read-only domain
// is the engine's responsibility.
//
// ID is an immutable value type: equality, ordering, and container-key
// hashing are all structural over the digest bytes.
type ID struct {
	digest hash.Digest
}

// NewID wraps an externally computed digest as an event identity.
func NewID(d hash.Digest) ID {
	return ID{digest: d}
}

// Bytes returns the exact-size byte encoding of the identity. It never
// fails; the encoding has no header or length prefix.
func (id ID) Bytes() [IDSize]byte {
	return id.digest.Bytes()
}

// IDFromBytes reconstructs an identity from exactly IDSize bytes. It
// round-trips with Bytes and returns hash.ErrDecode on any other length.
func IDFromBytes(data []byte) (ID, error) {
	d, err := hash.FromBytes(data)
	if err != nil {
		return ID{}, err
	}
	return ID{digest: d}, nil
}

// String returns the canonical human-readable encoding: checksummed base58
// over the digest bytes. Deterministic, total.
func (id ID) String() string {
	return id.digest.BS58Check()
}

// IDFromString decodes and checksum-validates the textual form. Malformed
// base58 and checksum mismatch both return hash.ErrDecode. Round-trips
// with String.
func IDFromString(s string) (ID, error) {
	d, err := hash.FromBS58Check(s)
	if err != nil {
		return ID{}, err
	}
	return ID{digest: d}, nil
}

// ParseID parses the one textual grammar an event identity has; it is
// exactly IDFromString.
func ParseID(s string) (ID, error) {
	return IDFromString(s)
}

// Compare orders identities lexicographically over their byte encodings.
func (id ID) Compare(other ID) int {
	return id.digest.Compare(other.digest)
}

// Less reports whether id orders strictly before other.
func (id ID) Less(other ID) bool {
	return id.Compare(other) < 0
}

// PreHashedBytes implements hash.PreHashed: the identity's container-key
// hash is its digest, so lookup structures never rehash it.
func (id ID) PreHashedBytes() [hash.Size]byte {
	return id.digest.PreHashedBytes()
}

// MarshalText encodes the identity in its checksummed base58 form.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes the checksummed base58 form.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := IDFromString(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ExecutionContext is the provenance metadata attached to an output event.
// It is a closed record: no behavior beyond field access and equality.
type ExecutionContext struct {
	// Slot the event was generated in.
	Slot types.Slot `json:"slot"`
	// Block produced at that slot; nil when the slot produced no block or
	// the event came from a read-only execution. Encodes as explicit null,
	// never as a sentinel value.
	Block *types.BlockID `json:"block"`
	// ReadOnly marks events generated by a speculative, non-committing
	// execution; their identities and ordering live in a separate
	// namespace from committed events.
	ReadOnly bool `json:"read_only"`
	// IndexInSlot is the zero-based position of the event among its
	// siblings; unique per (slot, read_only) pair by producer contract.
	IndexInSlot uint64 `json:"index_in_slot"`
	// CallStack is the nested contract-call chain that led to the event,
	// oldest call first, innermost call last. It only ever grows by
	// appending and is never reordered after construction.
	CallStack []types.Address `json:"call_stack"`
}

// Emitter returns the innermost call, i.e. the contract that emitted the
// event, and false when the call stack is empty.
func (c ExecutionContext) Emitter() (types.Address, bool) {
	if len(c.CallStack) == 0 {
		return types.Address{}, false
	}
	return c.CallStack[len(c.CallStack)-1], true
}

// OriginalCaller returns the outermost call that started the chain, and
// false when the call stack is empty.
func (c ExecutionContext) OriginalCaller() (types.Address, bool) {
	if len(c.CallStack) == 0 {
		return types.Address{}, false
	}
	return c.CallStack[0], true
}

// Equal reports structural equality, including call-stack order.
func (c ExecutionContext) Equal(other ExecutionContext) bool {
	if c.Slot != other.Slot ||
		c.ReadOnly != other.ReadOnly ||
		c.IndexInSlot != other.IndexInSlot {
		return false
	}
	if (c.Block == nil) != (other.Block == nil) {
		return false
	}
	if c.Block != nil && *c.Block != *other.Block {
		return false
	}
	if len(c.CallStack) != len(other.CallStack) {
		return false
	}
	for i := range c.CallStack {
		if c.CallStack[i] != other.CallStack[i] {
			return false
		}
	}
	return true
}

// OutputEvent is the record emitted by a byte-code execution: identity,
// execution context, and the uninterpreted payload (conventionally JSON
// text; nothing here parses or validates it).
//
// JSON field order (id, context, data; slot, block, read_only,
// index_in_slot, call_stack within the context) is part of the external
// contract with stored and wire data.
type OutputEvent struct {
	ID      ID               `json:"id"`
	Context ExecutionContext `json:"context"`
	Data    string           `json:"data"`
}
