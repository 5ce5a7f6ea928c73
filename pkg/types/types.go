// Package types holds the chain-level value types shared across the node:
// slots, block identifiers, and contract addresses. All of them are
// immutable values safe to copy across goroutines.
package types

import (
	"github.com/meridian-chain/eventcore/pkg/hash"
)

// BlockID identifies a block by the digest of its header.
type BlockID struct {
	digest hash.Digest
}

// NewBlockID wraps a digest as a block identifier.
func NewBlockID(d hash.Digest) BlockID {
	return BlockID{digest: d}
}

// Bytes returns the fixed-size byte encoding.
func (b BlockID) Bytes() [hash.Size]byte {
	return b.digest.Bytes()
}

// BlockIDFromBytes reconstructs a block ID from exactly hash.Size bytes.
func BlockIDFromBytes(data []byte) (BlockID, error) {
	d, err := hash.FromBytes(data)
	if err != nil {
		return BlockID{}, err
	}
	return BlockID{digest: d}, nil
}

// BlockIDFromString decodes the checksummed base58 form.
func BlockIDFromString(s string) (BlockID, error) {
	d, err := hash.FromBS58Check(s)
	if err != nil {
		return BlockID{}, err
	}
	return BlockID{digest: d}, nil
}

// Compare orders block IDs by their digest bytes.
func (b BlockID) Compare(other BlockID) int {
	return b.digest.Compare(other.digest)
}

// PreHashedBytes implements hash.PreHashed.
func (b BlockID) PreHashedBytes() [hash.Size]byte {
	return b.digest.PreHashedBytes()
}

func (b BlockID) String() string {
	return b.digest.BS58Check()
}

// MarshalText encodes the block ID in its checksummed base58 form.
func (b BlockID) MarshalText() ([]byte, error) {
	return []byte(b.digest.BS58Check()), nil
}

// UnmarshalText decodes the checksummed base58 form.
func (b *BlockID) UnmarshalText(text []byte) error {
	d, err := hash.FromBS58Check(string(text))
	if err != nil {
		return err
	}
	b.digest = d
	return nil
}

// Address identifies a contract or account by the digest of its public key.
type Address struct {
	digest hash.Digest
}

// NewAddress wraps a digest as an address.
func NewAddress(d hash.Digest) Address {
	return Address{digest: d}
}

// Bytes returns the fixed-size byte encoding.
func (a Address) Bytes() [hash.Size]byte {
	return a.digest.Bytes()
}

// AddressFromBytes reconstructs an address from exactly hash.Size bytes.
func AddressFromBytes(data []byte) (Address, error) {
	d, err := hash.FromBytes(data)
	if err != nil {
		return Address{}, err
	}
	return Address{digest: d}, nil
}

// AddressFromString decodes the checksummed base58 form.
func AddressFromString(s string) (Address, error) {
	d, err := hash.FromBS58Check(s)
	if err != nil {
		return Address{}, err
	}
	return Address{digest: d}, nil
}

// Compare orders addresses by their digest bytes.
func (a Address) Compare(other Address) int {
	return a.digest.Compare(other.digest)
}

// PreHashedBytes implements hash.PreHashed.
func (a Address) PreHashedBytes() [hash.Size]byte {
	return a.digest.PreHashedBytes()
}

func (a Address) String() string {
	return a.digest.BS58Check()
}

// MarshalText encodes the address in its checksummed base58 form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.digest.BS58Check()), nil
}

// UnmarshalText decodes the checksummed base58 form.
func (a *Address) UnmarshalText(text []byte) error {
	d, err := hash.FromBS58Check(string(text))
	if err != nil {
		return err
	}
	a.digest = d
	return nil
}
