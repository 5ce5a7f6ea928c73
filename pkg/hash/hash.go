// Package hash provides the fixed-size digest primitive that backs every
// identifier on the chain (event IDs, block IDs, addresses), together with
// its two codecs: raw fixed-size bytes and checksummed base58 text.
package hash

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
)

// Size is the digest length in bytes. Every identifier derived from a
// digest has exactly this byte length on the wire.
const Size = 32

// checksumLen is the number of trailing double-SHA256 bytes appended to the
// digest before base58 encoding.
const checksumLen = 4

// ErrDecode is returned by every decode path in this package: wrong-length
// byte slices, malformed base58, and checksum mismatches all surface it.
// Callers should treat it as a data-integrity signal, not a programming
// error.
var ErrDecode = errors.New("hash decode failed")

// Digest is an immutable 32-byte hash value. It is a plain value type:
// copy it freely, compare it structurally, use it as a map key.
type Digest [Size]byte

// Compute hashes data with Keccak-256 and returns the resulting digest.
func Compute(data []byte) Digest {
	var d Digest
	copy(d[:], crypto.Keccak256(data))
	return d
}

// Bytes returns the exact-size byte encoding of the digest.
func (d Digest) Bytes() [Size]byte {
	return d
}

// FromBytes reconstructs a digest from exactly Size bytes.
func FromBytes(b []byte) (Digest, error) {
	if len(b) != Size {
		return Digest{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrDecode, Size, len(b))
	}
	var d Digest
	copy(d[:], b)
	return d, nil
}

// BS58Check returns the checksummed base58 text encoding of the digest:
// base58(digest || first 4 bytes of SHA256(SHA256(digest))).
func (d Digest) BS58Check() string {
	payload := make([]byte, 0, Size+checksumLen)
	payload = append(payload, d[:]...)
	payload = append(payload, checksum(d[:])...)
	return base58.Encode(payload)
}

// FromBS58Check decodes and checksum-validates a base58 string produced by
// BS58Check. Malformed base58 and checksum mismatch both return ErrDecode.
func FromBS58Check(s string) (Digest, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: invalid base58: %v", ErrDecode, err)
	}
	if len(raw) != Size+checksumLen {
		return Digest{}, fmt.Errorf("%w: expected %d bytes after base58 decode, got %d",
			ErrDecode, Size+checksumLen, len(raw))
	}
	body, sum := raw[:Size], raw[Size:]
	if !bytes.Equal(sum, checksum(body)) {
		return Digest{}, fmt.Errorf("%w: checksum mismatch", ErrDecode)
	}
	var d Digest
	copy(d[:], body)
	return d, nil
}

// Compare orders digests lexicographically over their bytes. It returns
// -1, 0 or 1 in the manner of bytes.Compare.
func (d Digest) Compare(other Digest) int {
	return bytes.Compare(d[:], other[:])
}

// Less reports whether d orders strictly before other.
func (d Digest) Less(other Digest) bool {
	return d.Compare(other) < 0
}

// String returns the checksummed base58 form.
func (d Digest) String() string {
	return d.BS58Check()
}

// PreHashed is implemented by identifier types that expose their digest
// bytes as a precomputed container key. Lookup structures keyed by these
// identifiers can use the returned array directly as a comparable map key
// instead of rehashing a variable-length encoding.
type PreHashed interface {
	PreHashedBytes() [Size]byte
}

// PreHashedBytes returns the digest itself; a Digest is its own key.
func (d Digest) PreHashedBytes() [Size]byte {
	return d
}

func checksum(body []byte) []byte {
	first := sha256.Sum256(body)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}
