package hash_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-chain/eventcore/pkg/hash"
)

func TestComputeIsDeterministic(t *testing.T) {
	a := hash.Compute([]byte("hello world"))
	b := hash.Compute([]byte("hello world"))
	c := hash.Compute([]byte("hello worlD"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestBytesRoundTrip(t *testing.T) {
	d := hash.Compute([]byte("hello world"))

	b := d.Bytes()
	assert.Len(t, b[:], hash.Size)

	back, err := hash.FromBytes(b[:])
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestFromBytesRejectsWrongLength(t *testing.T) {
	d := hash.Compute([]byte("hello world"))
	b := d.Bytes()

	// Truncated by one byte
	_, err := hash.FromBytes(b[:hash.Size-1])
	require.Error(t, err)
	assert.True(t, errors.Is(err, hash.ErrDecode))

	// One byte too long
	_, err = hash.FromBytes(append(b[:], 0x00))
	require.Error(t, err)
	assert.True(t, errors.Is(err, hash.ErrDecode))

	_, err = hash.FromBytes(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hash.ErrDecode))
}

func TestBS58CheckRoundTrip(t *testing.T) {
	d := hash.Compute([]byte("hello world"))

	s := d.BS58Check()
	require.NotEmpty(t, s)

	back, err := hash.FromBS58Check(s)
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestFromBS58CheckRejectsCorruptedInput(t *testing.T) {
	d := hash.Compute([]byte("hello world"))
	s := d.BS58Check()

	// Flip one character; either the base58 payload or the checksum no
	// longer matches.
	flipped := []byte(s)
	if flipped[0] == '1' {
		flipped[0] = '2'
	} else {
		flipped[0] = '1'
	}
	_, err := hash.FromBS58Check(string(flipped))
	require.Error(t, err)
	assert.True(t, errors.Is(err, hash.ErrDecode))

	// Truncated string
	_, err = hash.FromBS58Check(s[:len(s)-2])
	require.Error(t, err)
	assert.True(t, errors.Is(err, hash.ErrDecode))

	// Characters outside the base58 alphabet
	_, err = hash.FromBS58Check("0OIl+/==")
	require.Error(t, err)
	assert.True(t, errors.Is(err, hash.ErrDecode))

	_, err = hash.FromBS58Check("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, hash.ErrDecode))
}

func TestCompareMatchesByteOrder(t *testing.T) {
	var lo, hi hash.Digest
	lo[0] = 0x01
	hi[0] = 0x02

	assert.Equal(t, -1, lo.Compare(hi))
	assert.Equal(t, 1, hi.Compare(lo))
	assert.Equal(t, 0, lo.Compare(lo))
	assert.True(t, lo.Less(hi))
	assert.False(t, hi.Less(lo))
	assert.False(t, lo.Less(lo))
}

func TestPreHashedBytesIsDigest(t *testing.T) {
	d := hash.Compute([]byte("key material"))

	var p hash.PreHashed = d
	assert.Equal(t, d.Bytes(), p.PreHashedBytes())

	// Usable directly as a map key without rehashing.
	m := map[[hash.Size]byte]string{}
	m[d.PreHashedBytes()] = "v"
	assert.Equal(t, "v", m[d.Bytes()])
}
