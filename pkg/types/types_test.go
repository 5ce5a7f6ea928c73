package types_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-chain/eventcore/pkg/hash"
	"github.com/meridian-chain/eventcore/pkg/types"
)

func TestSlotOrdering(t *testing.T) {
	cases := []struct {
		name string
		a, b types.Slot
		want int
	}{
		{"equal", types.NewSlot(5, 3), types.NewSlot(5, 3), 0},
		{"period wins", types.NewSlot(4, 30), types.NewSlot(5, 0), -1},
		{"thread breaks ties", types.NewSlot(5, 1), types.NewSlot(5, 2), -1},
		{"greater period", types.NewSlot(9, 0), types.NewSlot(8, 31), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Compare(tc.b))
			assert.Equal(t, -tc.want, tc.b.Compare(tc.a))
			assert.Equal(t, tc.want < 0, tc.a.Less(tc.b))
		})
	}
}

func TestSlotJSONFieldOrder(t *testing.T) {
	data, err := json.Marshal(types.NewSlot(7, 2))
	require.NoError(t, err)
	assert.JSONEq(t, `{"period":7,"thread":2}`, string(data))
	assert.Equal(t, `{"period":7,"thread":2}`, string(data))
}

func TestBlockIDCodecs(t *testing.T) {
	id := types.NewBlockID(hash.Compute([]byte("block header")))

	b := id.Bytes()
	back, err := types.BlockIDFromBytes(b[:])
	require.NoError(t, err)
	assert.Equal(t, id, back)

	back, err = types.BlockIDFromString(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, back)

	_, err = types.BlockIDFromBytes(b[:4])
	assert.True(t, errors.Is(err, hash.ErrDecode))
	_, err = types.BlockIDFromString("not-base58!")
	assert.True(t, errors.Is(err, hash.ErrDecode))
}

func TestAddressCodecs(t *testing.T) {
	addr := types.NewAddress(hash.Compute([]byte("pubkey")))

	b := addr.Bytes()
	back, err := types.AddressFromBytes(b[:])
	require.NoError(t, err)
	assert.Equal(t, addr, back)

	back, err = types.AddressFromString(addr.String())
	require.NoError(t, err)
	assert.Equal(t, addr, back)
}

func TestAddressJSONRoundTrip(t *testing.T) {
	addr := types.NewAddress(hash.Compute([]byte("pubkey")))

	data, err := json.Marshal(addr)
	require.NoError(t, err)
	assert.Equal(t, `"`+addr.String()+`"`, string(data))

	var back types.Address
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, addr, back)
}

func TestIdentifiersArePreHashed(t *testing.T) {
	d := hash.Compute([]byte("x"))

	var _ hash.PreHashed = types.NewBlockID(d)
	var _ hash.PreHashed = types.NewAddress(d)

	assert.Equal(t, d.Bytes(), types.NewAddress(d).PreHashedBytes())
}
