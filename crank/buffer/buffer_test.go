package buffer

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/errors"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

func randomRows(rng *rand.Rand, n int) []api.Row {
	rows := make([]api.Row, 0, n)
	for i := 0; i < n; i++ {
		var row api.Row
		_, _ = rng.Read(row.ID[:])
		row.ID[0] |= 0x01 // Never a sentinel.
		row.EligibleAt = rng.Int63n(1<<40) - 1<<39
		rows = append(rows, row)
	}
	return rows
}

func TestNew(t *testing.T) {
	require := require.New(t)

	data := New(4)
	require.Len(data, 8+4*40)
	require.EqualValues(len(data), Size(4))
	require.Equal(api.BufferDiscriminator[:], data[:8])
	require.EqualValues(4, Capacity(len(data)))
	require.Empty(Decode(data), "a new buffer has no rows")
}

func TestDecodeRoundTrip(t *testing.T) {
	require := require.New(t)
	rng := rand.New(rand.NewSource(42))

	for _, tc := range []struct {
		rows     int
		capacity uint32
	}{
		{0, 0},
		{0, 3},
		{1, 1},
		{3, 4},
		{17, 17},
		{100, 250},
	} {
		rows := randomRows(rng, tc.rows)
		data, err := Encode(rows, tc.capacity)
		require.NoError(err, "Encode")

		decoded, err := DecodeStrict(data)
		require.NoError(err, "DecodeStrict")
		if tc.rows == 0 {
			require.Empty(decoded)
			continue
		}
		require.Equal(rows, decoded, "decode(encode(rows)) == rows")
	}
}

func TestDecodeSentinelTermination(t *testing.T) {
	require := require.New(t)
	rng := rand.New(rand.NewSource(7))

	rows := randomRows(rng, 6)
	data, err := Encode(rows, 6)
	require.NoError(err, "Encode")

	// Zero the id of row 2, leaving garbage timestamps and rows behind it.
	const k = 2
	off := api.HeaderSize + k*api.RowSize
	for i := 0; i < api.IDSize; i++ {
		data[off+i] = 0
	}
	binary.LittleEndian.PutUint64(data[off+api.IDSize:], 0xdeadbeef)

	require.Equal(rows[:k], Decode(data))
}

func TestDecodeTruncated(t *testing.T) {
	require := require.New(t)
	rng := rand.New(rand.NewSource(1))

	rows := randomRows(rng, 3)
	data, err := Encode(rows, 3)
	require.NoError(err, "Encode")

	truncated := data[:len(data)-5]
	require.Equal(rows[:2], Decode(truncated), "partial trailing row is end of data")

	_, err = DecodeStrict(truncated)
	require.True(errors.Is(err, api.ErrMalformedBuffer), "strict decoding rejects partial rows")
	require.True(api.IsFatal(err))

	_, err = DecodeStrict(data[:4])
	require.True(errors.Is(err, api.ErrMalformedBuffer), "strict decoding rejects short buffers")
	require.Nil(Decode(data[:4]))
}

func TestEncodeCapacity(t *testing.T) {
	require := require.New(t)
	rng := rand.New(rand.NewSource(3))

	_, err := Encode(randomRows(rng, 5), 4)
	require.True(errors.Is(err, api.ErrCapacityExceeded))

	_, err = Encode([]api.Row{{EligibleAt: 10}}, 4)
	require.True(errors.Is(err, api.ErrMalformedBuffer), "sentinel rows cannot be encoded")
	require.True(api.IsFatal(err))
	require.Equal("row 0 has a sentinel identifier", errors.Context(err))
}
