package keyformat

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyFormat(t *testing.T) {
	require := require.New(t)

	kf := New(0x02, int64(0), uint64(0), []byte{})
	require.Equal(17, kf.Size())

	key := kf.Encode(int64(-5), uint64(7), []byte("abc"))
	require.Len(key, 20)

	var (
		a int64
		b uint64
		c []byte
	)
	require.True(kf.Decode(key, &a, &b, &c))
	require.EqualValues(-5, a)
	require.EqualValues(7, b)
	require.Equal([]byte("abc"), c)

	require.False(New(0x03, int64(0)).Decode(key, &a), "prefix mismatch")
	require.False(kf.Decode(key[:5], &a), "short key")
	require.Equal([]byte{0x02}, kf.Encode())
}

func TestKeyFormatOrdering(t *testing.T) {
	kf := New(0x01, int64(0))

	values := []int64{-1 << 62, -42, -1, 0, 1, 42, 1 << 62}
	for i := 1; i < len(values); i++ {
		require.Negative(t, bytes.Compare(kf.Encode(values[i-1]), kf.Encode(values[i])),
			"%d must sort before %d", values[i-1], values[i])
	}
}
