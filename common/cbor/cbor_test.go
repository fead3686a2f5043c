package cbor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalEncoding(t *testing.T) {
	require := require.New(t)

	// Map key order must not affect the encoding.
	a := Marshal(map[string]int{"b": 2, "a": 1})
	b := Marshal(map[string]int{"a": 1, "b": 2})
	require.Equal(a, b)

	var dec map[string]int
	require.NoError(Unmarshal(a, &dec))
	require.EqualValues(map[string]int{"a": 1, "b": 2}, dec)

	require.NoError(Unmarshal(nil, &dec), "nil input is a no-op")
	require.Error(Unmarshal([]byte{0xff, 0x00}, &dec), "malformed input")
}
