package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/switchboard-xyz/sbv2-solana-sub000/config"
)

func TestPrettyJSONMarshal(t *testing.T) {
	require := require.New(t)

	out, err := PrettyJSONMarshal(map[string]int{"rows": 3})
	require.NoError(err)
	require.Equal("{\n  \"rows\": 3\n}", string(out))

	_, err = PrettyJSONMarshal(make(chan int))
	require.Error(err)
}

func TestNormalizePath(t *testing.T) {
	require := require.New(t)

	saved := config.GlobalConfig.Common.DataDir
	defer func() {
		config.GlobalConfig.Common.DataDir = saved
	}()

	config.GlobalConfig.Common.DataDir = "/var/lib/crank"
	require.Equal(filepath.Clean("/var/lib/crank/crank.log"), normalizePath("crank.log"))
	require.Equal("/tmp/crank.log", normalizePath("/tmp/../tmp/crank.log"))

	config.GlobalConfig.Common.DataDir = ""
	require.Equal("crank.log", normalizePath("./crank.log"))
}
