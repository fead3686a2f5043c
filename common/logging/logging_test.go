package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelAndFormatFlags(t *testing.T) {
	require := require.New(t)

	var lvl Level
	require.NoError(lvl.Set("debug"))
	require.Equal(LevelDebug, lvl)
	require.NoError(lvl.Set("WARN"))
	require.Equal("WARN", lvl.String())
	require.Error(lvl.Set("loud"), "unknown level")
	require.Equal("[DEBUG,INFO,WARN,ERROR]", lvl.Type())

	var format Format
	require.NoError(format.Set("json"))
	require.Equal(FmtJSON, format)
	require.Equal("JSON", format.String())
	require.Error(format.Set("xml"), "unknown format")
}

func TestJSONLogger(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	logger := NewJSONLogger(&buf).With("module", "crank")
	logger.Info("cycle done", "units", 2)

	const expected = `{"level":"info","module":"crank","msg":"cycle done","units":2}` + "\n"
	require.Equal(expected, buf.String())

	buf.Reset()
	logger.level = LevelError
	logger.Warn("suppressed")
	require.Empty(buf.String(), "messages below the logger level are dropped")
}

func TestModuleLevelPrefix(t *testing.T) {
	require := require.New(t)

	b := logBackend{
		defaultLevel: LevelWarn,
		moduleLevels: map[string]Level{
			"crank":        LevelInfo,
			"crank/driver": LevelDebug,
		},
	}

	require.Equal(LevelDebug, b.levelFor("crank/driver/worker"), "longest prefix wins")
	require.Equal(LevelInfo, b.levelFor("crank/packer"))
	require.Equal(LevelWarn, b.levelFor("history"), "default level")
}

func TestEarlyLoggerSwap(t *testing.T) {
	require := require.New(t)

	b := logBackend{defaultLevel: LevelError}
	l := b.getLogger("crank/driver")
	require.Len(b.pending, 1)
	require.Equal(LevelError, l.level)

	var buf bytes.Buffer
	err := b.initialize(NewJSONLogger(&buf).logger, LevelInfo, map[string]Level{"crank": LevelDebug})
	require.NoError(err)
	require.Nil(b.pending)
	require.Equal(LevelDebug, l.level, "module levels apply to early loggers")

	l.Debug("hello")
	require.Contains(buf.String(), `"msg":"hello"`)
	require.Contains(buf.String(), `"module":"crank/driver"`)

	require.Error(b.initialize(NewJSONLogger(&buf).logger, LevelInfo, nil), "double initialization")
}
