// Package logging implements leveled, per-module structured logging on top
// of go-kit/log.
//
// Loggers are obtained per module with GetLogger, usually into package
// level variables. Loggers created before Initialize buffer nothing: they
// are silent until the backend is initialized and then switch over to it.
package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// callerDepth is the stack depth of the logging call site as seen from the
// caller valuer: valuer, bindValues, Log, Logger.log, Logger.<Level>.
const callerDepth = 5

var backend = logBackend{
	defaultLevel: LevelError,
}

// Logger is a module logger.
type Logger struct {
	logger log.Logger
	level  Level
	module string
}

func (l *Logger) log(lvl Level, msg string, keyvals []interface{}) {
	if lvl < l.level {
		return
	}

	kv := make([]interface{}, 0, len(keyvals)+4)
	kv = append(kv, level.Key(), levelValues[lvl], "msg", msg)
	kv = append(kv, keyvals...)
	_ = l.logger.Log(kv...)
}

// Debug logs a message with key value pairs at LevelDebug.
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.log(LevelDebug, msg, keyvals)
}

// Info logs a message with key value pairs at LevelInfo.
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.log(LevelInfo, msg, keyvals)
}

// Warn logs a message with key value pairs at LevelWarn.
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.log(LevelWarn, msg, keyvals)
}

// Error logs a message with key value pairs at LevelError.
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.log(LevelError, msg, keyvals)
}

// With returns a logger that adds the key value pairs to every message.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{
		logger: log.With(l.logger, keyvals...),
		level:  l.level,
		module: l.module,
	}
}

// NewJSONLogger creates a logger writing JSON directly to w at LevelDebug,
// bypassing the backend.
func NewJSONLogger(w io.Writer) *Logger {
	return &Logger{
		logger: log.NewJSONLogger(w),
	}
}

// GetLogger returns a logger for the given module.
//
// It may be called before Initialize.
func GetLogger(module string) *Logger {
	return backend.getLogger(module)
}

// Initialize initializes the logging backend. Messages are written to w in
// the given format; a nil w discards everything. Modules log at the level
// of their longest matching prefix in moduleLvls, or at defaultLvl.
func Initialize(w io.Writer, format Format, defaultLvl Level, moduleLvls map[string]Level) error {
	var base log.Logger
	switch {
	case w == nil:
		base = log.NewNopLogger()
	case format == FmtLogfmt:
		base = log.NewLogfmtLogger(log.NewSyncWriter(w))
	case format == FmtJSON:
		base = log.NewJSONLogger(log.NewSyncWriter(w))
	default:
		return fmt.Errorf("logging: unsupported log format: %v", format)
	}

	return backend.initialize(log.With(base, "ts", log.DefaultTimestampUTC), defaultLvl, moduleLvls)
}

type logBackend struct {
	sync.Mutex

	base         log.Logger
	defaultLevel Level
	moduleLevels map[string]Level

	// pending are the loggers created before initialization, each writing
	// through a swap logger.
	pending map[*Logger]*log.SwapLogger
}

func (b *logBackend) initialize(base log.Logger, defaultLvl Level, moduleLvls map[string]Level) error {
	b.Lock()
	defer b.Unlock()

	if b.base != nil {
		return fmt.Errorf("logging: already initialized")
	}
	b.base = base
	b.defaultLevel = defaultLvl
	b.moduleLevels = moduleLvls

	for l, swap := range b.pending {
		swap.Swap(base)
		l.level = b.levelFor(l.module)
	}
	b.pending = nil

	return nil
}

// levelFor returns the level of the longest module prefix matching module.
func (b *logBackend) levelFor(module string) Level {
	lvl, matched := b.defaultLevel, -1
	for prefix, prefixLvl := range b.moduleLevels {
		if len(prefix) > matched && strings.HasPrefix(module, prefix) {
			lvl, matched = prefixLvl, len(prefix)
		}
	}
	return lvl
}

func (b *logBackend) getLogger(module string) *Logger {
	b.Lock()
	defer b.Unlock()

	var (
		swap *log.SwapLogger
		base = b.base
	)
	if base == nil {
		swap = &log.SwapLogger{}
		base = swap
	}

	keyvals := []interface{}{"caller", log.Caller(callerDepth)}
	if module != "" {
		keyvals = append([]interface{}{"module", module}, keyvals...)
	}
	l := &Logger{
		logger: log.WithPrefix(base, keyvals...),
		level:  b.levelFor(module),
		module: module,
	}

	if swap != nil {
		if b.pending == nil {
			b.pending = make(map[*Logger]*log.SwapLogger)
		}
		b.pending[l] = swap
	}

	return l
}
