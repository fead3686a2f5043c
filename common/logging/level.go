package logging

import (
	"fmt"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/spf13/pflag"
)

var (
	_ pflag.Value = (*Level)(nil)
	_ pflag.Value = (*Format)(nil)
)

// Level is a log level.
type Level uint

const (
	// LevelDebug is the log level for debug messages.
	LevelDebug Level = iota
	// LevelInfo is the log level for informative messages.
	LevelInfo
	// LevelWarn is the log level for warning messages.
	LevelWarn
	// LevelError is the log level for error messages.
	LevelError
)

var (
	levelNames  = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}
	levelValues = [...]level.Value{level.DebugValue(), level.InfoValue(), level.WarnValue(), level.ErrorValue()}
)

// String returns the string representation of a Level.
func (l *Level) String() string {
	if int(*l) >= len(levelNames) {
		return fmt.Sprintf("[unknown level: %d]", uint(*l))
	}
	return levelNames[*l]
}

// Set sets the Level from its case-insensitive name.
func (l *Level) Set(s string) error {
	for i, name := range levelNames {
		if strings.EqualFold(name, s) {
			*l = Level(i)
			return nil
		}
	}
	return fmt.Errorf("logging: invalid log level: '%s'", s)
}

// Type returns the list of supported Levels.
func (l *Level) Type() string {
	return "[" + strings.Join(levelNames[:], ",") + "]"
}

// Format is a logging format.
type Format uint

const (
	// FmtLogfmt is the "logfmt" logging format.
	FmtLogfmt Format = iota
	// FmtJSON is the JSON logging format.
	FmtJSON
)

var formatNames = [...]string{"logfmt", "JSON"}

// String returns the string representation of a Format.
func (f *Format) String() string {
	if int(*f) >= len(formatNames) {
		return fmt.Sprintf("[unknown format: %d]", uint(*f))
	}
	return formatNames[*f]
}

// Set sets the Format from its case-insensitive name.
func (f *Format) Set(s string) error {
	for i, name := range formatNames {
		if strings.EqualFold(name, s) {
			*f = Format(i)
			return nil
		}
	}
	return fmt.Errorf("logging: invalid log format: '%s'", s)
}

// Type returns the list of supported Formats.
func (f *Format) Type() string {
	return "[" + strings.Join(formatNames[:], ",") + "]"
}
