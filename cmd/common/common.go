// Package common implements common crank command line functionality.
package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/logging"
	"github.com/switchboard-xyz/sbv2-solana-sub000/config"
)

const (
	// CfgConfigFile is the flag used to specify a config file.
	CfgConfigFile = "config"

	cfgLogFile  = "log.file"
	cfgLogFmt   = "log.format"
	cfgLogLevel = "log.level"
)

var (
	// RootFlags has the flags that are common across all commands.
	RootFlags = flag.NewFlagSet("", flag.ContinueOnError)

	loggingFlags = flag.NewFlagSet("", flag.ContinueOnError)

	rootLog = logging.GetLogger("cmd")

	initErr error
)

// InitConfig initializes the command configuration.
//
// WARNING: This is exposed for the benefit of tests and the interface
// is not guaranteed to be stable.
func InitConfig() {
	initErr = initConfig()
}

func initConfig() error {
	if cfgFile := viper.GetString(CfgConfigFile); cfgFile != "" {
		if err := config.InitConfig(cfgFile); err != nil {
			return err
		}
	}
	return initLogging()
}

// EarlyLogAndExit logs the error and exits if the common initialization
// failed.
func EarlyLogAndExit(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// Init returns the error of the common initialization, if any.
func Init() error {
	return initErr
}

// Logger returns the command logger.
func Logger() *logging.Logger {
	return rootLog
}

func initLogging() error {
	cfg := config.GlobalConfig.Common.Log

	// Command line flags override the config file.
	logFile := cfg.File
	if viper.IsSet(cfgLogFile) {
		logFile = viper.GetString(cfgLogFile)
	}
	format := cfg.Format
	if viper.IsSet(cfgLogFmt) {
		format = viper.GetString(cfgLogFmt)
	}
	levels := make(map[string]string, len(cfg.Level))
	for k, v := range cfg.Level {
		levels[k] = v
	}
	if viper.IsSet(cfgLogLevel) {
		levels["default"] = viper.GetString(cfgLogLevel)
	}

	logLevel := logging.LevelWarn
	moduleLevels := map[string]logging.Level{}
	for k, v := range levels {
		var lvl logging.Level
		if err := lvl.Set(v); err != nil {
			return err
		}
		if k == "default" {
			logLevel = lvl
			continue
		}
		moduleLevels[k] = lvl
	}

	var logFmt logging.Format
	if err := logFmt.Set(format); err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if logFile != "" {
		logFile = normalizePath(logFile)

		var err error
		if w, err = os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err != nil {
			return err
		}
	}

	return logging.Initialize(w, logFmt, logLevel, moduleLevels)
}

func normalizePath(f string) string {
	if !filepath.IsAbs(f) {
		if dataDir := config.GlobalConfig.Common.DataDir; dataDir != "" {
			f = filepath.Join(dataDir, f)
		}
	}
	return filepath.Clean(f)
}

// DataDir returns the data directory.
func DataDir() string {
	return config.GlobalConfig.Common.DataDir
}

// PrettyJSONMarshal returns pretty-printed JSON encoding of v.
func PrettyJSONMarshal(v interface{}) ([]byte, error) {
	formatted, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal to pretty JSON: %w", err)
	}
	return formatted, nil
}

func init() {
	logFmt := logging.FmtLogfmt
	logLevel := logging.LevelWarn

	loggingFlags.String(cfgLogFile, "", "log file")
	loggingFlags.Var(&logFmt, cfgLogFmt, "log format")
	loggingFlags.Var(&logLevel, cfgLogLevel, "default log level")
	_ = viper.BindPFlags(loggingFlags)

	RootFlags.StringP(CfgConfigFile, "c", "", "config file")
	_ = viper.BindPFlags(RootFlags)
	RootFlags.AddFlagSet(loggingFlags)

	// Allow CRANK_LOG_LEVEL style environment overrides of flags.
	viper.SetEnvPrefix("crank")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}
