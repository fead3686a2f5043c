// Package cmd implements the commands for the crank executable.
package cmd

import (
	"context"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	cmdCommon "github.com/switchboard-xyz/sbv2-solana-sub000/cmd/common"
	"github.com/switchboard-xyz/sbv2-solana-sub000/cmd/crank/node"
	"github.com/switchboard-xyz/sbv2-solana-sub000/common/logging"
	"github.com/switchboard-xyz/sbv2-solana-sub000/config"
)

var (
	rootCmd = &cobra.Command{
		Use:   "crank",
		Short: "Oracle crank scheduler",
	}

	logger = logging.GetLogger("cmd/crank")
)

// RootCommand returns the root (top level) cobra.Command.
func RootCommand() *cobra.Command {
	return rootCmd
}

// Execute spawns the main entry point after handling the config file
// and command line arguments.
func Execute() {
	// Only the owner should have access to anything created by the crank,
	// the history in particular.
	syscall.Umask(0o077)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCommon() {
	if err := cmdCommon.Init(); err != nil {
		cmdCommon.EarlyLogAndExit(err)
	}
}

func loadNode(ctx context.Context, withHistory bool) *node.Node {
	n, err := node.New(ctx, &config.GlobalConfig, withHistory)
	if err != nil {
		logger.Error("failed to load crank",
			"err", err,
		)
		os.Exit(1)
	}
	return n
}

func closeNode(n *node.Node) {
	if err := n.Close(); err != nil {
		logger.Error("failed to close crank",
			"err", err,
		)
	}
}

func init() {
	cobra.OnInitialize(cmdCommon.InitConfig)

	rootCmd.PersistentFlags().AddFlagSet(cmdCommon.RootFlags)

	for _, v := range []func(*cobra.Command){
		registerRun,
		registerCycle,
		registerInspect,
		registerPush,
		registerInit,
		registerHistory,
	} {
		v(rootCmd)
	}
}
