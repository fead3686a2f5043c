package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cmdCommon "github.com/switchboard-xyz/sbv2-solana-sub000/cmd/common"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "run a single scheduling cycle and print its report",
	Run:   doCycle,
}

func doCycle(cmd *cobra.Command, args []string) {
	initCommon()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n := loadNode(ctx, true)
	report, cycleErr := n.Driver.RunCycle(ctx)
	if n.History != nil {
		if err := n.History.Record(report); err != nil {
			logger.Error("failed to record cycle report",
				"err", err,
			)
		}
	}
	closeNode(n)

	pretty, err := cmdCommon.PrettyJSONMarshal(report)
	if err != nil {
		logger.Error("failed to format cycle report",
			"err", err,
		)
		os.Exit(1)
	}
	fmt.Println(string(pretty))

	if cycleErr != nil {
		os.Exit(1)
	}
}

func registerCycle(parentCmd *cobra.Command) {
	parentCmd.AddCommand(cycleCmd)
}
