package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/switchboard-xyz/sbv2-solana-sub000/cmd/common/background"
	"github.com/switchboard-xyz/sbv2-solana-sub000/cmd/common/metrics"
	"github.com/switchboard-xyz/sbv2-solana-sub000/cmd/crank/node"
	"github.com/switchboard-xyz/sbv2-solana-sub000/config"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run the crank scheduler",
	Run:   doRun,
}

type nodeCleanup struct {
	n *node.Node
}

func (c *nodeCleanup) Cleanup() {
	closeNode(c.n)
}

func doRun(cmd *cobra.Command, args []string) {
	initCommon()

	svcMgr := background.NewServiceManager(logger)
	err := run(svcMgr)
	svcMgr.Stop()
	svcMgr.Cleanup()

	if err != nil {
		logger.Error("crank terminated",
			"err", err,
		)
		os.Exit(1)
	}
}

func run(svcMgr *background.ServiceManager) error {
	n := loadNode(svcMgr.Ctx, true)
	svcMgr.RegisterCleanupOnly(&nodeCleanup{n}, "node")

	msvc, err := metrics.New(&config.GlobalConfig.Metrics)
	if err != nil {
		return err
	}
	if err = msvc.Start(); err != nil {
		return err
	}
	svcMgr.Register(msvc)

	worker := n.NewWorker()
	if err = worker.Start(); err != nil {
		return err
	}
	svcMgr.Register(worker)

	logger.Info("crank scheduler started",
		"crank", n.Network.Crank,
		"interval", n.Config.Crank.Interval,
		"metrics", config.GlobalConfig.Metrics.Mode,
	)

	svcMgr.Wait()
	logSummary(worker.Recent())

	return worker.Err()
}

// logSummary logs the outcome of the most recent cycles on shutdown.
func logSummary(recent []*api.Report) {
	var advanced, units, failed int
	for _, report := range recent {
		advanced += report.Advanced
		units += len(report.Units)
		failed += len(report.Failed())
	}
	keyvals := []interface{}{
		"cycles", len(recent),
		"advanced", advanced,
		"units", units,
		"failed_units", failed,
	}
	if n := len(recent); n > 0 {
		last := recent[n-1]
		keyvals = append(keyvals, "last_state", last.State, "last_started", last.Started)
	}
	logger.Info("crank scheduler stopped", keyvals...)
}

func registerRun(parentCmd *cobra.Command) {
	parentCmd.AddCommand(runCmd)
}
