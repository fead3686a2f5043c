package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	cmdCommon "github.com/switchboard-xyz/sbv2-solana-sub000/cmd/common"
	"github.com/switchboard-xyz/sbv2-solana-sub000/cmd/crank/node"
	"github.com/switchboard-xyz/sbv2-solana-sub000/config"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/history"
)

const (
	cfgHistoryCount = "count"
	cfgHistoryJSON  = "json"
	cfgHistoryFrom  = "from"
	cfgHistoryTo    = "to"
)

var (
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "show recent scheduling cycle reports",
		Long:  "Shows the latest --count reports, or every report in the --from/--to range.",
		Run:   doHistory,
	}

	historyFlags = flag.NewFlagSet("", flag.ContinueOnError)
)

func doHistory(cmd *cobra.Command, args []string) {
	initCommon()

	cfg := &config.GlobalConfig
	if !cfg.History.Enabled || cfg.Common.DataDir == "" {
		logger.Error("history is disabled")
		os.Exit(1)
	}
	crank, err := solana.PublicKeyFromBase58(cfg.Network.Crank)
	if err != nil {
		logger.Error("malformed crank",
			"err", err,
		)
		os.Exit(1)
	}

	store, err := history.New(filepath.Join(cfg.Common.DataDir, node.HistoryDir), crank, &cfg.History)
	if err != nil {
		logger.Error("failed to open history",
			"err", err,
		)
		os.Exit(1)
	}
	defer func() {
		if err = store.Close(); err != nil {
			logger.Error("failed to close history",
				"err", err,
			)
		}
	}()

	var reports []*api.Report
	from, to, ranged, err := parseRange(viper.GetString(cfgHistoryFrom), viper.GetString(cfgHistoryTo), time.Now())
	switch {
	case err != nil:
		logger.Error("malformed time range",
			"err", err,
		)
		return
	case ranged:
		reports, err = store.Range(from, to)
	default:
		reports, err = store.Latest(viper.GetInt(cfgHistoryCount))
	}
	if err != nil {
		logger.Error("failed to read history",
			"err", err,
		)
		return
	}

	if viper.GetBool(cfgHistoryJSON) {
		pretty, err := cmdCommon.PrettyJSONMarshal(reports)
		if err != nil {
			logger.Error("failed to format reports",
				"err", err,
			)
			return
		}
		fmt.Println(string(pretty))
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Started", "Duration", "State", "Loaded", "Selected", "Advanced", "Units", "Failed", "Error"})
	for _, r := range reports {
		table.Append(formatReport(r))
	}
	table.Render()
}

// parseRange parses the RFC 3339 bounds of a history query. An unset lower
// bound is the unix epoch and an unset upper bound is now. ranged is false
// when neither bound is set.
func parseRange(from, to string, now time.Time) (start, end time.Time, ranged bool, err error) {
	if from == "" && to == "" {
		return time.Time{}, time.Time{}, false, nil
	}

	start, end = time.Unix(0, 0), now
	if from != "" {
		if start, err = time.Parse(time.RFC3339, from); err != nil {
			return time.Time{}, time.Time{}, false, fmt.Errorf("--%s: %w", cfgHistoryFrom, err)
		}
	}
	if to != "" {
		if end, err = time.Parse(time.RFC3339, to); err != nil {
			return time.Time{}, time.Time{}, false, fmt.Errorf("--%s: %w", cfgHistoryTo, err)
		}
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, false, fmt.Errorf("empty range [%s, %s)", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start, end, true, nil
}

func formatReport(r *api.Report) []string {
	return []string{
		r.Started.UTC().Format(time.RFC3339),
		r.Duration.Round(time.Millisecond).String(),
		r.State.String(),
		strconv.Itoa(r.Loaded),
		strconv.Itoa(r.Selected),
		strconv.Itoa(r.Advanced),
		strconv.Itoa(len(r.Units)),
		strconv.Itoa(len(r.Failed())),
		r.Error,
	}
}

func registerHistory(parentCmd *cobra.Command) {
	historyFlags.Int(cfgHistoryCount, 20, "number of reports to show")
	historyFlags.Bool(cfgHistoryJSON, false, "print reports as JSON")
	historyFlags.String(cfgHistoryFrom, "", "show reports of cycles started at or after this RFC 3339 time, oldest first")
	historyFlags.String(cfgHistoryTo, "", "show reports of cycles started before this RFC 3339 time, oldest first")
	_ = viper.BindPFlags(historyFlags)
	historyCmd.Flags().AddFlagSet(historyFlags)

	parentCmd.AddCommand(historyCmd)
}
