package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/buffer"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/heap"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/selector"
)

const cfgInspectNow = "now"

var (
	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "print the crank rows in eligibility order",
		Run:   doInspect,
	}

	inspectFlags = flag.NewFlagSet("", flag.ContinueOnError)
)

func doInspect(cmd *cobra.Command, args []string) {
	initCommon()

	ctx := context.Background()
	n := loadNode(ctx, false)
	defer closeNode(n)

	data, err := n.Client.FetchAccount(ctx, n.Network.CrankBuffer)
	if err != nil {
		logger.Error("failed to fetch crank buffer",
			"buffer", n.Network.CrankBuffer,
			"err", err,
		)
		os.Exit(1)
	}
	rows, err := buffer.DecodeStrict(data)
	if err != nil {
		logger.Error("malformed crank buffer",
			"err", err,
		)
		os.Exit(1)
	}

	now := viper.GetInt64(cfgInspectNow)
	if now == 0 {
		if now, err = n.Driver.Clock(ctx); err != nil {
			logger.Error("failed to read the clock",
				"err", err,
			)
			os.Exit(1)
		}
	}

	heapStatus := "ok"
	if err = heap.Verify(rows); err != nil {
		heapStatus = err.Error()
	}
	sorted, err := heap.Sort(rows)
	if err != nil {
		logger.Error("failed to sort crank rows",
			"err", err,
		)
		os.Exit(1)
	}
	ready, err := selector.SelectReady(rows, now, 0)
	if err != nil {
		logger.Error("failed to select ready rows",
			"err", err,
		)
		os.Exit(1)
	}

	fmt.Printf("Crank:    %s (%s)\n", n.Network.Crank, n.Crank.NameString())
	fmt.Printf("Queue:    %s\n", n.Network.Queue)
	fmt.Printf("Buffer:   %s\n", n.Network.CrankBuffer)
	fmt.Printf("Rows:     %d/%d\n", len(rows), buffer.Capacity(len(data)))
	fmt.Printf("Heap:     %s\n", heapStatus)
	fmt.Printf("Ready:    %d at %d\n", len(ready), now)
	if next, ok := selector.NextEligible(rows); ok {
		fmt.Printf("Next:     %s\n", formatEligibility(next))
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Item", "Eligible At", "In", "Ready"})
	for i, row := range sorted {
		table.Append(formatRow(i, row, now))
	}
	table.Render()
}

func formatEligibility(eligibleAt int64) string {
	return fmt.Sprintf("%d (%s)", eligibleAt, time.Unix(eligibleAt, 0).UTC().Format(time.RFC3339))
}

func formatRow(idx int, row api.Row, now int64) []string {
	in := "-"
	if !row.IsReady(now) {
		in = (time.Duration(row.EligibleAt-now) * time.Second).String()
	}
	return []string{
		strconv.Itoa(idx),
		row.ID.String(),
		formatEligibility(row.EligibleAt),
		in,
		strconv.FormatBool(row.IsReady(now)),
	}
}

func registerInspect(parentCmd *cobra.Command) {
	inspectFlags.Int64(cfgInspectNow, 0, "unix timestamp used to evaluate readiness (default: the scheduler's clock)")
	_ = viper.BindPFlags(inspectFlags)
	inspectCmd.Flags().AddFlagSet(inspectFlags)

	parentCmd.AddCommand(inspectCmd)
}
