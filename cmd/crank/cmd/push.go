package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
	"github.com/switchboard-xyz/sbv2-solana-sub000/program/oracle"
)

const cfgPushKind = "kind"

var (
	pushCmd = &cobra.Command{
		Use:   "push <item>",
		Short: "push an item onto the crank",
		Args:  cobra.ExactArgs(1),
		Run:   doPush,
	}

	pushFlags = flag.NewFlagSet("", flag.ContinueOnError)
)

func doPush(cmd *cobra.Command, args []string) {
	initCommon()

	item, err := solana.PublicKeyFromBase58(args[0])
	if err != nil {
		logger.Error("malformed item",
			"item", args[0],
			"err", err,
		)
		os.Exit(1)
	}
	var kind api.Kind
	if err = kind.UnmarshalText([]byte(viper.GetString(cfgPushKind))); err != nil {
		logger.Error("malformed item kind",
			"err", err,
		)
		os.Exit(1)
	}

	ctx := context.Background()
	n := loadNode(ctx, false)
	defer closeNode(n)

	res, err := n.Resolver.Resolve(api.ReadyItem{
		Row:  api.Row{ID: item},
		Kind: kind,
	})
	if err != nil {
		logger.Error("failed to resolve item",
			"item", item,
			"err", err,
		)
		os.Exit(1)
	}
	ix, err := oracle.NewCrankPushInstruction(n.Network, res)
	if err != nil {
		logger.Error("failed to build push instruction",
			"item", item,
			"err", err,
		)
		os.Exit(1)
	}
	sig, err := n.Client.SendInstructions(ctx, []solana.Instruction{ix})
	if err != nil {
		logger.Error("failed to push item",
			"item", item,
			"err", err,
		)
		os.Exit(1)
	}

	fmt.Println(sig)
}

func registerPush(parentCmd *cobra.Command) {
	pushFlags.String(cfgPushKind, api.KindAggregator.String(), "item kind (aggregator, vrf, buffer_relayer)")
	_ = viper.BindPFlags(pushFlags)
	pushCmd.Flags().AddFlagSet(pushFlags)

	parentCmd.AddCommand(pushCmd)
}
