package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/switchboard-xyz/sbv2-solana-sub000/cmd/crank/node"
	"github.com/switchboard-xyz/sbv2-solana-sub000/config"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/buffer"
	"github.com/switchboard-xyz/sbv2-solana-sub000/program/oracle"
)

const (
	cfgInitQueue    = "queue"
	cfgInitName     = "name"
	cfgInitMetadata = "metadata"
	cfgInitCapacity = "capacity"
)

var (
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "create a new crank for a queue",
		Run:   doInit,
	}

	initFlags = flag.NewFlagSet("", flag.ContinueOnError)
)

func doInit(cmd *cobra.Command, args []string) {
	initCommon()

	cfg := &config.GlobalConfig.Network
	programID, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		logger.Error("malformed program id",
			"err", err,
		)
		os.Exit(1)
	}
	queue, err := solana.PublicKeyFromBase58(viper.GetString(cfgInitQueue))
	if err != nil {
		logger.Error("malformed queue",
			"err", err,
		)
		os.Exit(1)
	}
	capacity := viper.GetUint32(cfgInitCapacity)
	if capacity == 0 {
		logger.Error("crank capacity must be positive")
		os.Exit(1)
	}

	cl, err := node.NewClient(cfg)
	if err != nil {
		logger.Error("failed to create client",
			"err", err,
		)
		os.Exit(1)
	}

	crankKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		logger.Error("failed to generate crank key",
			"err", err,
		)
		os.Exit(1)
	}
	bufferKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		logger.Error("failed to generate buffer key",
			"err", err,
		)
		os.Exit(1)
	}

	ctx := context.Background()
	size := buffer.Size(capacity)
	lamports, err := cl.MinimumBalanceForRentExemption(ctx, size)
	if err != nil {
		logger.Error("failed to query rent",
			"err", err,
		)
		os.Exit(1)
	}

	network := &api.Network{
		ProgramID:   programID,
		Crank:       crankKey.PublicKey(),
		CrankBuffer: bufferKey.PublicKey(),
		Queue:       queue,
		Payer:       cl.Payer(),
	}
	initIx, err := oracle.NewCrankInitInstruction(
		network,
		viper.GetString(cfgInitName),
		viper.GetString(cfgInitMetadata),
		capacity,
	)
	if err != nil {
		logger.Error("failed to build init instruction",
			"err", err,
		)
		os.Exit(1)
	}
	allocIx := system.NewCreateAccountInstruction(
		lamports,
		size,
		programID,
		cl.Payer(),
		network.CrankBuffer,
	).Build()

	sig, err := cl.SendInstructions(ctx, []solana.Instruction{allocIx, initIx}, crankKey, bufferKey)
	if err != nil {
		logger.Error("failed to create crank",
			"err", err,
		)
		os.Exit(1)
	}

	fmt.Printf("Crank:     %s\n", network.Crank)
	fmt.Printf("Buffer:    %s (%d bytes, %d rows)\n", network.CrankBuffer, size, capacity)
	fmt.Printf("Signature: %s\n", sig)
}

func registerInit(parentCmd *cobra.Command) {
	initFlags.String(cfgInitQueue, "", "oracle queue serviced by the crank")
	initFlags.String(cfgInitName, "", "crank name")
	initFlags.String(cfgInitMetadata, "", "crank metadata")
	initFlags.Uint32(cfgInitCapacity, 100, "maximum number of crank rows")
	_ = viper.BindPFlags(initFlags)
	initCmd.Flags().AddFlagSet(initFlags)

	parentCmd.AddCommand(initCmd)
}
