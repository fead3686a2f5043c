// Package main implements the crank scheduler executable.
package main

import "github.com/switchboard-xyz/sbv2-solana-sub000/cmd/crank/cmd"

func main() {
	cmd.Execute()
}
