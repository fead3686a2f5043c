package resolver

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

// Seed prefixes used by the oracle program for derived accounts.
var (
	SeedState      = []byte("STATE")
	SeedLease      = []byte("LeaseAccountData")
	SeedPermission = []byte("PermissionAccountData")
)

// DeriveReference derives the program address for the given seeds.
func DeriveReference(programID api.Reference, seeds ...[]byte) (api.Reference, uint8, error) {
	ref, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return api.Reference{}, 0, fmt.Errorf("crank/resolver: failed to derive reference: %w", err)
	}
	return ref, bump, nil
}

// DeriveProgramState derives the oracle program state account.
func DeriveProgramState(programID api.Reference) (api.Reference, uint8, error) {
	return DeriveReference(programID, SeedState)
}

// DeriveLease derives the lease funding an item on a queue.
func DeriveLease(programID, queue, item api.Reference) (api.Reference, uint8, error) {
	return DeriveReference(programID, SeedLease, queue[:], item[:])
}

// DerivePermission derives the permission granted by the queue authority to
// an item on a queue.
func DerivePermission(programID, authority, queue, item api.Reference) (api.Reference, uint8, error) {
	return DeriveReference(programID, SeedPermission, authority[:], queue[:], item[:])
}

// DeriveEscrow derives the token escrow of an owner for a mint.
func DeriveEscrow(owner, mint api.Reference) (api.Reference, error) {
	escrow, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return api.Reference{}, fmt.Errorf("crank/resolver: failed to derive escrow: %w", err)
	}
	return escrow, nil
}
