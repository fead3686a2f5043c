package oracle

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"

	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

// CrankPopParams are the arguments of the crank pop instruction.
type CrankPopParams struct {
	StateBump uint8
	// LeaseBumps are the lease bumps of the popped items, in the order the
	// items appear in the remaining accounts.
	LeaseBumps []byte
	// PermissionBumps are the permission bumps of the popped items, in the
	// order the items appear in the remaining accounts.
	PermissionBumps           []byte
	Nonce                     *uint32
	FailOpenOnAccountMismatch *bool
	PopIdx                    *uint32
}

// CrankPushParams are the arguments of the crank push instruction.
type CrankPushParams struct {
	StateBump      uint8
	PermissionBump uint8
	NotifiRef      *[64]byte
}

// CrankInitParams are the arguments of the crank init instruction.
type CrankInitParams struct {
	Name      []byte
	Metadata  []byte
	CrankSize uint32
}

func encodeInstruction(name string, params interface{}) ([]byte, error) {
	body, err := borsh.Serialize(params)
	if err != nil {
		return nil, fmt.Errorf("oracle: failed to encode %s: %w", name, err)
	}
	disc := InstructionDiscriminator(name)

	data := make([]byte, 0, len(disc)+len(body))
	data = append(data, disc[:]...)
	return append(data, body...), nil
}

// NewCrankPopInstruction builds a crank pop instruction.
//
// The remaining accounts are appended after the fixed accounts in the given
// order.
func NewCrankPopInstruction(
	network *api.Network,
	params *CrankPopParams,
	remaining []*solana.AccountMeta,
) (solana.Instruction, error) {
	data, err := encodeInstruction(InstructionCrankPop, *params)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(network.Crank).WRITE(),
		solana.Meta(network.Queue).WRITE(),
		solana.Meta(network.Authority),
		solana.Meta(network.ProgramState),
		solana.Meta(network.PayoutWallet).WRITE(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(network.CrankBuffer).WRITE(),
		solana.Meta(network.QueueBuffer),
		solana.Meta(network.Mint),
	}
	accounts = append(accounts, remaining...)

	return solana.NewInstruction(network.ProgramID, accounts, data), nil
}

// NewCrankPushInstruction builds an instruction pushing an item onto the
// crank. The resolution must hold the item's lease and permission.
func NewCrankPushInstruction(network *api.Network, res *api.Resolution) (solana.Instruction, error) {
	lease, ok := res.Ref(api.RoleLease)
	if !ok {
		return nil, fmt.Errorf("oracle: crank push requires a lease, %s has none", res.Item.Kind)
	}
	escrow, _ := res.Ref(api.RoleEscrow)
	permission, _ := res.Ref(api.RolePermission)

	data, err := encodeInstruction(InstructionCrankPush, CrankPushParams{
		StateBump:      network.StateBump,
		PermissionBump: permission.Bump,
	})
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(network.Crank).WRITE(),
		solana.Meta(res.Item.Row.ID).WRITE(),
		solana.Meta(network.Queue).WRITE(),
		solana.Meta(network.Authority),
		solana.Meta(permission.Ref),
		solana.Meta(lease.Ref).WRITE(),
		solana.Meta(escrow.Ref).WRITE(),
		solana.Meta(network.ProgramState),
		solana.Meta(network.CrankBuffer).WRITE(),
	}

	return solana.NewInstruction(network.ProgramID, accounts, data), nil
}

// NewCrankInitInstruction builds an instruction initializing a crank with a
// pre-allocated row buffer.
func NewCrankInitInstruction(network *api.Network, name, metadata string, capacity uint32) (solana.Instruction, error) {
	if len(name) > 32 || len(metadata) > 64 {
		return nil, fmt.Errorf("oracle: crank name or metadata too long")
	}

	data, err := encodeInstruction(InstructionCrankInit, CrankInitParams{
		Name:      []byte(name),
		Metadata:  []byte(metadata),
		CrankSize: capacity,
	})
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(network.Crank).WRITE().SIGNER(),
		solana.Meta(network.Queue),
		solana.Meta(network.CrankBuffer).WRITE(),
		solana.Meta(network.Payer).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}

	return solana.NewInstruction(network.ProgramID, accounts, data), nil
}
