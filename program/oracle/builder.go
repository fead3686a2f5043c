package oracle

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/resolver"
)

const (
	// PacketLimit is the maximum size of a serialized transaction.
	PacketLimit = 1232

	signatureSize = 64
)

var (
	_ api.OperationBuilder = (*Builder)(nil)
	_ api.UnitBuilder      = (*Builder)(nil)
)

// BuilderOptions are the options of the crank pop builder.
type BuilderOptions struct {
	// FailOpenOnAccountMismatch lets the program skip items whose accounts do
	// not match instead of failing the whole unit.
	FailOpenOnAccountMismatch bool
	// Nonce, if set, is included to make otherwise identical units distinct.
	Nonce *uint32
}

// Builder builds crank pop operations and execution units.
type Builder struct {
	network api.Network
	opts    BuilderOptions
}

// BuildOperation implements api.OperationBuilder.
//
// The payload of an operation is its lease bump, present only for lease
// funded items, followed by its permission bump.
func (b *Builder) BuildOperation(res *api.Resolution) (*api.Operation, error) {
	if res == nil || len(res.Refs) == 0 {
		return nil, fmt.Errorf("oracle: empty resolution")
	}
	if !res.Item.Kind.IsValid() {
		return nil, fmt.Errorf("oracle: %w", api.ErrUnknownKind)
	}
	permission, ok := res.Ref(api.RolePermission)
	if !ok {
		return nil, fmt.Errorf("oracle: %s has no permission", res.Item.Row.ID)
	}

	var payload []byte
	if lease, ok := res.Ref(api.RoleLease); ok {
		payload = append(payload, lease.Bump)
	}
	payload = append(payload, permission.Bump)

	return &api.Operation{
		Resolution: res,
		Payload:    payload,
	}, nil
}

// splitPayload splits an operation payload into its lease and permission
// bumps.
func splitPayload(op *api.Operation) (lease []byte, permission byte, err error) {
	switch n := len(op.Payload); n {
	case 1, 2:
		return op.Payload[:n-1], op.Payload[n-1], nil
	default:
		return nil, 0, fmt.Errorf("oracle: malformed payload for %s: %d bytes", op.Row().ID, n)
	}
}

// unitRefs returns the references of a unit in canonical order. Resolutions
// of a single cycle take them from their shared set.
func unitRefs(resolutions []*api.Resolution) []api.Reference {
	set := resolutions[0].Set
	for _, res := range resolutions[1:] {
		if res.Set != set {
			set = nil
			break
		}
	}
	if set == nil {
		return resolver.Merge(resolutions)
	}
	return set.Subset(resolutions)
}

// BuildUnit implements api.UnitBuilder.
func (b *Builder) BuildUnit(ops []*api.Operation) (*api.Unit, error) {
	if len(ops) == 0 {
		return nil, api.ErrEmptyUnit
	}

	resolutions := make([]*api.Resolution, 0, len(ops))
	byItem := make(map[api.Reference]*api.Operation, len(ops))
	writable := make(map[api.Reference]bool)
	var signers []api.Reference
	for _, op := range ops {
		res := op.Resolution
		resolutions = append(resolutions, res)
		byItem[res.Item.Row.ID] = op
		for _, ref := range res.Refs {
			writable[ref.Ref] = writable[ref.Ref] || ref.Writable
		}
		signers = append(signers, res.Signers...)
	}
	refs := unitRefs(resolutions)

	// Bumps follow the order in which the items appear in the remaining
	// accounts.
	params := CrankPopParams{
		StateBump: b.network.StateBump,
		Nonce:     b.opts.Nonce,
	}
	if b.opts.FailOpenOnAccountMismatch {
		failOpen := true
		params.FailOpenOnAccountMismatch = &failOpen
	}
	remaining := make([]*solana.AccountMeta, 0, len(refs))
	for _, ref := range refs {
		remaining = append(remaining, solana.NewAccountMeta(ref, writable[ref], false))

		op, ok := byItem[ref]
		if !ok {
			continue
		}
		lease, permission, err := splitPayload(op)
		if err != nil {
			return nil, err
		}
		params.LeaseBumps = append(params.LeaseBumps, lease...)
		params.PermissionBumps = append(params.PermissionBumps, permission)
	}

	ix, err := NewCrankPopInstruction(&b.network, &params, remaining)
	if err != nil {
		return nil, err
	}
	instructions := []solana.Instruction{ix}

	size, err := b.measure(instructions)
	if err != nil {
		return nil, err
	}

	return &api.Unit{
		Operations:   append([]*api.Operation{}, ops...),
		Refs:         refs,
		Signers:      resolver.MergeReferences([]api.Reference{b.network.Payer}, signers),
		Instructions: instructions,
		Size:         size,
	}, nil
}

// measure returns the serialized size of a signed transaction containing the
// instructions.
func (b *Builder) measure(instructions []solana.Instruction) (int, error) {
	tx, err := solana.NewTransaction(instructions, solana.Hash{}, solana.TransactionPayer(b.network.Payer))
	if err != nil {
		return 0, fmt.Errorf("oracle: failed to build transaction: %w", err)
	}
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("oracle: failed to serialize message: %w", err)
	}

	numSignatures := int(tx.Message.Header.NumRequiredSignatures)
	return compactU16Size(numSignatures) + numSignatures*signatureSize + len(msg), nil
}

func compactU16Size(n int) int {
	switch {
	case n < 0x80:
		return 1
	case n < 0x4000:
		return 2
	default:
		return 3
	}
}

// NewBuilder creates a new crank pop builder.
func NewBuilder(network api.Network, opts BuilderOptions) *Builder {
	return &Builder{
		network: network,
		opts:    opts,
	}
}
