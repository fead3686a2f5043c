// Package api defines the crank scheduling types and collaborator interfaces.
package api

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

const (
	// HeaderSize is the size of the reserved discriminator prefix of a crank buffer.
	HeaderSize = 8
	// IDSize is the size of a row identifier.
	IDSize = 32
	// RowSize is the size of an encoded row (identifier + eligibility timestamp).
	RowSize = IDSize + 8
)

// BufferDiscriminator is the reserved prefix written into new crank buffers.
var BufferDiscriminator = [HeaderSize]byte{'B', 'U', 'F', 'F', 'E', 'R', 'x', 'x'}

// Reference is a ledger account reference.
type Reference = solana.PublicKey

// CompareReferences orders references by their raw identifier bytes.
func CompareReferences(a, b Reference) int {
	return bytes.Compare(a[:], b[:])
}

// Row is a single crank entry.
type Row struct {
	// ID is the identifier of the item that is to be updated.
	ID Reference `json:"id"`
	// EligibleAt is the unix timestamp at which the item becomes ready.
	EligibleAt int64 `json:"eligible_at"`
}

// IsSentinel returns true iff the row terminates the populated region.
func (r Row) IsSentinel() bool {
	return r.ID.IsZero()
}

// IsReady returns true iff the row is eligible at the given time.
func (r Row) IsReady(now int64) bool {
	return r.EligibleAt <= now
}

// String returns a string representation of the row.
func (r Row) String() string {
	return fmt.Sprintf("%s@%d", r.ID, r.EligibleAt)
}

// Kind is the kind of the resource a row refers to.
type Kind uint8

const (
	// KindAggregator is a data feed aggregator funded through a lease.
	KindAggregator Kind = iota
	// KindVrf is a randomness request account.
	KindVrf
	// KindBufferRelayer is a buffer relayer job account.
	KindBufferRelayer

	kindMax = KindBufferRelayer
)

// IsValid returns true iff the kind is a known kind.
func (k Kind) IsValid() bool {
	return k <= kindMax
}

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindAggregator:
		return "aggregator"
	case KindVrf:
		return "vrf"
	case KindBufferRelayer:
		return "buffer_relayer"
	default:
		return fmt.Sprintf("[unknown kind: %d]", uint8(k))
	}
}

// MarshalText encodes a Kind into text form.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.IsValid() {
		return nil, ErrUnknownKind
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a text marshaled Kind.
func (k *Kind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "aggregator":
		*k = KindAggregator
	case "vrf":
		*k = KindVrf
	case "buffer_relayer":
		*k = KindBufferRelayer
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownKind, string(text))
	}
	return nil
}

// Network is the immutable network context threaded through a scheduling cycle.
type Network struct {
	// ProgramID is the oracle program.
	ProgramID Reference
	// ProgramState is the program state account.
	ProgramState Reference
	// StateBump is the bump seed of the program state account.
	StateBump uint8

	// Crank is the crank account.
	Crank Reference
	// CrankBuffer is the crank's row buffer account.
	CrankBuffer Reference
	// Queue is the oracle queue serviced by the crank.
	Queue Reference
	// QueueBuffer is the oracle queue's data buffer account.
	QueueBuffer Reference
	// Authority is the queue authority.
	Authority Reference
	// Mint is the queue's token mint.
	Mint Reference

	// Payer pays for and signs submitted units and receives pop rewards.
	Payer Reference
	// PayoutWallet is the token wallet receiving pop rewards.
	PayoutWallet Reference
}

// ReadyItem is a row selected for update together with its resource kind.
type ReadyItem struct {
	Row  Row
	Kind Kind
}

// Role is the role of an auxiliary reference.
type Role uint8

const (
	// RoleItem is the item itself.
	RoleItem Role = iota
	// RoleLease is the lease funding the item's updates.
	RoleLease
	// RoleEscrow is the token escrow paying the rewards.
	RoleEscrow
	// RolePermission is the permission granting the item access to the queue.
	RolePermission
)

// String returns a string representation of the role.
func (r Role) String() string {
	switch r {
	case RoleItem:
		return "item"
	case RoleLease:
		return "lease"
	case RoleEscrow:
		return "escrow"
	case RolePermission:
		return "permission"
	default:
		return fmt.Sprintf("[unknown role: %d]", uint8(r))
	}
}

// AuxRef is an auxiliary reference required to update an item.
type AuxRef struct {
	Role     Role
	Ref      Reference
	Bump     uint8
	Writable bool
}

// Resolution is the set of auxiliary references for a single ready item.
type Resolution struct {
	Item ReadyItem
	// Refs are the item's references, including the item itself, in
	// derivation order.
	Refs []AuxRef
	// Signers are references that must sign the unit containing the item.
	Signers []Reference
	// Set is the cycle-wide set the resolution belongs to, if any.
	Set *ResolvedSet
}

// Ref returns the reference with the given role.
func (r *Resolution) Ref(role Role) (AuxRef, bool) {
	for _, ref := range r.Refs {
		if ref.Role == role {
			return ref, true
		}
	}
	return AuxRef{}, false
}

// ResolvedSet is the resolution of a whole ready set.
type ResolvedSet struct {
	// Items are the per-item resolutions in selection order.
	Items []*Resolution
	// Refs is the merged set of references sorted by raw bytes.
	Refs []Reference
}

// Subset returns the references of the given resolutions in the set's
// canonical order.
func (s *ResolvedSet) Subset(items []*Resolution) []Reference {
	wanted := make(map[Reference]struct{})
	for _, res := range items {
		for _, ref := range res.Refs {
			wanted[ref.Ref] = struct{}{}
		}
	}

	refs := make([]Reference, 0, len(wanted))
	for _, ref := range s.Refs {
		if _, ok := wanted[ref]; ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Operation is a prepared, indivisible per-item operation.
type Operation struct {
	Resolution *Resolution
	// Payload is the operation's contribution to the unit's instruction data.
	// Unit builders render units from the payloads of their operations.
	Payload []byte
}

// Row returns the row the operation advances.
func (op *Operation) Row() Row {
	return op.Resolution.Item.Row
}

// Unit is an execution unit: one atomic, size-bounded batch of operations.
type Unit struct {
	// Operations are the packed operations in input order.
	Operations []*Operation
	// Refs is the union of the operations' references in canonical order.
	Refs []Reference
	// Signers is the union of the required signers in canonical order.
	Signers []Reference
	// Instructions are the rendered instructions of the unit.
	Instructions []solana.Instruction
	// Size is the serialized size of the unit in bytes.
	Size int
}

// RowIDs returns the identifiers of the rows advanced by the unit.
func (u *Unit) RowIDs() []Reference {
	ids := make([]Reference, 0, len(u.Operations))
	for _, op := range u.Operations {
		ids = append(ids, op.Row().ID)
	}
	return ids
}

// AccountFetcher fetches raw ledger account data.
type AccountFetcher interface {
	// FetchAccount returns the raw account data or ErrNotFound.
	FetchAccount(ctx context.Context, id Reference) ([]byte, error)
}

// Classifier determines the resource kind of rows.
type Classifier interface {
	// Classify returns the kind of each of the given identifiers.
	Classify(ctx context.Context, ids []Reference) ([]Kind, error)
}

// OperationBuilder builds the prepared operation for a resolved item.
type OperationBuilder interface {
	// BuildOperation builds the operation. It must be pure and deterministic.
	BuildOperation(res *Resolution) (*Operation, error)
}

// UnitBuilder renders execution units.
type UnitBuilder interface {
	// BuildUnit renders a unit containing exactly the given operations and
	// reports its serialized size. It must be pure and deterministic.
	BuildUnit(ops []*Operation) (*Unit, error)
}

// Submitter submits execution units.
type Submitter interface {
	// Submit submits a single unit. Failures should be reported as
	// *SubmissionError so they can be classified.
	Submit(ctx context.Context, unit *Unit) (solana.Signature, error)
}
