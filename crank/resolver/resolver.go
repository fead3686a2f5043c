// Package resolver derives the auxiliary references needed to advance
// crank rows and orders them canonically.
package resolver

import (
	"fmt"

	"github.com/google/btree"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/cache/lru"
	"github.com/switchboard-xyz/sbv2-solana-sub000/common/errors"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

// DefaultCacheSize is the default number of cached derivations.
const DefaultCacheSize = 4096

// derivationKey identifies a memoized derivation by role and the account it
// is derived from. Escrows are keyed by their owner, which is the lease for
// aggregators and the item itself otherwise.
type derivationKey struct {
	role  api.Role
	owner api.Reference
}

// Resolver resolves auxiliary references for ready items.
//
// Derivations are a pure function of the network context and the item, so
// they are memoized.
type Resolver struct {
	network api.Network
	cache   *lru.Cache[derivationKey, api.AuxRef]
}

// Resolve derives the references needed to advance a single item.
func (r *Resolver) Resolve(item api.ReadyItem) (*api.Resolution, error) {
	var (
		refs []api.AuxRef
		err  error
	)
	switch item.Kind {
	case api.KindAggregator:
		refs, err = r.resolveAggregator(item.Row.ID)
	case api.KindVrf:
		refs, err = r.resolveVrf(item.Row.ID)
	case api.KindBufferRelayer:
		refs, err = r.resolveBufferRelayer(item.Row.ID)
	default:
		return nil, errors.WithContext(api.ErrUnknownKind, item.Kind.String())
	}
	if err != nil {
		return nil, fmt.Errorf("crank/resolver: failed to resolve %s: %w", item.Row.ID, err)
	}

	return &api.Resolution{
		Item: item,
		Refs: refs,
	}, nil
}

// ResolveAll resolves every item and merges their references into the
// canonical order. Every resolution refers back to the returned set.
func (r *Resolver) ResolveAll(items []api.ReadyItem) (*api.ResolvedSet, error) {
	set := &api.ResolvedSet{
		Items: make([]*api.Resolution, 0, len(items)),
	}
	for _, item := range items {
		res, err := r.Resolve(item)
		if err != nil {
			return nil, err
		}
		res.Set = set
		set.Items = append(set.Items, res)
	}
	set.Refs = Merge(set.Items)
	return set, nil
}

func (r *Resolver) resolveAggregator(item api.Reference) ([]api.AuxRef, error) {
	lease, err := r.derive(api.RoleLease, item, func() (api.AuxRef, error) {
		ref, bump, err := DeriveLease(r.network.ProgramID, r.network.Queue, item)
		return api.AuxRef{Role: api.RoleLease, Ref: ref, Bump: bump, Writable: true}, err
	})
	if err != nil {
		return nil, err
	}
	escrow, err := r.escrow(lease.Ref)
	if err != nil {
		return nil, err
	}
	permission, err := r.permission(item)
	if err != nil {
		return nil, err
	}

	return []api.AuxRef{
		{Role: api.RoleItem, Ref: item, Writable: true},
		lease,
		escrow,
		permission,
	}, nil
}

func (r *Resolver) resolveVrf(item api.Reference) ([]api.AuxRef, error) {
	return r.resolveSelfFunded(item)
}

func (r *Resolver) resolveBufferRelayer(item api.Reference) ([]api.AuxRef, error) {
	return r.resolveSelfFunded(item)
}

// resolveSelfFunded resolves items that hold their own escrow instead of
// being funded through a lease.
func (r *Resolver) resolveSelfFunded(item api.Reference) ([]api.AuxRef, error) {
	escrow, err := r.escrow(item)
	if err != nil {
		return nil, err
	}
	permission, err := r.permission(item)
	if err != nil {
		return nil, err
	}

	return []api.AuxRef{
		{Role: api.RoleItem, Ref: item, Writable: true},
		escrow,
		permission,
	}, nil
}

func (r *Resolver) escrow(owner api.Reference) (api.AuxRef, error) {
	return r.derive(api.RoleEscrow, owner, func() (api.AuxRef, error) {
		ref, err := DeriveEscrow(owner, r.network.Mint)
		return api.AuxRef{Role: api.RoleEscrow, Ref: ref, Writable: true}, err
	})
}

func (r *Resolver) permission(item api.Reference) (api.AuxRef, error) {
	return r.derive(api.RolePermission, item, func() (api.AuxRef, error) {
		ref, bump, err := DerivePermission(r.network.ProgramID, r.network.Authority, r.network.Queue, item)
		return api.AuxRef{Role: api.RolePermission, Ref: ref, Bump: bump}, err
	})
}

func (r *Resolver) derive(role api.Role, owner api.Reference, fn func() (api.AuxRef, error)) (api.AuxRef, error) {
	key := derivationKey{role: role, owner: owner}
	if ref, ok := r.cache.Get(key); ok {
		return ref, nil
	}

	ref, err := fn()
	if err != nil {
		return api.AuxRef{}, err
	}
	r.cache.Put(key, ref)
	return ref, nil
}

func referenceLess(a, b api.Reference) bool {
	return api.CompareReferences(a, b) < 0
}

// Merge merges the references of the given resolutions, removing duplicates
// and ordering them by raw identifier bytes.
func Merge(resolutions []*api.Resolution) []api.Reference {
	set := btree.NewG[api.Reference](8, referenceLess)
	for _, res := range resolutions {
		for _, ref := range res.Refs {
			set.ReplaceOrInsert(ref.Ref)
		}
	}

	refs := make([]api.Reference, 0, set.Len())
	set.Ascend(func(ref api.Reference) bool {
		refs = append(refs, ref)
		return true
	})
	return refs
}

// MergeReferences merges arbitrary references into the canonical order.
func MergeReferences(groups ...[]api.Reference) []api.Reference {
	set := btree.NewG[api.Reference](8, referenceLess)
	for _, group := range groups {
		for _, ref := range group {
			set.ReplaceOrInsert(ref)
		}
	}

	refs := make([]api.Reference, 0, set.Len())
	set.Ascend(func(ref api.Reference) bool {
		refs = append(refs, ref)
		return true
	})
	return refs
}

// New creates a new resolver for the given network context.
func New(network api.Network, cacheSize int) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[derivationKey, api.AuxRef](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("crank/resolver: failed to create cache: %w", err)
	}

	return &Resolver{
		network: network,
		cache:   cache,
	}, nil
}
