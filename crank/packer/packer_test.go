package packer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/errors"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

// sumBuilder sizes a unit as a fixed overhead plus the payload sizes.
type sumBuilder struct {
	overhead int
	calls    int
}

func (b *sumBuilder) BuildUnit(ops []*api.Operation) (*api.Unit, error) {
	b.calls++
	if len(ops) == 0 {
		return nil, api.ErrEmptyUnit
	}
	size := b.overhead
	for _, op := range ops {
		size += len(op.Payload)
	}
	return &api.Unit{
		Operations: append([]*api.Operation{}, ops...),
		Size:       size,
	}, nil
}

func testOps(sizes ...int) []*api.Operation {
	ops := make([]*api.Operation, 0, len(sizes))
	for i, size := range sizes {
		var id api.Reference
		id[0] = byte(i + 1)
		id[1] = byte((i + 1) >> 8)
		ops = append(ops, &api.Operation{
			Resolution: &api.Resolution{
				Item: api.ReadyItem{Row: api.Row{ID: id, EligibleAt: int64(i)}},
			},
			Payload: make([]byte, size),
		})
	}
	return ops
}

func unitSizes(units []*api.Unit) []int {
	sizes := make([]int, 0, len(units))
	for _, u := range units {
		sizes = append(sizes, u.Size)
	}
	return sizes
}

func TestPackScenario(t *testing.T) {
	require := require.New(t)

	p, err := New(&sumBuilder{}, 1000, 0)
	require.NoError(err, "New")

	ops := testOps(600, 600, 900)
	units, err := p.Pack(ops)
	require.NoError(err, "Pack")
	require.Len(units, 3, "no two operations fit together")
	for i, u := range units {
		require.Equal([]*api.Operation{ops[i]}, u.Operations)
	}

	units, err = p.Pack(testOps(300, 300, 300, 900, 50))
	require.NoError(err, "Pack")
	require.Equal([]int{900, 950}, unitSizes(units))
}

func TestPackConservation(t *testing.T) {
	require := require.New(t)

	rng := rand.New(rand.NewSource(42))
	sizes := make([]int, 200)
	for i := range sizes {
		sizes[i] = 1 + rng.Intn(300)
	}
	ops := testOps(sizes...)

	builder := &sumBuilder{overhead: 64}
	p, err := New(builder, 1232, 0)
	require.NoError(err, "New")

	units, err := p.Pack(ops)
	require.NoError(err, "Pack")

	var packed []*api.Operation
	for _, u := range units {
		require.NotEmpty(u.Operations)
		require.LessOrEqual(u.Size, p.Ceiling())
		packed = append(packed, u.Operations...)
	}
	require.Equal(ops, packed, "every operation is packed exactly once, in order")

	again, err := p.Pack(ops)
	require.NoError(err, "Pack (again)")
	require.Equal(unitSizes(units), unitSizes(again), "packing must be deterministic")
	for i := range units {
		require.Equal(units[i].Operations, again[i].Operations)
	}
}

func TestPackLimits(t *testing.T) {
	require := require.New(t)

	_, err := New(&sumBuilder{}, 0, 0)
	require.True(errors.Is(err, api.ErrInvalidCeiling), "zero ceiling")
	_, err = New(&sumBuilder{}, 100, -1)
	require.Error(err, "negative max operations")

	p, err := New(&sumBuilder{overhead: 10}, 100, 0)
	require.NoError(err, "New")

	units, err := p.Pack(nil)
	require.NoError(err, "Pack(nil)")
	require.Empty(units)

	_, err = p.Pack(testOps(10, 91, 10))
	require.True(errors.Is(err, api.ErrOperationTooLarge), "oversized operation")
	require.True(api.IsFatal(err))

	p, err = New(&sumBuilder{}, 1000, 2)
	require.NoError(err, "New")
	units, err = p.Pack(testOps(1, 1, 1, 1, 1))
	require.NoError(err, "Pack")
	require.Equal([]int{2, 2, 1}, unitSizes(units), "max operations per unit")
}
