// Package packer groups prepared operations into size-bounded execution
// units.
package packer

import (
	"fmt"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/errors"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

// Packer greedily packs operations into execution units.
type Packer struct {
	builder api.UnitBuilder

	ceiling int
	maxOps  int
}

// Ceiling returns the maximum serialized size of a unit.
func (p *Packer) Ceiling() int {
	return p.ceiling
}

// Pack packs the operations, in order, into units whose serialized size does
// not exceed the ceiling.
//
// Every operation ends up in exactly one unit and the concatenation of the
// units' operations equals the input. An operation that does not fit in a
// unit on its own results in ErrOperationTooLarge.
func (p *Packer) Pack(ops []*api.Operation) ([]*api.Unit, error) {
	var (
		units   []*api.Unit
		current []*api.Operation
		unit    *api.Unit
	)
	for i, op := range ops {
		if len(current) > 0 && (p.maxOps == 0 || len(current) < p.maxOps) {
			tentative := append(current[:len(current):len(current)], op)
			candidate, err := p.builder.BuildUnit(tentative)
			if err != nil {
				return nil, fmt.Errorf("crank/packer: failed to build unit: %w", err)
			}
			if candidate.Size <= p.ceiling {
				current, unit = tentative, candidate
				continue
			}
		}
		if unit != nil {
			units = append(units, unit)
		}

		candidate, err := p.builder.BuildUnit([]*api.Operation{op})
		if err != nil {
			return nil, fmt.Errorf("crank/packer: failed to build unit: %w", err)
		}
		if candidate.Size > p.ceiling {
			return nil, errors.WithContext(api.ErrOperationTooLarge, fmt.Sprintf(
				"operation %d (%s): size %d > ceiling %d", i, op.Row().ID, candidate.Size, p.ceiling,
			))
		}
		current, unit = []*api.Operation{op}, candidate
	}
	if unit != nil {
		units = append(units, unit)
	}

	return units, nil
}

// New creates a new packer.
//
// A maxOps of zero places no limit on the number of operations per unit.
func New(builder api.UnitBuilder, ceiling, maxOps int) (*Packer, error) {
	if ceiling <= 0 {
		return nil, errors.WithContext(api.ErrInvalidCeiling, fmt.Sprintf("%d", ceiling))
	}
	if maxOps < 0 {
		return nil, fmt.Errorf("crank/packer: invalid max operations per unit: %d", maxOps)
	}

	return &Packer{
		builder: builder,
		ceiling: ceiling,
		maxOps:  maxOps,
	}, nil
}
