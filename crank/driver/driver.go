// Package driver implements the crank scheduling cycle.
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/logging"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/buffer"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/packer"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/resolver"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/selector"
)

// Clock returns the current time as seen by the scheduler, in unix seconds.
type Clock func(ctx context.Context) (int64, error)

// WallClock is the local wall clock.
func WallClock(context.Context) (int64, error) {
	return time.Now().Unix(), nil
}

// Params are the collaborators of a driver.
type Params struct {
	Network api.Network

	Fetcher    api.AccountFetcher
	Classifier api.Classifier
	Resolver   *resolver.Resolver
	Builder    api.OperationBuilder
	Packer     *packer.Packer
	Submitter  api.Submitter

	// Clock defaults to the local wall clock.
	Clock Clock
	// MaxRows is the maximum number of rows selected per cycle (0 is
	// unlimited).
	MaxRows int
}

// Driver runs scheduling cycles.
//
// Each cycle reads the crank buffer, selects the ready rows, resolves their
// auxiliary references, packs the prepared operations into execution units
// and submits every unit. A cycle never retries a unit; retrying means
// running a new cycle against fresh ledger state.
type Driver struct {
	logger *logging.Logger

	Params
}

type cycle struct {
	report *api.Report
	rows   []api.Row
	ready  []api.Row
	set    *api.ResolvedSet
	units  []*api.Unit
}

func (c *cycle) transition(state api.State) {
	c.report.State = state
}

// RunCycle runs a single scheduling cycle and reports its outcome.
//
// The returned error is either the error that aborted the cycle before
// submission, or the aggregate of the unit submissions that failed for
// reasons other than losing a benign race. A cycle with any failed unit ends
// in StatePartiallyFailed, even if every failure was benign. The report is
// always returned.
func (d *Driver) RunCycle(ctx context.Context) (*api.Report, error) {
	c := &cycle{
		report: &api.Report{
			Started: time.Now(),
			State:   api.StateIdle,
		},
	}

	err := d.runCycle(ctx, c)
	c.report.Duration = time.Since(c.report.Started)
	if err != nil && !c.report.State.IsTerminal() {
		c.report.SetError(err)
	}
	updateMetrics(c.report)

	d.logCycle(c.report, err)

	return c.report, err
}

func (d *Driver) runCycle(ctx context.Context, c *cycle) error {
	now, err := d.Clock(ctx)
	if err != nil {
		return fmt.Errorf("crank/driver: failed to read clock: %w", err)
	}
	c.report.Now = now

	if err = d.load(ctx, c); err != nil {
		return err
	}
	if err = d.selectReady(c); err != nil {
		return err
	}
	if len(c.ready) == 0 {
		c.transition(api.StateDone)
		return nil
	}
	if err = d.resolve(ctx, c); err != nil {
		return err
	}
	if err = d.pack(c); err != nil {
		return err
	}
	return d.submit(ctx, c)
}

func (d *Driver) load(ctx context.Context, c *cycle) error {
	data, err := d.Fetcher.FetchAccount(ctx, d.Network.CrankBuffer)
	if err != nil {
		return fmt.Errorf("crank/driver: failed to fetch crank buffer: %w", err)
	}
	if c.rows, err = buffer.DecodeStrict(data); err != nil {
		return err
	}

	c.report.Loaded = len(c.rows)
	c.transition(api.StateLoaded)
	return nil
}

func (d *Driver) selectReady(c *cycle) error {
	var err error
	if c.ready, err = selector.SelectReady(c.rows, c.report.Now, d.MaxRows); err != nil {
		return err
	}

	c.report.Selected = len(c.ready)
	c.transition(api.StateSelected)
	return nil
}

func (d *Driver) resolve(ctx context.Context, c *cycle) error {
	ids := make([]api.Reference, 0, len(c.ready))
	for _, row := range c.ready {
		ids = append(ids, row.ID)
	}
	kinds, err := d.Classifier.Classify(ctx, ids)
	if err != nil {
		return fmt.Errorf("crank/driver: failed to classify rows: %w", err)
	}
	if len(kinds) != len(ids) {
		return fmt.Errorf("crank/driver: classifier returned %d kinds for %d rows", len(kinds), len(ids))
	}

	items := make([]api.ReadyItem, 0, len(c.ready))
	for i, row := range c.ready {
		items = append(items, api.ReadyItem{Row: row, Kind: kinds[i]})
	}
	if c.set, err = d.Resolver.ResolveAll(items); err != nil {
		return err
	}

	c.transition(api.StateResolved)
	return nil
}

func (d *Driver) pack(c *cycle) error {
	ops := make([]*api.Operation, 0, len(c.set.Items))
	for _, res := range c.set.Items {
		op, err := d.Builder.BuildOperation(res)
		if err != nil {
			return fmt.Errorf("crank/driver: failed to build operation for %s: %w", res.Item.Row.ID, err)
		}
		ops = append(ops, op)
	}

	var err error
	if c.units, err = d.Packer.Pack(ops); err != nil {
		return err
	}

	c.transition(api.StatePacked)
	return nil
}

func (d *Driver) submit(ctx context.Context, c *cycle) error {
	c.transition(api.StateSubmitting)

	var (
		result  *multierror.Error
		partial bool
	)
	for i, unit := range c.units {
		outcome := api.UnitOutcome{
			Index: i,
			Rows:  unit.RowIDs(),
			Size:  unit.Size,
		}

		sig, err := d.Submitter.Submit(ctx, unit)
		outcome.Class = api.Classify(err)
		switch outcome.Class {
		case api.ClassNone:
			outcome.Signature = sig
			c.report.Advanced += len(unit.Operations)
		case api.ClassBenign:
			// Lost races are reported but do not fail the cycle.
			outcome.Reason = err.Error()
			partial = true
		default:
			outcome.Reason = err.Error()
			partial = true
			result = multierror.Append(result, fmt.Errorf("unit %d: %w", i, err))
		}
		c.report.Units = append(c.report.Units, outcome)

		d.logger.Debug("submitted unit",
			"index", i,
			"rows", len(outcome.Rows),
			"size", outcome.Size,
			"class", outcome.Class,
			"signature", outcome.Signature,
		)
	}

	if partial {
		c.transition(api.StatePartiallyFailed)
	} else {
		c.transition(api.StateDone)
	}
	return result.ErrorOrNil()
}

// backlogged returns true iff the cycle stopped at the row limit while
// advancing rows, so further rows may already be ready.
func (d *Driver) backlogged(report *api.Report) bool {
	return d.MaxRows > 0 && report.Selected >= d.MaxRows && report.Advanced > 0
}

func (d *Driver) logCycle(report *api.Report, err error) {
	switch {
	case err != nil:
		d.logger.Warn("cycle failed",
			"state", report.State,
			"selected", report.Selected,
			"advanced", report.Advanced,
			"units", len(report.Units),
			"err", err,
		)
	case report.IsNoop():
		d.logger.Debug("nothing ready",
			"now", report.Now,
			"loaded", report.Loaded,
		)
	default:
		d.logger.Info("cycle done",
			"state", report.State,
			"selected", report.Selected,
			"advanced", report.Advanced,
			"units", len(report.Units),
			"duration", report.Duration,
		)
	}
}

// New creates a new driver.
func New(params Params) (*Driver, error) {
	switch {
	case params.Fetcher == nil:
		return nil, fmt.Errorf("crank/driver: missing account fetcher")
	case params.Classifier == nil:
		return nil, fmt.Errorf("crank/driver: missing classifier")
	case params.Resolver == nil:
		return nil, fmt.Errorf("crank/driver: missing resolver")
	case params.Builder == nil:
		return nil, fmt.Errorf("crank/driver: missing operation builder")
	case params.Packer == nil:
		return nil, fmt.Errorf("crank/driver: missing packer")
	case params.Submitter == nil:
		return nil, fmt.Errorf("crank/driver: missing submitter")
	}
	if params.Clock == nil {
		params.Clock = WallClock
	}

	initMetrics()

	return &Driver{
		logger: logging.GetLogger("crank/driver").With("crank", params.Network.Crank),
		Params: params,
	}, nil
}
