// Package selector implements readiness selection over decoded crank rows.
package selector

import (
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/heap"
)

// SelectReady returns the rows eligible at now in extraction order.
//
// Extraction stops at the first row that is not yet eligible, when the
// rows are exhausted or after limit rows. A non-positive limit selects every
// ready row and leaves bounding to the packer. Nothing being ready is not
// an error.
func SelectReady(rows []api.Row, now int64, limit int) ([]api.Row, error) {
	h := heap.New(rows)
	if err := h.Init(); err != nil {
		return nil, err
	}

	var ready []api.Row
	for limit <= 0 || len(ready) < limit {
		root, ok := h.Peek()
		if !ok || !root.IsReady(now) {
			break
		}
		if _, err := h.Pop(); err != nil {
			return nil, err
		}
		ready = append(ready, root)
	}
	return ready, nil
}

// NextEligible returns the earliest eligibility timestamp among rows.
func NextEligible(rows []api.Row) (int64, bool) {
	if len(rows) == 0 {
		return 0, false
	}

	next := rows[0].EligibleAt
	for _, r := range rows[1:] {
		if r.EligibleAt < next {
			next = r.EligibleAt
		}
	}
	return next, true
}
