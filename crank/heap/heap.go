// Package heap implements the client-side view of the crank priority queue.
//
// The authoritative heap lives in the crank buffer owned by the oracle
// program. The client only derives orderings from decoded rows, always on a
// private copy, for selection and inspection.
package heap

import (
	"fmt"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/errors"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

// Heap is a binary min-heap of rows keyed by eligibility timestamp.
//
// The root is at index 0, the parent of i is (i-1)/2 and its children are
// 2i+1 and 2i+2. Ties are broken by position only, no FIFO order is implied.
type Heap struct {
	rows  []api.Row
	live  int
	steps int
}

// New creates a heap over a copy of rows, taking their order as given.
func New(rows []api.Row) *Heap {
	h := &Heap{
		rows: make([]api.Row, len(rows)),
		live: len(rows),
	}
	copy(h.rows, rows)
	return h
}

// Init establishes the heap property over all live rows.
func (h *Heap) Init() error {
	for i := h.live/2 - 1; i >= 0; i-- {
		if err := h.siftDown(i); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of live rows.
func (h *Heap) Len() int {
	return h.live
}

// Steps returns the number of sift swaps performed so far.
func (h *Heap) Steps() int {
	return h.steps
}

// Peek returns the root row without removing it.
func (h *Heap) Peek() (api.Row, bool) {
	if h.live == 0 {
		return api.Row{}, false
	}
	return h.rows[0], true
}

// Pop removes and returns the root row.
func (h *Heap) Pop() (api.Row, error) {
	if h.live == 0 {
		return api.Row{}, fmt.Errorf("crank/heap: pop from empty heap")
	}

	root := h.rows[0]
	last := h.live - 1
	h.rows[0], h.rows[last] = h.rows[last], h.rows[0]
	h.live--
	if err := h.siftDown(0); err != nil {
		return api.Row{}, err
	}
	return root, nil
}

func (h *Heap) siftDown(i int) error {
	bound := 2 * h.live
	for iter := 0; ; iter++ {
		if iter > bound {
			return errors.WithContext(api.ErrHeapCorrupted,
				fmt.Sprintf("sift from %d exceeded %d iterations", i, bound),
			)
		}

		smallest := 2*i + 1
		if smallest >= h.live {
			return nil
		}
		if right := smallest + 1; right < h.live && h.rows[right].EligibleAt < h.rows[smallest].EligibleAt {
			smallest = right
		}
		if h.rows[i].EligibleAt <= h.rows[smallest].EligibleAt {
			return nil
		}

		h.rows[i], h.rows[smallest] = h.rows[smallest], h.rows[i]
		i = smallest
		h.steps++
	}
}

// Verify checks the heap property of rows as laid out in the buffer.
func Verify(rows []api.Row) error {
	for i := 1; i < len(rows); i++ {
		parent := (i - 1) / 2
		if rows[parent].EligibleAt > rows[i].EligibleAt {
			return errors.WithContext(api.ErrHeapCorrupted,
				fmt.Sprintf("parent %d (%d) is later than child %d (%d)",
					parent, rows[parent].EligibleAt, i, rows[i].EligibleAt,
				),
			)
		}
	}
	return nil
}

// Sort returns the rows in non-decreasing eligibility order.
//
// The input order is repaired first, so rows need not be heap-ordered.
func Sort(rows []api.Row) ([]api.Row, error) {
	h := New(rows)
	if err := h.Init(); err != nil {
		return nil, err
	}
	return h.drain()
}

// Drain extracts rows in eligibility order trusting that the input is
// heap-ordered, as the program maintains it. Input that is not heap-ordered
// surfaces ErrHeapCorrupted instead of producing a wrong order.
func Drain(rows []api.Row) ([]api.Row, error) {
	if err := Verify(rows); err != nil {
		return nil, err
	}
	return New(rows).drain()
}

func (h *Heap) drain() ([]api.Row, error) {
	sorted := make([]api.Row, 0, h.live)
	for h.live > 0 {
		row, err := h.Pop()
		if err != nil {
			return nil, err
		}
		if n := len(sorted); n > 0 && row.EligibleAt < sorted[n-1].EligibleAt {
			return nil, errors.WithContext(api.ErrHeapCorrupted,
				fmt.Sprintf("extracted %s after %s", row, sorted[n-1]),
			)
		}
		sorted = append(sorted, row)
	}
	return sorted, nil
}
