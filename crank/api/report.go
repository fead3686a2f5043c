package api

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/errors"
)

// UnitOutcome is the outcome of submitting a single execution unit.
type UnitOutcome struct {
	// Index is the index of the unit within the cycle.
	Index int `json:"index"`
	// Rows are the identifiers of the rows contained in the unit.
	Rows []Reference `json:"rows"`
	// Size is the serialized size of the unit.
	Size int `json:"size"`
	// Signature is the signature of the landed unit (zero on failure).
	Signature solana.Signature `json:"signature"`
	// Class is the error class (ClassNone on success).
	Class ErrorClass `json:"class"`
	// Reason is the failure reason, if any.
	Reason string `json:"reason,omitempty"`
}

// Succeeded returns true iff the unit landed.
func (o *UnitOutcome) Succeeded() bool {
	return o.Class == ClassNone
}

// Report is the structured outcome of a scheduling cycle.
type Report struct {
	// Started is the wall clock time the cycle started.
	Started time.Time `json:"started"`
	// Duration is the duration of the cycle.
	Duration time.Duration `json:"duration"`
	// Now is the timestamp used for readiness selection.
	Now int64 `json:"now"`
	// State is the state the cycle ended in.
	State State `json:"state"`

	// Loaded is the number of populated rows in the buffer.
	Loaded int `json:"loaded"`
	// Selected is the number of ready rows selected.
	Selected int `json:"selected"`
	// Advanced is the number of rows in units that landed.
	Advanced int `json:"advanced"`

	// Units are the per unit outcomes in submission order.
	Units []UnitOutcome `json:"units,omitempty"`

	// Error is the cycle-level error, if any.
	Error string `json:"error,omitempty"`
	// ErrorModule and ErrorCode identify the cycle-level error.
	ErrorModule string `json:"error_module,omitempty"`
	ErrorCode   uint32 `json:"error_code,omitempty"`
}

// SetError records the cycle-level error.
func (r *Report) SetError(err error) {
	r.Error = err.Error()
	r.ErrorModule, r.ErrorCode = errors.Code(err)
}

// Err reconstructs the cycle-level error, if any.
func (r *Report) Err() error {
	if r.Error == "" {
		return nil
	}
	return errors.FromCode(r.ErrorModule, r.ErrorCode, r.Error)
}

// Failed returns the outcomes of the units that failed.
func (r *Report) Failed() []UnitOutcome {
	var failed []UnitOutcome
	for _, u := range r.Units {
		if !u.Succeeded() {
			failed = append(failed, u)
		}
	}
	return failed
}

// FailedRows returns the failed row identifiers mapped to their failure reason.
func (r *Report) FailedRows() map[Reference]string {
	rows := make(map[Reference]string)
	for _, u := range r.Failed() {
		for _, id := range u.Rows {
			rows[id] = u.Reason
		}
	}
	return rows
}

// IsNoop returns true iff nothing was ready during the cycle.
func (r *Report) IsNoop() bool {
	return r.Error == "" && r.Selected == 0
}
