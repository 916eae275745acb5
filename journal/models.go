// Package journal defines the append-only operation log each IOU contract
// writes before committing a state change.
//
// Entries are numbered per contract from 1 without gaps. Replaying a
// contract's entries in seq order rebuilds its balances, allowances and debt
// record exactly.
package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/iou/debt"
	"github.com/xraph/iou/event"
	"github.com/xraph/iou/id"
	"github.com/xraph/iou/types"
)

// ErrInvalidEntry is returned by Validate.
var ErrInvalidEntry = errors.New("iou: invalid journal entry")

// Op names the operation an entry records.
type Op string

const (
	OpIssue                 Op = "issue"
	OpDeposit               Op = "deposit"
	OpPayDebt               Op = "pay_debt"
	OpApprove               Op = "approve"
	OpTransferWithAllowance Op = "transfer_with_allowance"
)

// Valid reports whether op is a known operation.
func (op Op) Valid() bool {
	switch op {
	case OpIssue, OpDeposit, OpPayDebt, OpApprove, OpTransferWithAllowance:
		return true
	}
	return false
}

// Args holds the operation arguments. Unused fields are zero.
type Args struct {
	Amount     types.Amount    `json:"amount"`
	Recipient  types.AccountID `json:"recipient,omitempty"`
	From       types.AccountID `json:"from,omitempty"`
	To         types.AccountID `json:"to,omitempty"`
	Spender    types.AccountID `json:"spender,omitempty"`
	Percentage uint32          `json:"percentage,omitempty"`
}

// Entry is one committed operation.
type Entry struct {
	ID         id.EntryID       `json:"id"`
	ContractID id.ContractID    `json:"contract_id"`
	Seq        int64            `json:"seq"`
	Op         Op               `json:"op"`
	Caller     types.AccountID  `json:"caller"`
	Args       Args             `json:"args"`
	Events     []event.Envelope `json:"events"`
	RecordedAt time.Time        `json:"recorded_at"`
}

// Validate checks the fields every store relies on.
func (e *Entry) Validate() error {
	switch {
	case e.ID.IsNil():
		return fmt.Errorf("%w: missing id", ErrInvalidEntry)
	case e.ContractID.IsNil():
		return fmt.Errorf("%w: missing contract id", ErrInvalidEntry)
	case e.Seq < 1:
		return fmt.Errorf("%w: seq %d", ErrInvalidEntry, e.Seq)
	case !e.Op.Valid():
		return fmt.Errorf("%w: op %q", ErrInvalidEntry, e.Op)
	case (e.Op == OpIssue) != (e.Seq == 1):
		return fmt.Errorf("%w: issue must be the first and only first entry", ErrInvalidEntry)
	}
	return nil
}

// AllowanceEntry is one non-zero allowance inside a Checkpoint.
type AllowanceEntry struct {
	Owner   types.AccountID `json:"owner"`
	Spender types.AccountID `json:"spender"`
	Value   types.Amount    `json:"value"`
}

// Checkpoint is a contract's full state as of entry Seq. Opening a contract
// starts from its latest checkpoint and replays only later entries.
type Checkpoint struct {
	ContractID id.ContractID                    `json:"contract_id"`
	Seq        int64                            `json:"seq"`
	Record     debt.Record                      `json:"record"`
	Balances   map[types.AccountID]types.Amount `json:"balances"`
	Allowances []AllowanceEntry                 `json:"allowances"`
	TakenAt    time.Time                        `json:"taken_at"`
}

// ListOpts pages through issuance entries.
type ListOpts struct {
	Limit  int
	Offset int
}
