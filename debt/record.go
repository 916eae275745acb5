// Package debt models the IOU record and its repayment state machine.
//
// A record starts Outstanding with AmountOwed equal to its face value. Each
// accepted repayment strictly decreases AmountOwed and increases AmountPaid
// by the same amount; when AmountOwed reaches zero the record is Paid, which
// is terminal. Records are never deleted.
package debt

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/iou/id"
	"github.com/xraph/iou/types"
)

var (
	ErrInsufficientDebtAmount = errors.New("iou: payment exceeds outstanding debt")
	ErrZeroPayment            = errors.New("iou: payment must be positive")
	ErrPaymentBelowThreshold  = errors.New("iou: partial payment below threshold")
	ErrInvalidPercentage      = errors.New("iou: partial payment percentage must be within 0..100")
	ErrInvalidRecord          = errors.New("iou: invalid debt record")
)

// MaxPercentage is the upper bound of PartialPaymentPercentage.
const MaxPercentage = 100

// Status is the state of a record.
type Status string

const (
	StatusOutstanding Status = "outstanding"
	StatusPaid        Status = "paid"
)

// Record is the debt instrument owned by one IOU contract.
//
// FaceValue is the cumulative face value issued. AmountPaid counts actual
// repayments only, so AmountPaid + AmountOwed == FaceValue at all times.
type Record struct {
	types.Entity

	ContractID               id.ContractID   `json:"contract_id"`
	Issuer                   types.AccountID `json:"issuer"`
	Recipient                types.AccountID `json:"recipient"`
	FaceValue                types.Amount    `json:"face_value"`
	AmountOwed               types.Amount    `json:"amount_owed"`
	AmountPaid               types.Amount    `json:"amount_paid"`
	Paid                     bool            `json:"paid"`
	PartialPaymentPercentage uint32          `json:"partial_payment_percentage"`
}

// New builds a fresh Outstanding record. A zero face value yields a record
// that is Paid from the start.
func New(contractID id.ContractID, issuer, recipient types.AccountID, amountOwed types.Amount, pct uint32, at time.Time) (Record, error) {
	r := Record{
		Entity:                   types.NewEntityAt(at),
		ContractID:               contractID,
		Issuer:                   issuer,
		Recipient:                recipient,
		FaceValue:                amountOwed,
		AmountOwed:               amountOwed,
		PartialPaymentPercentage: pct,
		Paid:                     amountOwed == 0,
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Status returns StatusPaid once nothing is owed.
func (r Record) Status() Status {
	if r.Paid {
		return StatusPaid
	}
	return StatusOutstanding
}

// MinimumPayment is the smallest payment accepted when the partial-payment
// floor is enforced: ceil(FaceValue * pct / 100), capped at AmountOwed so the
// final installment can always settle the debt.
func (r Record) MinimumPayment() types.Amount {
	return min(r.FaceValue.PercentCeil(r.PartialPaymentPercentage), r.AmountOwed)
}

// CheckPayment validates a repayment without applying it.
func (r Record) CheckPayment(amount types.Amount, enforceFloor bool) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroPayment
	}
	if amount > r.AmountOwed {
		return fmt.Errorf("%w: paying %d, owed %d", ErrInsufficientDebtAmount, amount, r.AmountOwed)
	}
	if enforceFloor && amount < r.MinimumPayment() {
		return fmt.Errorf("%w: paying %d, minimum %d", ErrPaymentBelowThreshold, amount, r.MinimumPayment())
	}
	return nil
}

// Repay applies a checked repayment.
func (r *Record) Repay(amount types.Amount, enforceFloor bool, at time.Time) error {
	if err := r.CheckPayment(amount, enforceFloor); err != nil {
		return err
	}

	owed, err := r.AmountOwed.Sub(amount)
	if err != nil {
		return err
	}
	paid, err := r.AmountPaid.Add(amount)
	if err != nil {
		return err
	}

	r.AmountOwed = owed
	r.AmountPaid = paid
	r.Paid = owed == 0
	r.Touch(at)
	return nil
}

// Validate checks the record's invariants.
func (r Record) Validate() error {
	switch {
	case r.Issuer.IsZero():
		return fmt.Errorf("%w: issuer is required", ErrInvalidRecord)
	case r.Recipient.IsZero():
		return fmt.Errorf("%w: recipient is required", ErrInvalidRecord)
	case r.PartialPaymentPercentage > MaxPercentage:
		return fmt.Errorf("%w: got %d", ErrInvalidPercentage, r.PartialPaymentPercentage)
	case r.FaceValue < 0 || r.AmountOwed < 0 || r.AmountPaid < 0:
		return fmt.Errorf("%w: negative amount", ErrInvalidRecord)
	}

	total, err := r.AmountOwed.Add(r.AmountPaid)
	if err != nil || total != r.FaceValue {
		return fmt.Errorf("%w: owed %d + paid %d != face %d", ErrInvalidRecord, r.AmountOwed, r.AmountPaid, r.FaceValue)
	}
	if r.Paid != (r.AmountOwed == 0) {
		return fmt.Errorf("%w: paid flag disagrees with amount owed %d", ErrInvalidRecord, r.AmountOwed)
	}
	return nil
}
