package iou

import (
	"errors"
	"fmt"

	"github.com/xraph/iou/debt"
	"github.com/xraph/iou/lock"
	"github.com/xraph/iou/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("iou: not found")
	ErrAlreadyExists = errors.New("iou: already exists")
	ErrInvalidInput  = errors.New("iou: invalid input")

	// Transfer errors
	ErrInsufficientBalance   = errors.New("iou: insufficient balance")
	ErrInsufficientAllowance = errors.New("iou: insufficient allowance")
	ErrNegativeAmount        = types.ErrNegativeAmount
	ErrAmountOverflow        = types.ErrAmountOverflow

	// Debt errors
	ErrInsufficientDebtAmount = debt.ErrInsufficientDebtAmount
	ErrZeroPayment            = debt.ErrZeroPayment
	ErrPaymentBelowThreshold  = debt.ErrPaymentBelowThreshold
	ErrInvalidPercentage      = debt.ErrInvalidPercentage

	// Contract errors
	ErrContractNotFound       = errors.New("iou: contract not found")
	ErrCheckpointNotFound     = errors.New("iou: checkpoint not found")
	ErrConcurrentModification = errors.New("iou: contract modified concurrently")
	ErrJournalCorrupt         = errors.New("iou: journal does not replay")

	// Store errors
	ErrStoreClosed  = errors.New("iou: store is closed")
	ErrJournalWrite = errors.New("iou: journal write failed")
)

// ValidationError reports a rejected argument.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("iou: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrContractNotFound) ||
		errors.Is(err, ErrCheckpointNotFound)
}

// IsInsufficientFunds returns true if the operation was refused because the
// caller lacked balance, allowance or outstanding debt.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientAllowance) ||
		errors.Is(err, ErrInsufficientDebtAmount)
}

// IsConflict returns true if another writer got to the contract first.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsRetryable returns true if the error is temporary and the operation can be
// retried by the caller. The ledger never retries on its own.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrJournalWrite) ||
		errors.Is(err, lock.ErrNotAcquired)
}
