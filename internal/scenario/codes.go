package scenario

import (
	"errors"

	"github.com/xraph/iou"
)

// Error codes a step may expect.
const (
	CodeInsufficientBalance    = "insufficient_balance"
	CodeInsufficientAllowance  = "insufficient_allowance"
	CodeInsufficientDebtAmount = "insufficient_debt_amount"
	CodeZeroPayment            = "zero_payment"
	CodePaymentBelowThreshold  = "payment_below_threshold"
	CodeInvalidPercentage      = "invalid_percentage"
	CodeNegativeAmount         = "negative_amount"
	CodeAmountOverflow         = "amount_overflow"
	CodeContractNotFound       = "contract_not_found"
	CodeInvalidInput           = "invalid_input"
)

// Ordered most specific first: ValidationError also matches invalid_input.
var codes = []struct {
	code string
	err  error
}{
	{CodeInsufficientBalance, iou.ErrInsufficientBalance},
	{CodeInsufficientAllowance, iou.ErrInsufficientAllowance},
	{CodeInsufficientDebtAmount, iou.ErrInsufficientDebtAmount},
	{CodeZeroPayment, iou.ErrZeroPayment},
	{CodePaymentBelowThreshold, iou.ErrPaymentBelowThreshold},
	{CodeInvalidPercentage, iou.ErrInvalidPercentage},
	{CodeNegativeAmount, iou.ErrNegativeAmount},
	{CodeAmountOverflow, iou.ErrAmountOverflow},
	{CodeContractNotFound, iou.ErrContractNotFound},
	{CodeInvalidInput, iou.ErrInvalidInput},
}

// Code returns the error code for err, "" for nil and "unexpected" for an
// error outside the ledger's rejection set.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "unexpected"
}

func knownCode(code string) bool {
	for _, c := range codes {
		if c.code == code {
			return true
		}
	}
	return false
}
