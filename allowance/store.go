// Package allowance holds delegated spending limits keyed by an ordered
// (owner, spender) pair.
//
// The mapping has two writers: approve-style delegation, and the transfer
// engine, which records the last amount moved from owner to spender in the
// same slot. This layer enforces neither; callers compute the value.
package allowance

import "github.com/xraph/iou/types"

// Key is the ordered pair an allowance is stored under.
type Key struct {
	Owner   types.AccountID `json:"owner"`
	Spender types.AccountID `json:"spender"`
}

// Store is the allowance mapping. Unknown pairs read as zero.
type Store interface {
	Get(owner, spender types.AccountID) types.Amount
	Set(owner, spender types.AccountID, amount types.Amount)
}
