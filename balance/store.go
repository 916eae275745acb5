// Package balance holds per-account balances of the ledger's fungible unit.
//
// Reads never fail: an account with no entry holds zero. The package has no
// locking of its own; the owning contract serializes access.
package balance

import "github.com/xraph/iou/types"

// Store is the balance mapping. Set replaces the stored value.
type Store interface {
	Get(account types.AccountID) types.Amount
	Set(account types.AccountID, amount types.Amount)
}
