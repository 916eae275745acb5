package iou

import (
	"github.com/xraph/iou/debt"
	"github.com/xraph/iou/types"
)

// Re-export common types for convenience so users don't have to import the
// types and debt packages.

// Amount is re-exported from types package.
type Amount = types.Amount

// AccountID is re-exported from types package.
type AccountID = types.AccountID

// Entity is re-exported from types package.
type Entity = types.Entity

// Record is re-exported from debt package.
type Record = debt.Record

// Re-export helpers
var (
	Sum       = types.Sum
	NewEntity = types.NewEntity
)
