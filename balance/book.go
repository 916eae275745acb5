package balance

import (
	"maps"
	"slices"

	"github.com/xraph/iou/types"
)

var (
	_ Store = (*Book)(nil)
	_ Store = (*Overlay)(nil)
)

// Book is a map-backed Store.
type Book struct {
	entries map[types.AccountID]types.Amount
}

// NewBook returns an empty Book.
func NewBook() *Book {
	return &Book{entries: make(map[types.AccountID]types.Amount)}
}

// Get returns the balance of account, zero if unknown.
func (b *Book) Get(account types.AccountID) types.Amount {
	return b.entries[account]
}

// Set replaces the balance of account. Zero removes the entry.
func (b *Book) Set(account types.AccountID, amount types.Amount) {
	if amount == 0 {
		delete(b.entries, account)
		return
	}
	b.entries[account] = amount
}

// Len returns the number of accounts holding a non-zero balance.
func (b *Book) Len() int { return len(b.entries) }

// Snapshot returns a copy of all non-zero balances.
func (b *Book) Snapshot() map[types.AccountID]types.Amount {
	return maps.Clone(b.entries)
}

// Total sums every balance.
func (b *Book) Total() (types.Amount, error) {
	return types.Sum(slices.Collect(maps.Values(b.entries))...)
}

// Overlay stages writes on top of a base Store until Commit.
// Reads see staged values first.
type Overlay struct {
	base   Store
	staged map[types.AccountID]types.Amount
	order  []types.AccountID
}

// NewOverlay returns an Overlay over base.
func NewOverlay(base Store) *Overlay {
	return &Overlay{base: base, staged: make(map[types.AccountID]types.Amount)}
}

// Get returns the staged balance if any, else the base balance.
func (o *Overlay) Get(account types.AccountID) types.Amount {
	if v, ok := o.staged[account]; ok {
		return v
	}
	return o.base.Get(account)
}

// Set stages a balance.
func (o *Overlay) Set(account types.AccountID, amount types.Amount) {
	if _, ok := o.staged[account]; !ok {
		o.order = append(o.order, account)
	}
	o.staged[account] = amount
}


// Commit writes staged values to the base in first-write order and clears
// the overlay.
func (o *Overlay) Commit() {
	for _, account := range o.order {
		o.base.Set(account, o.staged[account])
	}
	o.Discard()
}

// Discard drops every staged write.
func (o *Overlay) Discard() {
	clear(o.staged)
	o.order = o.order[:0]
}
