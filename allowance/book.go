package allowance

import (
	"cmp"
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
	entries map[Key]types.Amount
}

// NewBook returns an empty Book.
func NewBook() *Book {
	return &Book{entries: make(map[Key]types.Amount)}
}

// Get returns the allowance for (owner, spender), zero if unset.
func (b *Book) Get(owner, spender types.AccountID) types.Amount {
	return b.entries[Key{Owner: owner, Spender: spender}]
}

// Set replaces the allowance for (owner, spender). Zero removes the entry.
func (b *Book) Set(owner, spender types.AccountID, amount types.Amount) {
	k := Key{Owner: owner, Spender: spender}
	if amount == 0 {
		delete(b.entries, k)
		return
	}
	b.entries[k] = amount
}

// Len returns the number of non-zero allowances.
func (b *Book) Len() int { return len(b.entries) }

// Keys returns every pair with a non-zero allowance, ordered by owner then
// spender.
func (b *Book) Keys() []Key {
	return slices.SortedFunc(maps.Keys(b.entries), func(x, y Key) int {
		if c := cmp.Compare(x.Owner, y.Owner); c != 0 {
			return c
		}
		return cmp.Compare(x.Spender, y.Spender)
	})
}

// Snapshot returns a copy of all non-zero allowances.
func (b *Book) Snapshot() map[Key]types.Amount {
	return maps.Clone(b.entries)
}

// Overlay stages writes on top of a base Store until Commit.
type Overlay struct {
	base   Store
	staged map[Key]types.Amount
	order  []Key
}

// NewOverlay returns an Overlay over base.
func NewOverlay(base Store) *Overlay {
	return &Overlay{base: base, staged: make(map[Key]types.Amount)}
}

// Get returns the staged allowance if any, else the base one.
func (o *Overlay) Get(owner, spender types.AccountID) types.Amount {
	if v, ok := o.staged[Key{Owner: owner, Spender: spender}]; ok {
		return v
	}
	return o.base.Get(owner, spender)
}

// Set stages an allowance. A later Set on the same pair supersedes an
// earlier one.
func (o *Overlay) Set(owner, spender types.AccountID, amount types.Amount) {
	k := Key{Owner: owner, Spender: spender}
	if _, ok := o.staged[k]; !ok {
		o.order = append(o.order, k)
	}
	o.staged[k] = amount
}

// Commit writes staged values to the base and clears the overlay.
func (o *Overlay) Commit() {
	for _, k := range o.order {
		o.base.Set(k.Owner, k.Spender, o.staged[k])
	}
	o.Discard()
}

// Discard drops every staged write.
func (o *Overlay) Discard() {
	clear(o.staged)
	o.order = o.order[:0]
}
