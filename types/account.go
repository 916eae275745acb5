package types

// AccountID is an opaque participant identifier supplied by the host.
// The ledger only compares and hashes it.
type AccountID string

// String returns the raw identifier.
func (a AccountID) String() string { return string(a) }

// IsZero reports whether the identifier is empty.
func (a AccountID) IsZero() bool { return a == "" }

// Ref returns a pointer to a copy of a, for optional account fields.
func (a AccountID) Ref() *AccountID { return &a }
