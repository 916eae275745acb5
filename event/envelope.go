package event

import (
	"errors"
	"fmt"

	"github.com/xraph/iou/types"
)

var (
	// ErrUnknownKind is returned when an envelope carries an unrecognised kind.
	ErrUnknownKind = errors.New("iou: unknown event kind")

	// ErrMalformedEnvelope is returned when a required field is missing.
	ErrMalformedEnvelope = errors.New("iou: malformed event envelope")
)

// Envelope is the flat, storable form of any Event.
type Envelope struct {
	Kind      Kind             `json:"kind"`
	From      *types.AccountID `json:"from,omitempty"`
	To        *types.AccountID `json:"to,omitempty"`
	Issuer    types.AccountID  `json:"issuer,omitempty"`
	Recipient types.AccountID  `json:"recipient,omitempty"`
	Owner     types.AccountID  `json:"owner,omitempty"`
	Spender   types.AccountID  `json:"spender,omitempty"`
	Value     types.Amount     `json:"value"`
}

// Wrap flattens e.
func Wrap(e Event) Envelope {
	switch v := e.(type) {
	case Transfer:
		return Envelope{Kind: KindTransfer, From: v.From, To: v.To, Value: v.Value}
	case Deposit:
		return Envelope{Kind: KindDeposit, To: v.To.Ref(), Value: v.Value}
	case Issuance:
		return Envelope{Kind: KindIssuance, Issuer: v.Issuer, Recipient: v.Recipient, Value: v.AmountOwed}
	case Approval:
		return Envelope{Kind: KindApproval, Owner: v.Owner, Spender: v.Spender, Value: v.Value}
	default:
		return Envelope{Kind: e.Kind()}
	}
}

// Unwrap restores the typed event.
func (env Envelope) Unwrap() (Event, error) {
	switch env.Kind {
	case KindTransfer:
		return Transfer{From: env.From, To: env.To, Value: env.Value}, nil
	case KindDeposit:
		if env.To == nil {
			return nil, fmt.Errorf("%w: deposit without recipient", ErrMalformedEnvelope)
		}
		return Deposit{To: *env.To, Value: env.Value}, nil
	case KindIssuance:
		return Issuance{Issuer: env.Issuer, Recipient: env.Recipient, AmountOwed: env.Value}, nil
	case KindApproval:
		return Approval{Owner: env.Owner, Spender: env.Spender, Value: env.Value}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
}

// Equal compares two envelopes by value.
func (env Envelope) Equal(other Envelope) bool {
	return env.Kind == other.Kind &&
		sameAccount(env.From, other.From) &&
		sameAccount(env.To, other.To) &&
		env.Issuer == other.Issuer &&
		env.Recipient == other.Recipient &&
		env.Owner == other.Owner &&
		env.Spender == other.Spender &&
		env.Value == other.Value
}

// WrapAll flattens a slice of events.
func WrapAll(events []Event) []Envelope {
	out := make([]Envelope, len(events))
	for i, e := range events {
		out[i] = Wrap(e)
	}
	return out
}

func sameAccount(a, b *types.AccountID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
