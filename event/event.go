// Package event defines the notifications a successful ledger operation
// produces and the Sink they are delivered to.
package event

import (
	"context"
	"sync"

	"github.com/xraph/iou/id"
	"github.com/xraph/iou/types"
)

// Kind names an event type.
type Kind string

const (
	KindTransfer Kind = "transfer"
	KindDeposit  Kind = "deposit"
	KindIssuance Kind = "issuance"
	KindApproval Kind = "approval"
)

// Event is implemented by every event type.
type Event interface {
	Kind() Kind
}

// Transfer records value moving between accounts. From is nil for a mint.
type Transfer struct {
	From  *types.AccountID `json:"from"`
	To    *types.AccountID `json:"to"`
	Value types.Amount     `json:"value"`
}

// Deposit records value credited to an account from outside the ledger.
type Deposit struct {
	To    types.AccountID `json:"to"`
	Value types.Amount    `json:"value"`
}

// Issuance records the creation of an IOU.
type Issuance struct {
	Issuer     types.AccountID `json:"issuer"`
	Recipient  types.AccountID `json:"recipient"`
	AmountOwed types.Amount    `json:"amount_owed"`
}

// Approval records an owner setting a spender's allowance.
type Approval struct {
	Owner   types.AccountID `json:"owner"`
	Spender types.AccountID `json:"spender"`
	Value   types.Amount    `json:"value"`
}

func (Transfer) Kind() Kind { return KindTransfer }
func (Deposit) Kind() Kind  { return KindDeposit }
func (Issuance) Kind() Kind { return KindIssuance }
func (Approval) Kind() Kind { return KindApproval }

// Sink receives the events of successful operations, in operation order.
// Implementations must not call back into the contract that emitted.
type Sink interface {
	Emit(ctx context.Context, contractID id.ContractID, e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, contractID id.ContractID, e Event)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, contractID id.ContractID, e Event) {
	f(ctx, contractID, e)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, id.ContractID, Event) {})

// Fanout delivers each event to every sink in order.
func Fanout(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, contractID id.ContractID, e Event) {
		for _, s := range sinks {
			s.Emit(ctx, contractID, e)
		}
	})
}

// Emitted is an event together with the contract that produced it.
type Emitted struct {
	ContractID id.ContractID
	Event      Event
}

// Recorder is a Sink that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Emitted
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Emit appends e.
func (r *Recorder) Emit(_ context.Context, contractID id.ContractID, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Emitted{ContractID: contractID, Event: e})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	for i, em := range r.events {
		out[i] = em.Event
	}
	return out
}

// For returns the events emitted by one contract.
func (r *Recorder) For(contractID id.ContractID) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, em := range r.events {
		if em.ContractID == contractID {
			out = append(out, em.Event)
		}
	}
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset forgets every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
