package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/iou/debt"
	"github.com/xraph/iou/event"
	"github.com/xraph/iou/id"
	"github.com/xraph/iou/journal"
	"github.com/xraph/iou/types"
)

// ──────────────────────────────────────────────────
// Journal entry model
// ──────────────────────────────────────────────────

type entryModel struct {
	grove.BaseModel `grove:"table:iou_journal"`

	ID         string          `grove:"id,pk"       bson:"_id"`
	ContractID string          `grove:"contract_id" bson:"contract_id"`
	Seq        int64           `grove:"seq"         bson:"seq"`
	Op         string          `grove:"op"          bson:"op"`
	Caller     string          `grove:"caller"      bson:"caller"`
	Args       argsModel       `grove:"args"        bson:"args"`
	Events     []envelopeModel `grove:"events"      bson:"events"`
	RecordedAt time.Time       `grove:"recorded_at" bson:"recorded_at"`
}

type argsModel struct {
	Amount     int64  `bson:"amount"`
	Recipient  string `bson:"recipient,omitempty"`
	From       string `bson:"from,omitempty"`
	To         string `bson:"to,omitempty"`
	Spender    string `bson:"spender,omitempty"`
	Percentage uint32 `bson:"percentage,omitempty"`
}

type envelopeModel struct {
	Kind      string  `bson:"kind"`
	From      *string `bson:"from,omitempty"`
	To        *string `bson:"to,omitempty"`
	Issuer    string  `bson:"issuer,omitempty"`
	Recipient string  `bson:"recipient,omitempty"`
	Owner     string  `bson:"owner,omitempty"`
	Spender   string  `bson:"spender,omitempty"`
	Value     int64   `bson:"value"`
}

func toEntryModel(e *journal.Entry) *entryModel {
	events := make([]envelopeModel, len(e.Events))
	for i, env := range e.Events {
		events[i] = envelopeModel{
			Kind:      string(env.Kind),
			From:      accountPtr(env.From),
			To:        accountPtr(env.To),
			Issuer:    string(env.Issuer),
			Recipient: string(env.Recipient),
			Owner:     string(env.Owner),
			Spender:   string(env.Spender),
			Value:     int64(env.Value),
		}
	}

	return &entryModel{
		ID:         e.ID.String(),
		ContractID: e.ContractID.String(),
		Seq:        e.Seq,
		Op:         string(e.Op),
		Caller:     string(e.Caller),
		Args: argsModel{
			Amount:     int64(e.Args.Amount),
			Recipient:  string(e.Args.Recipient),
			From:       string(e.Args.From),
			To:         string(e.Args.To),
			Spender:    string(e.Args.Spender),
			Percentage: e.Args.Percentage,
		},
		Events:     events,
		RecordedAt: e.RecordedAt.UTC(),
	}
}

func fromEntryModel(m *entryModel) (*journal.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	contractID, err := id.ParseContractID(m.ContractID)
	if err != nil {
		return nil, err
	}

	var events []event.Envelope
	if len(m.Events) > 0 {
		events = make([]event.Envelope, len(m.Events))
	}
	for i, env := range m.Events {
		events[i] = event.Envelope{
			Kind:      event.Kind(env.Kind),
			From:      accountRef(env.From),
			To:        accountRef(env.To),
			Issuer:    types.AccountID(env.Issuer),
			Recipient: types.AccountID(env.Recipient),
			Owner:     types.AccountID(env.Owner),
			Spender:   types.AccountID(env.Spender),
			Value:     types.Amount(env.Value),
		}
	}

	return &journal.Entry{
		ID:         entryID,
		ContractID: contractID,
		Seq:        m.Seq,
		Op:         journal.Op(m.Op),
		Caller:     types.AccountID(m.Caller),
		Args: journal.Args{
			Amount:     types.Amount(m.Args.Amount),
			Recipient:  types.AccountID(m.Args.Recipient),
			From:       types.AccountID(m.Args.From),
			To:         types.AccountID(m.Args.To),
			Spender:    types.AccountID(m.Args.Spender),
			Percentage: m.Args.Percentage,
		},
		Events:     events,
		RecordedAt: m.RecordedAt.UTC(),
	}, nil
}

func accountPtr(a *types.AccountID) *string {
	if a == nil {
		return nil
	}
	s := string(*a)
	return &s
}

func accountRef(s *string) *types.AccountID {
	if s == nil {
		return nil
	}
	return types.AccountID(*s).Ref()
}

// ──────────────────────────────────────────────────
// Checkpoint model
// ──────────────────────────────────────────────────

type checkpointModel struct {
	grove.BaseModel `grove:"table:iou_checkpoints"`

	ContractID string           `grove:"contract_id,pk" bson:"_id"`
	Seq        int64            `grove:"seq"            bson:"seq"`
	Record     recordModel      `grove:"record"         bson:"record"`
	Balances   map[string]int64 `grove:"balances"       bson:"balances"`
	Allowances []allowanceModel `grove:"allowances"     bson:"allowances"`
	TakenAt    time.Time        `grove:"taken_at"       bson:"taken_at"`
}

type recordModel struct {
	Issuer                   string    `bson:"issuer"`
	Recipient                string    `bson:"recipient"`
	FaceValue                int64     `bson:"face_value"`
	AmountOwed               int64     `bson:"amount_owed"`
	AmountPaid               int64     `bson:"amount_paid"`
	Paid                     bool      `bson:"paid"`
	PartialPaymentPercentage uint32    `bson:"partial_payment_percentage"`
	CreatedAt                time.Time `bson:"created_at"`
	UpdatedAt                time.Time `bson:"updated_at"`
}

type allowanceModel struct {
	Owner   string `bson:"owner"`
	Spender string `bson:"spender"`
	Value   int64  `bson:"value"`
}

func toCheckpointModel(cp *journal.Checkpoint) *checkpointModel {
	balances := make(map[string]int64, len(cp.Balances))
	for account, amount := range cp.Balances {
		balances[string(account)] = int64(amount)
	}
	allowances := make([]allowanceModel, len(cp.Allowances))
	for i, a := range cp.Allowances {
		allowances[i] = allowanceModel{Owner: string(a.Owner), Spender: string(a.Spender), Value: int64(a.Value)}
	}

	rec := cp.Record
	return &checkpointModel{
		ContractID: cp.ContractID.String(),
		Seq:        cp.Seq,
		Record: recordModel{
			Issuer:                   string(rec.Issuer),
			Recipient:                string(rec.Recipient),
			FaceValue:                int64(rec.FaceValue),
			AmountOwed:               int64(rec.AmountOwed),
			AmountPaid:               int64(rec.AmountPaid),
			Paid:                     rec.Paid,
			PartialPaymentPercentage: rec.PartialPaymentPercentage,
			CreatedAt:                rec.CreatedAt,
			UpdatedAt:                rec.UpdatedAt,
		},
		Balances:   balances,
		Allowances: allowances,
		TakenAt:    cp.TakenAt.UTC(),
	}
}

func fromCheckpointModel(m *checkpointModel) (*journal.Checkpoint, error) {
	contractID, err := id.ParseContractID(m.ContractID)
	if err != nil {
		return nil, err
	}

	balances := make(map[types.AccountID]types.Amount, len(m.Balances))
	for account, amount := range m.Balances {
		balances[types.AccountID(account)] = types.Amount(amount)
	}
	allowances := make([]journal.AllowanceEntry, len(m.Allowances))
	for i, a := range m.Allowances {
		allowances[i] = journal.AllowanceEntry{
			Owner:   types.AccountID(a.Owner),
			Spender: types.AccountID(a.Spender),
			Value:   types.Amount(a.Value),
		}
	}

	r := m.Record
	return &journal.Checkpoint{
		ContractID: contractID,
		Seq:        m.Seq,
		Record: debt.Record{
			Entity:                   types.Entity{CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC()},
			ContractID:               contractID,
			Issuer:                   types.AccountID(r.Issuer),
			Recipient:                types.AccountID(r.Recipient),
			FaceValue:                types.Amount(r.FaceValue),
			AmountOwed:               types.Amount(r.AmountOwed),
			AmountPaid:               types.Amount(r.AmountPaid),
			Paid:                     r.Paid,
			PartialPaymentPercentage: r.PartialPaymentPercentage,
		},
		Balances:   balances,
		Allowances: allowances,
		TakenAt:    m.TakenAt.UTC(),
	}, nil
}
