package postgres

import (
	"encoding/json"
	"fmt"
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

	ID         string          `grove:"id,pk"`
	ContractID string          `grove:"contract_id"`
	Seq        int64           `grove:"seq"`
	Op         string          `grove:"op"`
	Caller     string          `grove:"caller"`
	Args       json.RawMessage `grove:"args,type:jsonb"`
	Events     json.RawMessage `grove:"events,type:jsonb"`
	RecordedAt time.Time       `grove:"recorded_at"`
}

func toEntryModel(e *journal.Entry) (*entryModel, error) {
	args, err := json.Marshal(e.Args)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	events, err := json.Marshal(e.Events)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}

	return &entryModel{
		ID:         e.ID.String(),
		ContractID: e.ContractID.String(),
		Seq:        e.Seq,
		Op:         string(e.Op),
		Caller:     string(e.Caller),
		Args:       args,
		Events:     events,
		RecordedAt: e.RecordedAt.UTC(),
	}, nil
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

	var args journal.Args
	if err := json.Unmarshal(m.Args, &args); err != nil {
		return nil, fmt.Errorf("decode args of %s: %w", m.ID, err)
	}
	var events []event.Envelope
	if len(m.Events) > 0 {
		if err := json.Unmarshal(m.Events, &events); err != nil {
			return nil, fmt.Errorf("decode events of %s: %w", m.ID, err)
		}
	}

	return &journal.Entry{
		ID:         entryID,
		ContractID: contractID,
		Seq:        m.Seq,
		Op:         journal.Op(m.Op),
		Caller:     types.AccountID(m.Caller),
		Args:       args,
		Events:     events,
		RecordedAt: m.RecordedAt.UTC(),
	}, nil
}

// ──────────────────────────────────────────────────
// Checkpoint model
// ──────────────────────────────────────────────────

type checkpointModel struct {
	grove.BaseModel `grove:"table:iou_checkpoints"`

	ContractID string          `grove:"contract_id,pk"`
	Seq        int64           `grove:"seq"`
	Record     json.RawMessage `grove:"record,type:jsonb"`
	Balances   json.RawMessage `grove:"balances,type:jsonb"`
	Allowances json.RawMessage `grove:"allowances,type:jsonb"`
	TakenAt    time.Time       `grove:"taken_at"`
}

func toCheckpointModel(cp *journal.Checkpoint) (*checkpointModel, error) {
	record, err := json.Marshal(cp.Record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	balances, err := json.Marshal(cp.Balances)
	if err != nil {
		return nil, fmt.Errorf("encode balances: %w", err)
	}
	allowances, err := json.Marshal(cp.Allowances)
	if err != nil {
		return nil, fmt.Errorf("encode allowances: %w", err)
	}

	return &checkpointModel{
		ContractID: cp.ContractID.String(),
		Seq:        cp.Seq,
		Record:     record,
		Balances:   balances,
		Allowances: allowances,
		TakenAt:    cp.TakenAt.UTC(),
	}, nil
}

func fromCheckpointModel(m *checkpointModel) (*journal.Checkpoint, error) {
	contractID, err := id.ParseContractID(m.ContractID)
	if err != nil {
		return nil, err
	}

	cp := &journal.Checkpoint{
		ContractID: contractID,
		Seq:        m.Seq,
		TakenAt:    m.TakenAt.UTC(),
	}

	var rec debt.Record
	if err := json.Unmarshal(m.Record, &rec); err != nil {
		return nil, fmt.Errorf("decode record of %s: %w", m.ContractID, err)
	}
	cp.Record = rec

	if err := json.Unmarshal(m.Balances, &cp.Balances); err != nil {
		return nil, fmt.Errorf("decode balances of %s: %w", m.ContractID, err)
	}
	if len(m.Allowances) > 0 {
		if err := json.Unmarshal(m.Allowances, &cp.Allowances); err != nil {
			return nil, fmt.Errorf("decode allowances of %s: %w", m.ContractID, err)
		}
	}
	return cp, nil
}
