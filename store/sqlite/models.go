package sqlite

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

	ID         string    `grove:"id,pk"`
	ContractID string    `grove:"contract_id"`
	Seq        int64     `grove:"seq"`
	Op         string    `grove:"op"`
	Caller     string    `grove:"caller"`
	Args       string    `grove:"args"`
	Events     string    `grove:"events"`
	RecordedAt time.Time `grove:"recorded_at"`
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
		Args:       string(args),
		Events:     string(events),
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
	if err := json.Unmarshal([]byte(m.Args), &args); err != nil {
		return nil, fmt.Errorf("decode args of %s: %w", m.ID, err)
	}
	var events []event.Envelope
	if err := json.Unmarshal([]byte(m.Events), &events); err != nil {
		return nil, fmt.Errorf("decode events of %s: %w", m.ID, err)
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

	ContractID string    `grove:"contract_id,pk"`
	Seq        int64     `grove:"seq"`
	State      string    `grove:"state"`
	TakenAt    time.Time `grove:"taken_at"`
}

type checkpointState struct {
	Record     debt.Record                      `json:"record"`
	Balances   map[types.AccountID]types.Amount `json:"balances"`
	Allowances []journal.AllowanceEntry         `json:"allowances"`
}

func toCheckpointModel(cp *journal.Checkpoint) (*checkpointModel, error) {
	state, err := json.Marshal(checkpointState{
		Record:     cp.Record,
		Balances:   cp.Balances,
		Allowances: cp.Allowances,
	})
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}

	return &checkpointModel{
		ContractID: cp.ContractID.String(),
		Seq:        cp.Seq,
		State:      string(state),
		TakenAt:    cp.TakenAt.UTC(),
	}, nil
}

func fromCheckpointModel(m *checkpointModel) (*journal.Checkpoint, error) {
	contractID, err := id.ParseContractID(m.ContractID)
	if err != nil {
		return nil, err
	}

	var state checkpointState
	if err := json.Unmarshal([]byte(m.State), &state); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", m.ContractID, err)
	}

	return &journal.Checkpoint{
		ContractID: contractID,
		Seq:        m.Seq,
		Record:     state.Record,
		Balances:   state.Balances,
		Allowances: state.Allowances,
		TakenAt:    m.TakenAt.UTC(),
	}, nil
}
