// Package audithook bridges IOU ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/iou/debt"
	"github.com/xraph/iou/event"
	"github.com/xraph/iou/id"
	"github.com/xraph/iou/journal"
	"github.com/xraph/iou/plugin"
	"github.com/xraph/iou/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnIssuance          = (*Extension)(nil)
	_ plugin.OnTransfer          = (*Extension)(nil)
	_ plugin.OnDeposit           = (*Extension)(nil)
	_ plugin.OnApproval          = (*Extension)(nil)
	_ plugin.OnDebtRepaid        = (*Extension)(nil)
	_ plugin.OnDebtSettled       = (*Extension)(nil)
	_ plugin.OnOperationRejected = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges IOU ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Event hooks
// ──────────────────────────────────────────────────

// OnIssuance implements plugin.OnIssuance.
func (e *Extension) OnIssuance(ctx context.Context, contractID id.ContractID, ev event.Issuance) error {
	return e.record(ctx, ActionIOUIssued, SeverityInfo, OutcomeSuccess,
		ResourceContract, contractID.String(), CategoryIssuance, nil,
		"issuer", string(ev.Issuer),
		"recipient", string(ev.Recipient),
		"amount_owed", int64(ev.AmountOwed),
	)
}

// OnTransfer implements plugin.OnTransfer. A transfer without a source is
// the mint performed at issuance.
func (e *Extension) OnTransfer(ctx context.Context, contractID id.ContractID, ev event.Transfer) error {
	if ev.From == nil {
		return e.record(ctx, ActionMinted, SeverityInfo, OutcomeSuccess,
			ResourceBalance, contractID.String(), CategoryIssuance, nil,
			"to", accountOf(ev.To),
			"value", int64(ev.Value),
		)
	}
	return e.record(ctx, ActionTransferExecuted, SeverityInfo, OutcomeSuccess,
		ResourceBalance, contractID.String(), CategoryTransfer, nil,
		"from", accountOf(ev.From),
		"to", accountOf(ev.To),
		"value", int64(ev.Value),
	)
}

// OnDeposit implements plugin.OnDeposit.
func (e *Extension) OnDeposit(ctx context.Context, contractID id.ContractID, ev event.Deposit) error {
	return e.record(ctx, ActionDepositMade, SeverityInfo, OutcomeSuccess,
		ResourceBalance, contractID.String(), CategoryTransfer, nil,
		"to", string(ev.To),
		"value", int64(ev.Value),
	)
}

// OnApproval implements plugin.OnApproval.
func (e *Extension) OnApproval(ctx context.Context, contractID id.ContractID, ev event.Approval) error {
	return e.record(ctx, ActionAllowanceApproved, SeverityInfo, OutcomeSuccess,
		ResourceAllowance, contractID.String(), CategoryAccess, nil,
		"owner", string(ev.Owner),
		"spender", string(ev.Spender),
		"value", int64(ev.Value),
	)
}

// ──────────────────────────────────────────────────
// Debt hooks
// ──────────────────────────────────────────────────

// OnDebtRepaid implements plugin.OnDebtRepaid.
func (e *Extension) OnDebtRepaid(ctx context.Context, rec debt.Record, amount types.Amount) error {
	return e.record(ctx, ActionDebtRepaid, SeverityInfo, OutcomeSuccess,
		ResourceDebt, rec.ContractID.String(), CategoryRepayment, nil,
		"amount", int64(amount),
		"amount_owed", int64(rec.AmountOwed),
		"amount_paid", int64(rec.AmountPaid),
	)
}

// OnDebtSettled implements plugin.OnDebtSettled.
func (e *Extension) OnDebtSettled(ctx context.Context, rec debt.Record) error {
	return e.record(ctx, ActionDebtSettled, SeverityInfo, OutcomeSuccess,
		ResourceDebt, rec.ContractID.String(), CategoryRepayment, nil,
		"issuer", string(rec.Issuer),
		"recipient", string(rec.Recipient),
		"face_value", int64(rec.FaceValue),
	)
}

// OnOperationRejected implements plugin.OnOperationRejected.
func (e *Extension) OnOperationRejected(ctx context.Context, contractID id.ContractID, op journal.Op, opErr error) error {
	return e.record(ctx, ActionOperationRejected, SeverityWarning, OutcomeFailure,
		ResourceContract, contractID.String(), CategoryAccess, opErr,
		"op", string(op),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

func accountOf(a *types.AccountID) string {
	if a == nil {
		return ""
	}
	return string(*a)
}
