// Package observability provides a metrics extension for IOU ledgers that
// records issuance, transfer and repayment counts through a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/iou/debt"
	"github.com/xraph/iou/event"
	"github.com/xraph/iou/id"
	"github.com/xraph/iou/journal"
	"github.com/xraph/iou/plugin"
	"github.com/xraph/iou/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnIssuance          = (*MetricsExtension)(nil)
	_ plugin.OnTransfer          = (*MetricsExtension)(nil)
	_ plugin.OnDeposit           = (*MetricsExtension)(nil)
	_ plugin.OnApproval          = (*MetricsExtension)(nil)
	_ plugin.OnDebtRepaid        = (*MetricsExtension)(nil)
	_ plugin.OnDebtSettled       = (*MetricsExtension)(nil)
	_ plugin.OnOperationRejected = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide IOU metrics.
// Register it as a ledger plugin to track them automatically.
type MetricsExtension struct {
	// Issuance metrics
	Issued          Counter
	IssuedFaceValue Histogram

	// Movement metrics
	Transfers     Counter
	TransferValue Histogram
	Mints         Counter
	Deposits      Counter
	DepositValue  Histogram
	Approvals     Counter

	// Debt metrics
	Repayments      Counter
	RepaymentAmount Histogram
	Settled         Counter

	// Error metrics
	Rejected Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		Issued:          factory.Counter("iou.issued"),
		IssuedFaceValue: factory.Histogram("iou.issued.face_value"),

		Transfers:     factory.Counter("iou.transfers"),
		TransferValue: factory.Histogram("iou.transfer.value"),
		Mints:         factory.Counter("iou.mints"),
		Deposits:      factory.Counter("iou.deposits"),
		DepositValue:  factory.Histogram("iou.deposit.value"),
		Approvals:     factory.Counter("iou.approvals"),

		Repayments:      factory.Counter("iou.debt.repayments"),
		RepaymentAmount: factory.Histogram("iou.debt.repayment.amount"),
		Settled:         factory.Counter("iou.debt.settled"),

		Rejected: factory.Counter("iou.operations.rejected"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnIssuance implements plugin.OnIssuance.
func (m *MetricsExtension) OnIssuance(_ context.Context, _ id.ContractID, e event.Issuance) error {
	m.Issued.Inc()
	m.IssuedFaceValue.Observe(float64(e.AmountOwed))
	return nil
}

// OnTransfer implements plugin.OnTransfer. Issuance mints arrive here with a
// nil From and are counted apart from transfers between accounts.
func (m *MetricsExtension) OnTransfer(_ context.Context, _ id.ContractID, e event.Transfer) error {
	if e.From == nil {
		m.Mints.Inc()
		return nil
	}
	m.Transfers.Inc()
	m.TransferValue.Observe(float64(e.Value))
	return nil
}

// OnDeposit implements plugin.OnDeposit.
func (m *MetricsExtension) OnDeposit(_ context.Context, _ id.ContractID, e event.Deposit) error {
	m.Deposits.Inc()
	m.DepositValue.Observe(float64(e.Value))
	return nil
}

// OnApproval implements plugin.OnApproval.
func (m *MetricsExtension) OnApproval(_ context.Context, _ id.ContractID, _ event.Approval) error {
	m.Approvals.Inc()
	return nil
}

// OnDebtRepaid implements plugin.OnDebtRepaid.
func (m *MetricsExtension) OnDebtRepaid(_ context.Context, _ debt.Record, amount types.Amount) error {
	m.Repayments.Inc()
	m.RepaymentAmount.Observe(float64(amount))
	return nil
}

// OnDebtSettled implements plugin.OnDebtSettled.
func (m *MetricsExtension) OnDebtSettled(_ context.Context, _ debt.Record) error {
	m.Settled.Inc()
	return nil
}

// OnOperationRejected implements plugin.OnOperationRejected.
func (m *MetricsExtension) OnOperationRejected(_ context.Context, _ id.ContractID, _ journal.Op, _ error) error {
	m.Rejected.Inc()
	return nil
}
