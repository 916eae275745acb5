package audithook

// Action constants for audit events.
const (
	// Issuance actions
	ActionIOUIssued = "iou.issued"

	// Movement actions
	ActionTransferExecuted  = "transfer.executed"
	ActionMinted            = "balance.minted"
	ActionDepositMade       = "deposit.made"
	ActionAllowanceApproved = "allowance.approved"

	// Debt actions
	ActionDebtRepaid  = "debt.repaid"
	ActionDebtSettled = "debt.settled"

	// Failure actions
	ActionOperationRejected = "operation.rejected"
)

// Resource constants for audit events.
const (
	ResourceContract  = "contract"
	ResourceBalance   = "balance"
	ResourceAllowance = "allowance"
	ResourceDebt      = "debt"
)

// Category constants for audit events.
const (
	CategoryIssuance  = "issuance"
	CategoryTransfer  = "transfer"
	CategoryRepayment = "repayment"
	CategoryAccess    = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
