// Package scenario loads and runs scripted IOU ledger sessions.
//
// A scenario is a YAML document listing operations against one or more named
// contracts, the error each step is expected to produce, and the state every
// contract must end in. Scenarios run against an in-memory store with a fixed
// clock, so their reports are deterministic.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Operation names accepted in a step's op field.
const (
	OpIssue        = "issue"
	OpDeposit      = "deposit"
	OpPay          = "pay"
	OpApprove      = "approve"
	OpTransferFrom = "transfer_from"
)

// ErrInvalidScenario wraps every structural problem found by Validate.
var ErrInvalidScenario = errors.New("scenario: invalid")

// Scenario is one scripted session.
type Scenario struct {
	// Name identifies the scenario in reports.
	Name string `yaml:"name"`

	// Description explains what the scenario exercises.
	Description string `yaml:"description,omitempty"`

	// PartialPaymentFloor enforces the minimum partial payment on pay steps.
	PartialPaymentFloor bool `yaml:"partial_payment_floor,omitempty"`

	// Steps run in order. A contract name is bound by its issue step.
	Steps []Step `yaml:"steps"`

	// Expect lists the final state of contracts, checked after all steps.
	Expect []Expectation `yaml:"expect,omitempty"`
}

// Step is a single operation. Which fields apply depends on Op.
//
//	issue:         issuer, recipient, amount, percentage
//	deposit:       account, amount
//	pay:           caller, amount
//	approve:       owner, spender, amount
//	transfer_from: spender, from, to, amount
type Step struct {
	Op       string `yaml:"op"`
	Contract string `yaml:"contract"`

	Issuer     string `yaml:"issuer,omitempty"`
	Recipient  string `yaml:"recipient,omitempty"`
	Percentage uint32 `yaml:"percentage,omitempty"`

	Account string `yaml:"account,omitempty"`
	Caller  string `yaml:"caller,omitempty"`
	Owner   string `yaml:"owner,omitempty"`
	Spender string `yaml:"spender,omitempty"`
	From    string `yaml:"from,omitempty"`
	To      string `yaml:"to,omitempty"`

	Amount int64 `yaml:"amount"`

	// Error is the expected error code, empty when the step must succeed.
	Error string `yaml:"error,omitempty"`
}

// Expectation is the final state one contract must be in. Only the fields
// that are set are checked.
type Expectation struct {
	Contract    string            `yaml:"contract"`
	Balances    map[string]int64  `yaml:"balances,omitempty"`
	Allowances  []AllowanceExpect `yaml:"allowances,omitempty"`
	AmountOwed  *int64            `yaml:"amount_owed,omitempty"`
	AmountPaid  *int64            `yaml:"amount_paid,omitempty"`
	Paid        *bool             `yaml:"paid,omitempty"`
	TotalSupply *int64            `yaml:"total_supply,omitempty"`
}

// AllowanceExpect is one expected allowance entry.
type AllowanceExpect struct {
	Owner   string `yaml:"owner"`
	Spender string `yaml:"spender"`
	Value   int64  `yaml:"value"`
}

// Load reads and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}

	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario document. Unknown fields are
// rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("scenario: decode: %w", err)
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario's structure: known ops, required accounts,
// contracts issued before use and known error codes. It does not run any
// ledger logic, so a step that is expected to fail may still carry a bad
// amount.
func (sc *Scenario) Validate() error {
	var errs []error

	if sc.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if len(sc.Steps) == 0 {
		errs = append(errs, errors.New("at least one step is required"))
	}

	issued := make(map[string]bool)
	for i, step := range sc.Steps {
		if err := step.validate(issued); err != nil {
			errs = append(errs, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err))
		}
		if step.Op == OpIssue && step.Error == "" {
			issued[step.Contract] = true
		}
	}

	for i, exp := range sc.Expect {
		if !issued[exp.Contract] {
			errs = append(errs, fmt.Errorf("expect %d: contract %q is never issued", i+1, exp.Contract))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, errors.Join(errs...))
	}
	return nil
}

func (s Step) validate(issued map[string]bool) error {
	if s.Contract == "" {
		return errors.New("contract is required")
	}
	if s.Error != "" && !knownCode(s.Error) {
		return fmt.Errorf("unknown error code %q", s.Error)
	}

	var required map[string]string
	switch s.Op {
	case OpIssue:
		if issued[s.Contract] {
			return fmt.Errorf("contract %q is already issued", s.Contract)
		}
		required = map[string]string{"issuer": s.Issuer, "recipient": s.Recipient}
	case OpDeposit:
		required = map[string]string{"account": s.Account}
	case OpPay:
		required = map[string]string{"caller": s.Caller}
	case OpApprove:
		required = map[string]string{"owner": s.Owner, "spender": s.Spender}
	case OpTransferFrom:
		required = map[string]string{"spender": s.Spender, "from": s.From, "to": s.To}
	case "":
		return errors.New("op is required")
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}

	if s.Op != OpIssue && !issued[s.Contract] && s.Error != CodeContractNotFound {
		return fmt.Errorf("contract %q is used before it is issued", s.Contract)
	}

	// Missing accounts are allowed when the step expects the rejection.
	if s.Error == CodeInvalidInput {
		return nil
	}
	for _, field := range []string{"issuer", "recipient", "account", "caller", "owner", "spender", "from", "to"} {
		if v, ok := required[field]; ok && v == "" {
			return fmt.Errorf("%s is required", field)
		}
	}
	return nil
}
