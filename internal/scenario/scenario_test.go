package scenario_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/iou"
	"github.com/xraph/iou/debt"
	"github.com/xraph/iou/internal/scenario"
	"github.com/xraph/iou/plugin"
	"github.com/xraph/iou/types"
)

func TestLoad(t *testing.T) {
	sc, err := scenario.Load("testdata/installments.yaml")
	require.NoError(t, err)

	assert.Equal(t, "installments", sc.Name)
	require.Len(t, sc.Steps, 9)
	assert.Equal(t, scenario.OpIssue, sc.Steps[0].Op)
	assert.Equal(t, uint32(30), sc.Steps[0].Percentage)
	assert.Equal(t, scenario.CodeInsufficientAllowance, sc.Steps[8].Error)

	require.Len(t, sc.Expect, 1)
	require.NotNil(t, sc.Expect[0].Paid)
	assert.True(t, *sc.Expect[0].Paid)
	assert.Equal(t, int64(80), sc.Expect[0].Balances["bob"])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := scenario.Load("testdata/nope.yaml")
	require.Error(t, err)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown field",
			doc:  "name: x\nsteps:\n  - op: issue\n    contract: a\n    issuer: alice\n    recipient: bob\n    amount: 1\n    colour: red\n",
			want: "colour",
		},
		{
			name: "missing name",
			doc:  "steps:\n  - op: deposit\n    contract: a\n    account: alice\n    amount: 1\n",
			want: "name is required",
		},
		{
			name: "no steps",
			doc:  "name: x\n",
			want: "at least one step",
		},
		{
			name: "unknown op",
			doc:  "name: x\nsteps:\n  - op: burn\n    contract: a\n",
			want: `unknown op "burn"`,
		},
		{
			name: "use before issue",
			doc:  "name: x\nsteps:\n  - op: deposit\n    contract: a\n    account: alice\n    amount: 1\n",
			want: "used before it is issued",
		},
		{
			name: "double issue",
			doc:  "name: x\nsteps:\n  - {op: issue, contract: a, issuer: alice, recipient: bob, amount: 1}\n  - {op: issue, contract: a, issuer: alice, recipient: bob, amount: 1}\n",
			want: "already issued",
		},
		{
			name: "missing account",
			doc:  "name: x\nsteps:\n  - {op: issue, contract: a, issuer: alice, amount: 1}\n",
			want: "recipient is required",
		},
		{
			name: "unknown error code",
			doc:  "name: x\nsteps:\n  - {op: issue, contract: a, issuer: alice, recipient: bob, amount: 1, error: boom}\n",
			want: `unknown error code "boom"`,
		},
		{
			name: "expect on unknown contract",
			doc:  "name: x\nsteps:\n  - {op: issue, contract: a, issuer: alice, recipient: bob, amount: 1}\nexpect:\n  - contract: b\n",
			want: `contract "b" is never issued`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scenario.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseAllowsExpectedRejections(t *testing.T) {
	doc := `
name: rejections
steps:
  - {op: deposit, contract: ghost, account: alice, amount: 1, error: contract_not_found}
  - {op: issue, contract: a, issuer: alice, amount: 1, error: invalid_input}
`
	sc, err := scenario.Parse([]byte(doc))
	require.NoError(t, err)

	report, err := scenario.NewRunner().Run(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, report.Pass, report.Failures)
	assert.Empty(t, report.Contracts)
}

func TestRunInstallments(t *testing.T) {
	sc, err := scenario.Load("testdata/installments.yaml")
	require.NoError(t, err)

	report, err := scenario.NewRunner().Run(context.Background(), sc)
	require.NoError(t, err)
	require.True(t, report.Pass, report.Failures)

	require.Len(t, report.Steps, 9)
	assert.Equal(t, []string{"mint alice 100", "issuance alice owes bob 100"}, report.Steps[0].Events)
	assert.Equal(t, []string{"transfer alice->bob 30"}, report.Steps[1].Events)
	assert.Empty(t, report.Steps[2].Events)
	assert.Equal(t, scenario.CodeInsufficientDebtAmount, report.Steps[2].Error)

	require.Len(t, report.Contracts, 1)
	loan := report.Contracts[0]
	assert.Equal(t, "loan", loan.Name)
	assert.Equal(t, "paid", loan.Status)
	assert.Equal(t, int64(6), loan.Seq)
	assert.Equal(t, map[string]int64{"bob": 80, "dave": 20}, loan.Balances)
}

func TestRunReportsMismatches(t *testing.T) {
	doc := `
name: wrong
steps:
  - {op: issue, contract: a, issuer: alice, recipient: bob, amount: 10}
  - {op: pay, contract: a, caller: alice, amount: 0}
  - {op: pay, contract: a, caller: alice, amount: 5, error: zero_payment}
expect:
  - contract: a
    amount_owed: 10
    balances: {bob: 0}
`
	sc, err := scenario.Parse([]byte(doc))
	require.NoError(t, err)

	report, err := scenario.NewRunner().Run(context.Background(), sc)
	require.NoError(t, err)
	assert.False(t, report.Pass)

	assert.Equal(t, scenario.CodeZeroPayment, report.Steps[1].Error)
	assert.False(t, report.Steps[1].OK)
	assert.Empty(t, report.Steps[2].Error)
	assert.False(t, report.Steps[2].OK)

	assert.Equal(t, []string{
		"step 2 (pay a): unexpected error: iou: payment must be positive",
		"step 3 (pay a): expected zero_payment, got success",
		"expect a: balance of bob is 5, want 0",
		"expect a: amount owed is 5, want 10",
	}, report.Failures)
}

func TestRunPartialPaymentFloor(t *testing.T) {
	doc := `
name: floor
partial_payment_floor: true
steps:
  - {op: issue, contract: a, issuer: alice, recipient: bob, amount: 100, percentage: 25}
  - {op: pay, contract: a, caller: alice, amount: 10, error: payment_below_threshold}
  - {op: pay, contract: a, caller: alice, amount: 25}
`
	sc, err := scenario.Parse([]byte(doc))
	require.NoError(t, err)

	report, err := scenario.NewRunner().Run(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, report.Pass, report.Failures)
}

type capPlugin struct{ limit types.Amount }

func (capPlugin) Name() string { return "cap" }

func (p capPlugin) ValidatePayment(_ context.Context, _ debt.Record, _ types.AccountID, amount types.Amount) error {
	if amount > p.limit {
		return fmt.Errorf("%w: over cap", iou.ErrInvalidInput)
	}
	return nil
}

var _ plugin.PaymentValidator = capPlugin{}

func TestRunnerLedgerOptions(t *testing.T) {
	doc := `
name: capped
steps:
  - {op: issue, contract: a, issuer: alice, recipient: bob, amount: 100}
  - {op: pay, contract: a, caller: alice, amount: 60, error: invalid_input}
  - {op: pay, contract: a, caller: alice, amount: 50}
`
	sc, err := scenario.Parse([]byte(doc))
	require.NoError(t, err)

	runner := scenario.NewRunner(scenario.WithLedgerOption(iou.WithPlugin(capPlugin{limit: 50})))
	report, err := runner.Run(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, report.Pass, report.Failures)
}

func TestCode(t *testing.T) {
	assert.Empty(t, scenario.Code(nil))
	assert.Equal(t, scenario.CodeInsufficientBalance, scenario.Code(fmt.Errorf("wrapped: %w", iou.ErrInsufficientBalance)))
	assert.Equal(t, scenario.CodeInvalidInput, scenario.Code(iou.ValidationError{Field: "to", Message: "required"}))
	assert.Equal(t, "unexpected", scenario.Code(errors.New("disk on fire")))
}
