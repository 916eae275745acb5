package scenario

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/xraph/iou"
	"github.com/xraph/iou/event"
	"github.com/xraph/iou/store/memory"
	"github.com/xraph/iou/types"
)

// Epoch is the fixed clock every scenario runs at.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Report is the outcome of running a scenario.
type Report struct {
	Name      string           `json:"name"`
	Pass      bool             `json:"pass"`
	Steps     []StepResult     `json:"steps"`
	Contracts []ContractReport `json:"contracts"`
	Failures  []string         `json:"failures,omitempty"`
}

// StepResult records what one step did.
type StepResult struct {
	Index    int      `json:"index"`
	Op       string   `json:"op"`
	Contract string   `json:"contract"`
	Error    string   `json:"error,omitempty"`
	Expected string   `json:"expected,omitempty"`
	OK       bool     `json:"ok"`
	Events   []string `json:"events,omitempty"`
}

// ContractReport is the final state of one named contract.
type ContractReport struct {
	Name        string           `json:"name"`
	Seq         int64            `json:"seq"`
	Status      string           `json:"status"`
	FaceValue   int64            `json:"face_value"`
	AmountOwed  int64            `json:"amount_owed"`
	AmountPaid  int64            `json:"amount_paid"`
	TotalSupply int64            `json:"total_supply"`
	Balances    map[string]int64 `json:"balances"`
}

func (r *Report) fail(format string, args ...any) {
	r.Pass = false
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// Runner executes scenarios. The zero value is not usable; use NewRunner.
type Runner struct {
	logger *slog.Logger
	opts   []iou.Option
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger handed to the ledger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithLedgerOption appends a ledger option to every run.
func WithLedgerOption(opt iou.Option) RunnerOption {
	return func(r *Runner) { r.opts = append(r.opts, opt) }
}

// NewRunner creates a runner. By default ledger logs are discarded.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes sc on a fresh in-memory ledger. A step whose outcome does not
// match its expectation fails the report but does not stop the run. The
// returned error is reserved for infrastructure failures.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	rec := event.NewRecorder()

	opts := []iou.Option{
		iou.WithLogger(r.logger),
		iou.WithClock(func() time.Time { return Epoch }),
		iou.WithSink(rec),
	}
	if sc.PartialPaymentFloor {
		opts = append(opts, iou.WithPartialPaymentFloor())
	}
	opts = append(opts, r.opts...)

	ledger := iou.New(memory.New(), opts...)
	if err := ledger.Start(ctx); err != nil {
		return nil, fmt.Errorf("scenario: start ledger: %w", err)
	}
	defer func() { _ = ledger.Stop() }()

	report := &Report{Name: sc.Name, Pass: true}
	contracts := make(map[string]*iou.Contract)
	var order []string

	for i, step := range sc.Steps {
		rec.Reset()
		err := r.apply(ctx, ledger, contracts, step)
		if err == nil && step.Op == OpIssue {
			order = append(order, step.Contract)
		}

		res := StepResult{
			Index:    i + 1,
			Op:       step.Op,
			Contract: step.Contract,
			Error:    Code(err),
			Expected: step.Error,
		}
		res.OK = res.Error == res.Expected
		for _, e := range rec.Events() {
			res.Events = append(res.Events, Describe(e))
		}
		report.Steps = append(report.Steps, res)

		if !res.OK {
			switch {
			case res.Expected == "":
				report.fail("step %d (%s %s): unexpected error: %v", res.Index, step.Op, step.Contract, err)
			case err == nil:
				report.fail("step %d (%s %s): expected %s, got success", res.Index, step.Op, step.Contract, res.Expected)
			default:
				report.fail("step %d (%s %s): expected %s, got %s", res.Index, step.Op, step.Contract, res.Expected, res.Error)
			}
		}
	}

	for _, name := range order {
		report.Contracts = append(report.Contracts, contractReport(name, contracts[name]))
	}
	for _, exp := range sc.Expect {
		c, ok := contracts[exp.Contract]
		if !ok {
			report.fail("expect %s: contract was not issued", exp.Contract)
			continue
		}
		check(report, exp, c)
	}

	return report, nil
}

func (r *Runner) apply(ctx context.Context, ledger *iou.Ledger, contracts map[string]*iou.Contract, s Step) error {
	amount := types.Amount(s.Amount)

	if s.Op == OpIssue {
		c, err := ledger.Issue(ctx, types.AccountID(s.Issuer), amount, types.AccountID(s.Recipient), s.Percentage)
		if err != nil {
			return err
		}
		contracts[s.Contract] = c
		return nil
	}

	c, ok := contracts[s.Contract]
	if !ok {
		return fmt.Errorf("%w: %s", iou.ErrContractNotFound, s.Contract)
	}

	switch s.Op {
	case OpDeposit:
		return c.Deposit(ctx, types.AccountID(s.Account), amount)
	case OpPay:
		return c.PayDebt(ctx, types.AccountID(s.Caller), amount)
	case OpApprove:
		return c.Approve(ctx, types.AccountID(s.Owner), types.AccountID(s.Spender), amount)
	case OpTransferFrom:
		return c.TransferWithAllowance(ctx, types.AccountID(s.Spender), types.AccountID(s.From), types.AccountID(s.To), amount)
	default:
		return fmt.Errorf("%w: unknown op %q", iou.ErrInvalidInput, s.Op)
	}
}

func contractReport(name string, c *iou.Contract) ContractReport {
	st := c.State()
	balances := make(map[string]int64, len(st.Balances))
	for acct, amt := range st.Balances {
		balances[string(acct)] = int64(amt)
	}
	return ContractReport{
		Name:        name,
		Seq:         st.Seq,
		Status:      string(st.Record.Status()),
		FaceValue:   int64(st.Record.FaceValue),
		AmountOwed:  int64(st.Record.AmountOwed),
		AmountPaid:  int64(st.Record.AmountPaid),
		TotalSupply: int64(st.TotalSupply),
		Balances:    balances,
	}
}

func check(report *Report, exp Expectation, c *iou.Contract) {
	st := c.State()

	for _, acct := range slices.Sorted(maps.Keys(exp.Balances)) {
		want := exp.Balances[acct]
		if got := int64(c.BalanceOf(types.AccountID(acct))); got != want {
			report.fail("expect %s: balance of %s is %d, want %d", exp.Contract, acct, got, want)
		}
	}
	for _, a := range exp.Allowances {
		if got := int64(c.Allowance(types.AccountID(a.Owner), types.AccountID(a.Spender))); got != a.Value {
			report.fail("expect %s: allowance %s->%s is %d, want %d", exp.Contract, a.Owner, a.Spender, got, a.Value)
		}
	}
	if exp.AmountOwed != nil && int64(st.Record.AmountOwed) != *exp.AmountOwed {
		report.fail("expect %s: amount owed is %d, want %d", exp.Contract, st.Record.AmountOwed, *exp.AmountOwed)
	}
	if exp.AmountPaid != nil && int64(st.Record.AmountPaid) != *exp.AmountPaid {
		report.fail("expect %s: amount paid is %d, want %d", exp.Contract, st.Record.AmountPaid, *exp.AmountPaid)
	}
	if exp.Paid != nil && st.Record.Paid != *exp.Paid {
		report.fail("expect %s: paid is %t, want %t", exp.Contract, st.Record.Paid, *exp.Paid)
	}
	if exp.TotalSupply != nil && int64(st.TotalSupply) != *exp.TotalSupply {
		report.fail("expect %s: total supply is %d, want %d", exp.Contract, st.TotalSupply, *exp.TotalSupply)
	}
}

// Describe renders an event as a single line.
func Describe(e event.Event) string {
	switch e := e.(type) {
	case event.Transfer:
		if e.From == nil {
			return fmt.Sprintf("mint %s %d", accountOf(e.To), e.Value)
		}
		return fmt.Sprintf("transfer %s->%s %d", accountOf(e.From), accountOf(e.To), e.Value)
	case event.Deposit:
		return fmt.Sprintf("deposit %s %d", e.To, e.Value)
	case event.Issuance:
		return fmt.Sprintf("issuance %s owes %s %d", e.Issuer, e.Recipient, e.AmountOwed)
	case event.Approval:
		return fmt.Sprintf("approval %s->%s %d", e.Owner, e.Spender, e.Value)
	default:
		return string(e.Kind())
	}
}

func accountOf(a *types.AccountID) string {
	if a == nil {
		return "-"
	}
	return string(*a)
}
