package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/xraph/iou"
	"github.com/xraph/iou/internal/scenario"
	"github.com/xraph/iou/types"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	PartialPaymentFloor bool
	Decimals            int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario against an in-memory ledger",
		Long: `Run executes every step of a scenario against a fresh in-memory ledger
and prints what each step did and the final state of every contract.

The command exits with status 1 when a step or expectation does not match.

Example:
  iouctl run ./scenarios/installments.yaml
  iouctl run --format json --partial-payment-floor ./loan.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.PartialPaymentFloor, "partial-payment-floor", false, "enforce the minimum partial payment regardless of the scenario")
	cmd.Flags().IntVar(&opts.Decimals, "decimals", 0, "minor-unit decimals used to render contract amounts in text output")

	return cmd
}

func runScenario(cmd *cobra.Command, opts *RunOptions, path string) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "load scenario", err)
	}

	var runnerOpts []scenario.RunnerOption
	if opts.Verbose {
		handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})
		runnerOpts = append(runnerOpts, scenario.WithLogger(slog.New(handler)))
	}
	if opts.PartialPaymentFloor {
		runnerOpts = append(runnerOpts, scenario.WithLedgerOption(iou.WithPartialPaymentFloor()))
	}

	report, err := scenario.NewRunner(runnerOpts...).Run(cmd.Context(), sc)
	if err != nil {
		return WrapExitError(ExitCommandError, "run scenario", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		status := "ok"
		if !report.Pass {
			status = "fail"
		}
		if err := writeJSON(out, Response{Status: status, Data: report}); err != nil {
			return err
		}
	} else {
		writeReport(out, report, opts.Decimals)
	}

	if !report.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", report.Name))
	}
	return nil
}

func writeReport(w io.Writer, r *scenario.Report, decimals int) {
	major := func(v int64) string { return types.Amount(v).FormatMajor(decimals) }

	result := "PASS"
	if !r.Pass {
		result = "FAIL"
	}
	fmt.Fprintf(w, "scenario: %s\n", r.Name)
	fmt.Fprintf(w, "result: %s\n", result)

	fmt.Fprintln(w, "steps:")
	for _, s := range r.Steps {
		fmt.Fprintf(w, "  %d. %s %s %s\n", s.Index, s.Op, s.Contract, stepOutcome(s))
		for _, e := range s.Events {
			fmt.Fprintf(w, "     %s\n", e)
		}
	}

	fmt.Fprintln(w, "contracts:")
	for _, c := range r.Contracts {
		fmt.Fprintf(w, "  %s seq=%d status=%s face=%s owed=%s paid=%s supply=%s\n",
			c.Name, c.Seq, c.Status, major(c.FaceValue), major(c.AmountOwed), major(c.AmountPaid), major(c.TotalSupply))
		for _, acct := range sortedKeys(c.Balances) {
			fmt.Fprintf(w, "    %s %s\n", acct, major(c.Balances[acct]))
		}
	}

	if len(r.Failures) > 0 {
		fmt.Fprintln(w, "failures:")
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
}

func stepOutcome(s scenario.StepResult) string {
	got, want := orSuccess(s.Error), orSuccess(s.Expected)
	switch {
	case !s.OK:
		return fmt.Sprintf("FAIL got %s want %s", got, want)
	case s.Error != "":
		return "rejected " + s.Error
	default:
		return "ok"
	}
}

func orSuccess(code string) string {
	if code == "" {
		return "success"
	}
	return code
}
