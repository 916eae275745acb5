package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/xraph/iou/internal/scenario"
)

// ValidateResult summarizes a structurally valid scenario.
type ValidateResult struct {
	Name      string   `json:"name"`
	Steps     int      `json:"steps"`
	Contracts []string `json:"contracts"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>",
		Short: "Check a scenario file without running it",
		Long: `Validate decodes a scenario and checks its structure: known operations and
error codes, required accounts, and contracts issued before they are used.

Example:
  iouctl validate ./scenarios/installments.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateScenario(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func validateScenario(cmd *cobra.Command, opts *RootOptions, path string) error {
	out := cmd.OutOrStdout()

	sc, err := scenario.Load(path)
	if err != nil {
		if opts.Format == "json" {
			if werr := writeJSON(out, Response{Status: "error", Error: err.Error()}); werr != nil {
				return werr
			}
		} else {
			fmt.Fprintf(out, "✗ %v\n", err)
		}
		return WrapExitError(ExitCommandError, "invalid scenario", err)
	}

	res := ValidateResult{Name: sc.Name, Steps: len(sc.Steps), Contracts: issuedContracts(sc)}
	if opts.Format == "json" {
		return writeJSON(out, Response{Status: "ok", Data: res})
	}

	fmt.Fprintf(out, "✓ %s: %d steps, %d contracts\n", res.Name, res.Steps, len(res.Contracts))
	return nil
}

func issuedContracts(sc *scenario.Scenario) []string {
	var names []string
	for _, s := range sc.Steps {
		if s.Op == scenario.OpIssue && s.Error == "" {
			names = append(names, s.Contract)
		}
	}
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
