package commands

import (
	"encoding/json"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"loan-engine/config"
	"loan-engine/financial"
)

var (
	policyPath string
	policy     financial.Policy
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "loanctl",
		Short:         "Loan calculator and schedule tool",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.LoadPolicyOrDefault(policyPath)
			if err != nil {
				return err
			}
			policy = p
			return nil
		},
	}

	root.PersistentFlags().StringVar(&policyPath, "policy", "", "YAML policy file (default built-in policy)")

	root.AddCommand(calculateCmd(), scheduleCmd())
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// decimalFlag parses a flag value kept as string so it never passes through float64.
func decimalFlag(name, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &flagError{name: name, err: err}
	}
	return d, nil
}

type flagError struct {
	name string
	err  error
}

func (e *flagError) Error() string {
	return "--" + e.name + ": " + e.err.Error()
}

func (e *flagError) Unwrap() error {
	return e.err
}
