package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func scheduleCmd() *cobra.Command {
	var (
		principal, rate, start string
		months                 int
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the amortization schedule of a principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := decimalFlag("principal", principal)
			if err != nil {
				return err
			}
			r, err := decimalFlag("rate", rate)
			if err != nil {
				return err
			}

			firstDue := time.Now().UTC().AddDate(0, 1, 0).Truncate(24 * time.Hour)
			if start != "" {
				firstDue, err = time.Parse("2006-01-02", start)
				if err != nil {
					return fmt.Errorf("--first-due: %w", err)
				}
			}

			rows, err := policy.BuildSchedule(p, r, months, firstDue)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "principal to amortize")
	cmd.Flags().StringVar(&rate, "rate", "0", "annual interest rate in percent")
	cmd.Flags().IntVar(&months, "months", 0, "tenure in months")
	cmd.Flags().StringVar(&start, "first-due", "", "first due date, YYYY-MM-DD (default one month from today)")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("months")

	return cmd
}
