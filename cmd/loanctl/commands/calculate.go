package commands

import (
	"github.com/spf13/cobra"

	"loan-engine/domain"
	"loan-engine/financial"
)

func calculateCmd() *cobra.Command {
	var (
		amount, rate, balance, salary, legalFee string
		months                                  int
	)

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Compute the financials of a loan request",
		RunE: func(cmd *cobra.Command, args []string) error {
			terms := domain.LoanTerms{TenureMonths: months}
			var err error
			if terms.RequestedAmount, err = decimalFlag("amount", amount); err != nil {
				return err
			}
			if terms.AnnualInterestRatePercent, err = decimalFlag("rate", rate); err != nil {
				return err
			}
			if terms.ExistingBalance, err = decimalFlag("existing-balance", balance); err != nil {
				return err
			}
			netSalary, err := decimalFlag("net-salary", salary)
			if err != nil {
				return err
			}
			legal, err := decimalFlag("legal-fee", legalFee)
			if err != nil {
				return err
			}

			fin, err := policy.Compute(terms, netSalary, legal)
			if err != nil {
				return err
			}
			total, interest := financial.Totals(fin.MonthlyInstallment, terms.RequestedAmount, months)

			return printJSON(cmd.OutOrStdout(), domain.LoanResult{
				Financials:    fin,
				TotalPayment:  total,
				TotalInterest: interest,
			})
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "requested amount")
	cmd.Flags().StringVar(&rate, "rate", "0", "annual interest rate in percent")
	cmd.Flags().IntVar(&months, "months", 0, "tenure in months")
	cmd.Flags().StringVar(&balance, "existing-balance", "0", "balance of an existing loan to settle")
	cmd.Flags().StringVar(&salary, "net-salary", "", "applicant net salary")
	cmd.Flags().StringVar(&legalFee, "legal-fee", "0", "legal fee")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("months")
	_ = cmd.MarkFlagRequired("net-salary")

	return cmd
}
