package financial_test

import (
	"fmt"

	"github.com/shopspring/decimal"

	"loan-engine/domain"
	"loan-engine/financial"
)

func ExampleComputeMonthlyInstallment() {
	installment, err := financial.ComputeMonthlyInstallment(
		decimal.NewFromInt(120_000),
		decimal.NewFromInt(12),
		12,
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(installment.StringFixed(2))

	// Output:
	// 10661.85
}

func ExampleComputeNetDisbursement() {
	_, err := financial.ComputeNetDisbursement(
		decimal.NewFromInt(1_000),
		decimal.NewFromInt(500),
		decimal.NewFromInt(400),
		decimal.NewFromInt(200),
	)

	fmt.Println(domain.KindOf(err))

	// Output:
	// NegativeDisbursement
}
