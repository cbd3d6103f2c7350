package financial

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// MoneyPlaces is the number of decimal places money is rounded to.
	MoneyPlaces int32 = 2

	// intermediatePlaces bounds digit growth of divisions and powers. It is
	// far beyond MoneyPlaces so the single final rounding dominates.
	intermediatePlaces int32 = 28

	monthsPerYear = 12
)

var (
	one        = decimal.NewFromInt(1)
	oneHundred = decimal.NewFromInt(100)
)

// Policy holds the tunable business constants of the calculator and the
// lifecycle guards.
type Policy struct {
	FlatProcessingFee     decimal.Decimal
	FlatFeeCeiling        decimal.Decimal
	ProcessingFeeRate     decimal.Decimal
	QualificationRatio    decimal.Decimal
	MaxTenureMonths       int
	NPLThresholdDays      int
	MaxLoanAmount         decimal.Decimal
	MaxAnnualInterestRate decimal.Decimal
}

// DefaultPolicy returns the standard constants: a 500 flat fee up to 10,000,
// 5% above it, a 50% salary qualification ratio and a 90 day NPL threshold.
func DefaultPolicy() Policy {
	return Policy{
		FlatProcessingFee:     decimal.NewFromInt(500),
		FlatFeeCeiling:        decimal.NewFromInt(10_000),
		ProcessingFeeRate:     decimal.RequireFromString("0.05"),
		QualificationRatio:    decimal.RequireFromString("0.5"),
		MaxTenureMonths:       360,
		NPLThresholdDays:      90,
		MaxLoanAmount:         decimal.NewFromInt(1_000_000_000),
		MaxAnnualInterestRate: decimal.NewFromInt(1000),
	}
}

// Validate checks that the policy is internally consistent.
func (p Policy) Validate() error {
	if p.FlatProcessingFee.IsNegative() {
		return fmt.Errorf("flat processing fee must not be negative")
	}
	if !p.FlatFeeCeiling.IsPositive() {
		return fmt.Errorf("flat fee ceiling must be positive")
	}
	if p.ProcessingFeeRate.IsNegative() || p.ProcessingFeeRate.GreaterThan(one) {
		return fmt.Errorf("processing fee rate must be within [0, 1]")
	}
	if !p.QualificationRatio.IsPositive() || p.QualificationRatio.GreaterThan(one) {
		return fmt.Errorf("qualification ratio must be within (0, 1]")
	}
	if p.MaxTenureMonths <= 0 {
		return fmt.Errorf("max tenure must be positive")
	}
	if p.NPLThresholdDays <= 0 {
		return fmt.Errorf("npl threshold must be positive")
	}
	if !p.MaxLoanAmount.IsPositive() {
		return fmt.Errorf("max loan amount must be positive")
	}
	if !p.MaxAnnualInterestRate.IsPositive() {
		return fmt.Errorf("max annual interest rate must be positive")
	}
	return nil
}

// RoundMoney rounds half-up to MoneyPlaces. All amounts handled here are
// non-negative, where half-up and half-away-from-zero coincide.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

func monthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.DivRound(oneHundred.Mul(decimal.NewFromInt(monthsPerYear)), intermediatePlaces)
}

// pow raises base to a non-negative integer power by squaring.
func pow(base decimal.Decimal, n int) decimal.Decimal {
	result := one
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(intermediatePlaces)
		}
		base = base.Mul(base).Round(intermediatePlaces)
		n >>= 1
	}
	return result
}
