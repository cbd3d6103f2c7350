package financial

import (
	"fmt"

	"github.com/shopspring/decimal"

	"loan-engine/domain"
)

// ComputeProcessingFee returns the flat fee for amounts up to the ceiling and
// the percentage fee above it.
func (p Policy) ComputeProcessingFee(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, domain.NewDomainError(domain.KindInvalidAmount, "amount", "amount must be greater than zero")
	}

	if amount.LessThanOrEqual(p.FlatFeeCeiling) {
		return RoundMoney(p.FlatProcessingFee), nil
	}

	return RoundMoney(amount.Mul(p.ProcessingFeeRate)), nil
}

// ComputeQualificationCap returns the maximum approvable amount for a net
// salary.
func (p Policy) ComputeQualificationCap(netSalary decimal.Decimal) (decimal.Decimal, error) {
	if !netSalary.IsPositive() {
		return decimal.Zero, domain.NewDomainError(domain.KindInvalidIncome, "net_salary", "net salary must be greater than zero")
	}

	return RoundMoney(netSalary.Mul(p.QualificationRatio)), nil
}

// ComputeMonthlyInstallment applies the amortization formula
// P*r*(1+r)^n / ((1+r)^n - 1) with r the monthly rate. A zero rate yields P/n.
func (p Policy) ComputeMonthlyInstallment(principal, annualRatePercent decimal.Decimal, months int) (decimal.Decimal, error) {
	if months <= 0 {
		return decimal.Zero, domain.NewDomainError(domain.KindInvalidTerm, "tenure_months", "tenure must be at least one month")
	}
	if !principal.IsPositive() {
		return decimal.Zero, domain.NewDomainError(domain.KindInvalidAmount, "principal", "principal must be greater than zero")
	}
	if annualRatePercent.IsNegative() {
		return decimal.Zero, domain.NewDomainError(domain.KindInvalidAmount, "annual_interest_rate_percent", "interest rate must not be negative")
	}

	n := decimal.NewFromInt(int64(months))

	r := monthlyRate(annualRatePercent)
	if r.IsZero() {
		return RoundMoney(principal.DivRound(n, intermediatePlaces)), nil
	}

	growth := pow(one.Add(r), months)
	installment := principal.Mul(r).Mul(growth).DivRound(growth.Sub(one), intermediatePlaces)

	return RoundMoney(installment), nil
}

// ComputeNetDisbursement is the amount actually paid out after deductions.
func (p Policy) ComputeNetDisbursement(amount, processingFee, legalFee, existingBalance decimal.Decimal) (decimal.Decimal, error) {
	net := amount.Sub(processingFee).Sub(legalFee).Sub(existingBalance)
	if net.IsNegative() {
		return decimal.Zero, domain.NewDomainError(
			domain.KindNegativeDisbursement,
			"net_disbursement",
			fmt.Sprintf("deductions exceed amount: net=%s", RoundMoney(net).StringFixed(MoneyPlaces)),
		)
	}

	return RoundMoney(net), nil
}

// Compute derives the financials for the requested amount.
func (p Policy) Compute(terms domain.LoanTerms, netSalary, legalFee decimal.Decimal) (domain.ComputedLoanFinancials, error) {
	return p.ComputeWithAmount(terms.RequestedAmount, terms, netSalary, legalFee)
}

// ComputeWithAmount derives the financials for amount (typically the
// approved amount) under the remaining terms. It fails on the first error and
// never returns a partial result.
func (p Policy) ComputeWithAmount(amount decimal.Decimal, terms domain.LoanTerms, netSalary, legalFee decimal.Decimal) (domain.ComputedLoanFinancials, error) {
	if err := p.validateTerms(amount, terms, legalFee); err != nil {
		return domain.ComputedLoanFinancials{}, err
	}

	fee, err := p.ComputeProcessingFee(amount)
	if err != nil {
		return domain.ComputedLoanFinancials{}, err
	}

	qualificationCap, err := p.ComputeQualificationCap(netSalary)
	if err != nil {
		return domain.ComputedLoanFinancials{}, err
	}

	installment, err := p.ComputeMonthlyInstallment(amount, terms.AnnualInterestRatePercent, terms.TenureMonths)
	if err != nil {
		return domain.ComputedLoanFinancials{}, err
	}

	net, err := p.ComputeNetDisbursement(amount, fee, legalFee, terms.ExistingBalance)
	if err != nil {
		return domain.ComputedLoanFinancials{}, err
	}

	return domain.ComputedLoanFinancials{
		ProcessingFee:      fee,
		LegalFee:           RoundMoney(legalFee),
		MonthlyInstallment: installment,
		NetDisbursement:    net,
		QualificationCap:   qualificationCap,
	}, nil
}

func (p Policy) validateTerms(amount decimal.Decimal, terms domain.LoanTerms, legalFee decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.NewDomainError(domain.KindInvalidAmount, "requested_amount", "amount must be greater than zero")
	}
	if amount.GreaterThan(p.MaxLoanAmount) {
		return domain.NewDomainError(domain.KindInvalidAmount, "requested_amount",
			fmt.Sprintf("amount exceeds the maximum of %s", p.MaxLoanAmount.StringFixed(MoneyPlaces)))
	}
	if terms.AnnualInterestRatePercent.IsNegative() {
		return domain.NewDomainError(domain.KindInvalidAmount, "annual_interest_rate_percent", "interest rate must not be negative")
	}
	if terms.AnnualInterestRatePercent.GreaterThan(p.MaxAnnualInterestRate) {
		return domain.NewDomainError(domain.KindInvalidAmount, "annual_interest_rate_percent",
			fmt.Sprintf("interest rate exceeds the maximum of %s%%", p.MaxAnnualInterestRate))
	}
	if terms.TenureMonths <= 0 {
		return domain.NewDomainError(domain.KindInvalidTerm, "tenure_months", "tenure must be at least one month")
	}
	if terms.TenureMonths > p.MaxTenureMonths {
		return domain.NewDomainError(domain.KindInvalidTerm, "tenure_months",
			fmt.Sprintf("tenure exceeds the maximum of %d months", p.MaxTenureMonths))
	}
	if terms.ExistingBalance.IsNegative() {
		return domain.NewDomainError(domain.KindInvalidAmount, "existing_balance", "existing balance must not be negative")
	}
	if legalFee.IsNegative() {
		return domain.NewDomainError(domain.KindInvalidAmount, "legal_fee", "legal fee must not be negative")
	}
	return nil
}

// Totals returns the total repaid over the tenure and the interest part of it.
func Totals(installment, principal decimal.Decimal, months int) (total, interest decimal.Decimal) {
	total = RoundMoney(installment.Mul(decimal.NewFromInt(int64(months))))
	return total, RoundMoney(total.Sub(principal))
}

// ComputeProcessingFee uses DefaultPolicy.
func ComputeProcessingFee(amount decimal.Decimal) (decimal.Decimal, error) {
	return DefaultPolicy().ComputeProcessingFee(amount)
}

// ComputeQualificationCap uses DefaultPolicy.
func ComputeQualificationCap(netSalary decimal.Decimal) (decimal.Decimal, error) {
	return DefaultPolicy().ComputeQualificationCap(netSalary)
}

// ComputeMonthlyInstallment uses DefaultPolicy.
func ComputeMonthlyInstallment(principal, annualRatePercent decimal.Decimal, months int) (decimal.Decimal, error) {
	return DefaultPolicy().ComputeMonthlyInstallment(principal, annualRatePercent, months)
}

// ComputeNetDisbursement uses DefaultPolicy.
func ComputeNetDisbursement(amount, processingFee, legalFee, existingBalance decimal.Decimal) (decimal.Decimal, error) {
	return DefaultPolicy().ComputeNetDisbursement(amount, processingFee, legalFee, existingBalance)
}
