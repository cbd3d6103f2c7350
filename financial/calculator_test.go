package financial

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-engine/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()

	require.Error(t, err)
	assert.Equal(t, kind, domain.KindOf(err), "unexpected error: %v", err)
}

func TestComputeProcessingFee(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{name: "smallest positive amount", amount: "0.01", want: "500"},
		{name: "below ceiling", amount: "2500", want: "500"},
		{name: "at ceiling", amount: "10000", want: "500"},
		{name: "just above ceiling", amount: "10001", want: "500.05"},
		{name: "large amount", amount: "120000", want: "6000"},
		{name: "fractional amount", amount: "20000.50", want: "1000.03"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fee, err := ComputeProcessingFee(dec(tt.amount))
			require.NoError(t, err)
			assert.True(t, dec(tt.want).Equal(fee), "want %s got %s", tt.want, fee)
		})
	}
}

func TestComputeProcessingFee_PercentageAboveCeiling(t *testing.T) {
	t.Parallel()

	for _, amount := range []int64{10_001, 15_000, 99_999, 250_000, 1_000_000} {
		a := decimal.NewFromInt(amount)

		fee, err := ComputeProcessingFee(a)
		require.NoError(t, err)
		assert.True(t, RoundMoney(a.Mul(dec("0.05"))).Equal(fee), "amount %d", amount)
	}
}

func TestComputeProcessingFee_NonPositiveAmount(t *testing.T) {
	t.Parallel()

	for _, amount := range []string{"0", "-0.01", "-10000"} {
		_, err := ComputeProcessingFee(dec(amount))
		assertKind(t, err, domain.KindInvalidAmount)
	}
}

func TestComputeQualificationCap(t *testing.T) {
	t.Parallel()

	got, err := ComputeQualificationCap(dec("100000"))
	require.NoError(t, err)
	assert.True(t, dec("50000").Equal(got))

	got, err = ComputeQualificationCap(dec("1234.57"))
	require.NoError(t, err)
	assert.True(t, dec("617.29").Equal(got), "got %s", got)

	_, err = ComputeQualificationCap(decimal.Zero)
	assertKind(t, err, domain.KindInvalidIncome)

	_, err = ComputeQualificationCap(dec("-1"))
	assertKind(t, err, domain.KindInvalidIncome)
}

func TestComputeMonthlyInstallment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		principal string
		rate      string
		months    int
		want      string
	}{
		{name: "one year at twelve percent", principal: "120000", rate: "12", months: 12, want: "10661.85"},
		{name: "two years at twelve percent", principal: "10000", rate: "12", months: 24, want: "470.73"},
		{name: "three years at eighteen percent", principal: "60000", rate: "18", months: 36, want: "2169.14"},
		{name: "fractional rate", principal: "1000", rate: "0.5", months: 3, want: "333.61"},
		{name: "interest free", principal: "1200", rate: "0", months: 12, want: "100"},
		{name: "interest free rounds once", principal: "1000", rate: "0", months: 3, want: "333.33"},
		{name: "single month interest free", principal: "750.25", rate: "0", months: 1, want: "750.25"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ComputeMonthlyInstallment(dec(tt.principal), dec(tt.rate), tt.months)
			require.NoError(t, err)
			assert.True(t, dec(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestComputeMonthlyInstallment_InterestFreeIsPrincipalOverMonths(t *testing.T) {
	t.Parallel()

	for months := 1; months <= 60; months++ {
		principal := decimal.NewFromInt(int64(months) * 250)

		got, err := ComputeMonthlyInstallment(principal, decimal.Zero, months)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(250).Equal(got), "months=%d got %s", months, got)
	}
}

func TestComputeMonthlyInstallment_Errors(t *testing.T) {
	t.Parallel()

	_, err := ComputeMonthlyInstallment(dec("1000"), dec("10"), 0)
	assertKind(t, err, domain.KindInvalidTerm)

	_, err = ComputeMonthlyInstallment(dec("1000"), dec("10"), -3)
	assertKind(t, err, domain.KindInvalidTerm)

	_, err = ComputeMonthlyInstallment(decimal.Zero, dec("10"), 12)
	assertKind(t, err, domain.KindInvalidAmount)

	_, err = ComputeMonthlyInstallment(dec("1000"), dec("-1"), 12)
	assertKind(t, err, domain.KindInvalidAmount)
}

func TestComputeNetDisbursement(t *testing.T) {
	t.Parallel()

	got, err := ComputeNetDisbursement(dec("50000"), dec("2500"), dec("250"), dec("1000"))
	require.NoError(t, err)
	assert.True(t, dec("46250").Equal(got))

	got, err = ComputeNetDisbursement(dec("1000"), dec("500"), dec("500"), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, got.IsZero(), "exactly zero is allowed")

	_, err = ComputeNetDisbursement(dec("1000"), dec("500"), dec("500"), dec("0.01"))
	assertKind(t, err, domain.KindNegativeDisbursement)
}

func TestComputeNetDisbursement_MonotonicInDeductions(t *testing.T) {
	t.Parallel()

	amount := dec("20000")
	base, err := ComputeNetDisbursement(amount, dec("1000"), dec("200"), dec("300"))
	require.NoError(t, err)

	for _, step := range []string{"0.01", "1", "150.5"} {
		s := dec(step)

		withFee, err := ComputeNetDisbursement(amount, dec("1000").Add(s), dec("200"), dec("300"))
		require.NoError(t, err)
		assert.True(t, withFee.LessThan(base))

		withLegal, err := ComputeNetDisbursement(amount, dec("1000"), dec("200").Add(s), dec("300"))
		require.NoError(t, err)
		assert.True(t, withLegal.LessThan(base))

		withBalance, err := ComputeNetDisbursement(amount, dec("1000"), dec("200"), dec("300").Add(s))
		require.NoError(t, err)
		assert.True(t, withBalance.LessThan(base))
	}
}

func TestPolicy_Compute(t *testing.T) {
	t.Parallel()

	terms := domain.LoanTerms{
		RequestedAmount:           dec("50000"),
		AnnualInterestRatePercent: dec("12"),
		TenureMonths:              24,
		ExistingBalance:           dec("1000"),
	}

	got, err := DefaultPolicy().Compute(terms, dec("120000"), dec("250"))
	require.NoError(t, err)

	assert.True(t, dec("2500").Equal(got.ProcessingFee))
	assert.True(t, dec("250").Equal(got.LegalFee))
	assert.True(t, dec("2353.67").Equal(got.MonthlyInstallment), "got %s", got.MonthlyInstallment)
	assert.True(t, dec("46250").Equal(got.NetDisbursement))
	assert.True(t, dec("60000").Equal(got.QualificationCap))
}

func TestPolicy_Compute_FailsFast(t *testing.T) {
	t.Parallel()

	valid := domain.LoanTerms{
		RequestedAmount:           dec("5000"),
		AnnualInterestRatePercent: dec("10"),
		TenureMonths:              12,
	}

	tests := []struct {
		name      string
		mutate    func(*domain.LoanTerms)
		netSalary string
		legalFee  string
		kind      domain.ErrorKind
	}{
		{name: "zero amount", mutate: func(t *domain.LoanTerms) { t.RequestedAmount = decimal.Zero }, netSalary: "1000", legalFee: "0", kind: domain.KindInvalidAmount},
		{name: "tenure above maximum", mutate: func(t *domain.LoanTerms) { t.TenureMonths = 361 }, netSalary: "1000", legalFee: "0", kind: domain.KindInvalidTerm},
		{name: "zero tenure", mutate: func(t *domain.LoanTerms) { t.TenureMonths = 0 }, netSalary: "1000", legalFee: "0", kind: domain.KindInvalidTerm},
		{name: "negative balance", mutate: func(t *domain.LoanTerms) { t.ExistingBalance = dec("-1") }, netSalary: "1000", legalFee: "0", kind: domain.KindInvalidAmount},
		{name: "negative legal fee", mutate: func(*domain.LoanTerms) {}, netSalary: "1000", legalFee: "-5", kind: domain.KindInvalidAmount},
		{name: "no income", mutate: func(*domain.LoanTerms) {}, netSalary: "0", legalFee: "0", kind: domain.KindInvalidIncome},
		{name: "deductions exceed amount", mutate: func(t *domain.LoanTerms) { t.ExistingBalance = dec("4600") }, netSalary: "1000", legalFee: "0", kind: domain.KindNegativeDisbursement},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			terms := valid
			tt.mutate(&terms)

			got, err := DefaultPolicy().Compute(terms, dec(tt.netSalary), dec(tt.legalFee))
			assertKind(t, err, tt.kind)
			assert.Equal(t, domain.ComputedLoanFinancials{}, got)
		})
	}
}

func TestPolicy_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.QualificationRatio = dec("1.5")
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.NPLThresholdDays = 0
	assert.Error(t, p.Validate())
}

func TestTotals(t *testing.T) {
	t.Parallel()

	total, interest := Totals(dec("10661.85"), dec("120000"), 12)
	assert.True(t, dec("127942.20").Equal(total))
	assert.True(t, dec("7942.20").Equal(interest))
}
