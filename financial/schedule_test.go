package financial

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-engine/domain"
)

var firstDue = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func TestBuildSchedule_ClosesAtZero(t *testing.T) {
	t.Parallel()

	tests := []struct {
		principal string
		rate      string
		months    int
	}{
		{principal: "120000", rate: "12", months: 12},
		{principal: "10000", rate: "12", months: 24},
		{principal: "1000", rate: "0", months: 3},
		{principal: "60000", rate: "18", months: 36},
		{principal: "777.77", rate: "7.25", months: 7},
	}

	for _, tt := range tests {
		schedule, err := DefaultPolicy().BuildSchedule(dec(tt.principal), dec(tt.rate), tt.months, firstDue)
		require.NoError(t, err)
		require.Len(t, schedule, tt.months)

		principalSum := decimal.Zero
		for i, row := range schedule {
			assert.Equal(t, i+1, row.Period)
			assert.True(t, row.Installment.Equal(row.Principal.Add(row.Interest)))
			assert.False(t, row.Balance.IsNegative())
			principalSum = principalSum.Add(row.Principal)
		}

		last := schedule[len(schedule)-1]
		assert.True(t, last.Balance.IsZero(), "balance %s", last.Balance)
		assert.True(t, dec(tt.principal).Equal(principalSum), "principal sum %s", principalSum)
	}
}

func TestBuildSchedule_RowsUseInstallment(t *testing.T) {
	t.Parallel()

	schedule, err := DefaultPolicy().BuildSchedule(dec("120000"), dec("12"), 12, firstDue)
	require.NoError(t, err)

	first := schedule[0]
	assert.True(t, dec("10661.85").Equal(first.Installment))
	assert.True(t, dec("1200").Equal(first.Interest))
	assert.True(t, dec("9461.85").Equal(first.Principal))
	assert.Equal(t, firstDue, first.DueDate)
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), schedule[10].DueDate)
}

func TestBuildSchedule_InvalidTerm(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()

	_, err := p.BuildSchedule(dec("1000"), dec("5"), 0, firstDue)
	assertKind(t, err, domain.KindInvalidTerm)

	schedule, err := p.BuildSchedule(dec("1000"), dec("12"), p.MaxTenureMonths+1, firstDue)
	assertKind(t, err, domain.KindInvalidTerm)
	assert.Nil(t, schedule)

	_, err = p.BuildSchedule(dec("1000"), dec("12"), 2000000000, firstDue)
	assertKind(t, err, domain.KindInvalidTerm)

	schedule, err = p.BuildSchedule(dec("1000"), dec("12"), p.MaxTenureMonths, firstDue)
	require.NoError(t, err)
	assert.Len(t, schedule, p.MaxTenureMonths)
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	schedule, err := DefaultPolicy().BuildSchedule(dec("1200"), decimal.Zero, 12, firstDue)
	require.NoError(t, err)

	t.Run("nothing due yet", func(t *testing.T) {
		t.Parallel()

		stmt := Reconcile(schedule, nil, firstDue.Add(-time.Hour))
		assert.Equal(t, 0, stmt.InstallmentsDue)
		assert.True(t, stmt.PaymentCleared)
		assert.Equal(t, 0, stmt.DaysOverdue)
		assert.True(t, dec("1200").Equal(stmt.Outstanding))
	})

	t.Run("paid in full to date", func(t *testing.T) {
		t.Parallel()

		repayments := []domain.Repayment{
			{Amount: dec("100"), PaidAt: firstDue},
			{Amount: dec("100"), PaidAt: firstDue.AddDate(0, 1, 0)},
		}

		stmt := Reconcile(schedule, repayments, firstDue.AddDate(0, 1, 10))
		assert.Equal(t, 2, stmt.InstallmentsDue)
		assert.True(t, dec("200").Equal(stmt.AmountDue))
		assert.True(t, stmt.OverdueAmount.IsZero())
		assert.True(t, stmt.PaymentCleared)
		assert.True(t, dec("1000").Equal(stmt.Outstanding))
	})

	t.Run("days counted from oldest unpaid installment", func(t *testing.T) {
		t.Parallel()

		repayments := []domain.Repayment{{Amount: dec("100"), PaidAt: firstDue}}
		asOf := firstDue.AddDate(0, 3, 0)

		stmt := Reconcile(schedule, repayments, asOf)
		assert.Equal(t, 4, stmt.InstallmentsDue)
		assert.True(t, dec("300").Equal(stmt.OverdueAmount))
		assert.False(t, stmt.PaymentCleared)

		oldest := firstDue.AddDate(0, 1, 0)
		assert.Equal(t, int(asOf.Sub(oldest).Hours()/24), stmt.DaysOverdue)
	})

	t.Run("payments after asOf are ignored", func(t *testing.T) {
		t.Parallel()

		repayments := []domain.Repayment{{Amount: dec("100"), PaidAt: firstDue.AddDate(0, 0, 5)}}

		stmt := Reconcile(schedule, repayments, firstDue.AddDate(0, 0, 1))
		assert.True(t, stmt.AmountPaid.IsZero())
		assert.Equal(t, 1, stmt.DaysOverdue)
	})
}
