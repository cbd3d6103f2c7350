package financial

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"loan-engine/domain"
)

const hoursPerDay = 24

// BuildSchedule lays out the amortization of principal month by month. Each
// row pays the period interest first and the rest of the installment against
// principal; the final row absorbs rounding residue so the balance closes at
// exactly zero.
func (p Policy) BuildSchedule(principal, annualRatePercent decimal.Decimal, months int, firstDue time.Time) ([]domain.ScheduleEntry, error) {
	if months > p.MaxTenureMonths {
		return nil, domain.NewDomainError(domain.KindInvalidTerm, "tenure_months",
			fmt.Sprintf("tenure exceeds the maximum of %d months", p.MaxTenureMonths))
	}

	installment, err := p.ComputeMonthlyInstallment(principal, annualRatePercent, months)
	if err != nil {
		return nil, err
	}

	r := monthlyRate(annualRatePercent)
	balance := principal
	entries := make([]domain.ScheduleEntry, 0, months)

	for period := 1; period <= months; period++ {
		interest := RoundMoney(balance.Mul(r))
		principalPart := installment.Sub(interest)

		if period == months || principalPart.GreaterThan(balance) {
			principalPart = balance
		}
		if principalPart.IsNegative() {
			principalPart = decimal.Zero
		}

		balance = balance.Sub(principalPart)

		entries = append(entries, domain.ScheduleEntry{
			Period:      period,
			DueDate:     firstDue.AddDate(0, period-1, 0),
			Installment: principalPart.Add(interest),
			Principal:   principalPart,
			Interest:    interest,
			Balance:     balance,
		})
	}

	return entries, nil
}

// Reconcile compares what the schedule says is due by asOf with the
// repayments received by then.
func Reconcile(schedule []domain.ScheduleEntry, repayments []domain.Repayment, asOf time.Time) domain.RepaymentStatement {
	paid := decimal.Zero
	for _, r := range repayments {
		if !r.PaidAt.After(asOf) {
			paid = paid.Add(r.Amount)
		}
	}

	rows := make([]domain.ScheduleEntry, len(schedule))
	copy(rows, schedule)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].DueDate.Before(rows[j].DueDate)
	})

	stmt := domain.RepaymentStatement{
		AsOf:       asOf,
		AmountDue:  decimal.Zero,
		AmountPaid: RoundMoney(paid),
	}

	total := decimal.Zero
	var oldestUnpaid *time.Time

	for i := range rows {
		row := rows[i]
		total = total.Add(row.Installment)

		if row.DueDate.After(asOf) {
			continue
		}

		stmt.InstallmentsDue++
		stmt.AmountDue = stmt.AmountDue.Add(row.Installment)

		if oldestUnpaid == nil && stmt.AmountDue.GreaterThan(paid) {
			due := row.DueDate
			oldestUnpaid = &due
		}
	}

	overdue := stmt.AmountDue.Sub(paid)
	if overdue.IsNegative() {
		overdue = decimal.Zero
	}
	stmt.OverdueAmount = RoundMoney(overdue)
	stmt.PaymentCleared = stmt.OverdueAmount.IsZero()

	if oldestUnpaid != nil && !stmt.PaymentCleared {
		stmt.DaysOverdue = int(asOf.Sub(*oldestUnpaid).Hours() / hoursPerDay)
	}

	outstanding := total.Sub(paid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	stmt.Outstanding = RoundMoney(outstanding)

	return stmt
}
