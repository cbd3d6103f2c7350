package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleEntry is one row of an amortization schedule.
type ScheduleEntry struct {
	Period      int             `json:"period"`
	DueDate     time.Time       `json:"due_date"`
	Installment decimal.Decimal `json:"installment"`
	Principal   decimal.Decimal `json:"principal"`
	Interest    decimal.Decimal `json:"interest"`
	Balance     decimal.Decimal `json:"balance"`
}

// RepaymentStatement reconciles recorded repayments against the schedule at
// a point in time.
type RepaymentStatement struct {
	AsOf            time.Time       `json:"as_of"`
	InstallmentsDue int             `json:"installments_due"`
	AmountDue       decimal.Decimal `json:"amount_due"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	OverdueAmount   decimal.Decimal `json:"overdue_amount"`
	DaysOverdue     int             `json:"days_overdue"`
	PaymentCleared  bool            `json:"payment_cleared"`
	Outstanding     decimal.Decimal `json:"outstanding"`
}
