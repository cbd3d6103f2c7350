package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanTerms are the applicant-supplied terms of a loan request.
type LoanTerms struct {
	RequestedAmount           decimal.Decimal `json:"requested_amount"`
	AnnualInterestRatePercent decimal.Decimal `json:"annual_interest_rate_percent"`
	TenureMonths              int             `json:"tenure_months"`
	ExistingBalance           decimal.Decimal `json:"existing_balance"`
}

// ComputedLoanFinancials is derived from LoanTerms and the applicant's net
// salary. It is replaced as a whole whenever the terms change.
type ComputedLoanFinancials struct {
	ProcessingFee      decimal.Decimal `json:"processing_fee"`
	LegalFee           decimal.Decimal `json:"legal_fee"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment"`
	NetDisbursement    decimal.Decimal `json:"net_disbursement"`
	QualificationCap   decimal.Decimal `json:"qualification_cap"`
}

// LoanApplication is the aggregate persisted by the repository.
type LoanApplication struct {
	ID             string                  `json:"id"`
	ApplicantID    string                  `json:"applicant_id"`
	Terms          LoanTerms               `json:"terms"`
	Financials     *ComputedLoanFinancials `json:"financials,omitempty"`
	ApprovedAmount *decimal.Decimal        `json:"approved_amount,omitempty"`
	NetSalary      decimal.Decimal         `json:"net_salary"`
	LegalFee       decimal.Decimal         `json:"legal_fee"`
	Status         LoanStatus              `json:"status"`
	History        []AuditEntry            `json:"history"`
	AppliedAt      time.Time               `json:"applied_at"`
	ReviewedAt     *time.Time              `json:"reviewed_at,omitempty"`
	ApprovedAt     *time.Time              `json:"approved_at,omitempty"`
	DisbursedAt    *time.Time              `json:"disbursed_at,omitempty"`
	ClosedAt       *time.Time              `json:"closed_at,omitempty"`
	Version        int64                   `json:"version"`
}

// PrincipalAmount is the amount the loan is (or would be) disbursed on: the
// approved amount once set, the requested amount before that.
func (l *LoanApplication) PrincipalAmount() decimal.Decimal {
	if l.ApprovedAmount != nil {
		return *l.ApprovedAmount
	}
	return l.Terms.RequestedAmount
}

// TermsFrozen reports whether terms and financials can no longer change.
func (l *LoanApplication) TermsFrozen() bool {
	switch l.Status {
	case StatusPending, StatusUnderReview:
		return false
	}
	return true
}

// Repayment is an append-only payment record against a loan.
type Repayment struct {
	ID        string          `json:"id"`
	LoanID    string          `json:"loan_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
	Reference string          `json:"reference,omitempty"`
}

// Guarantor belongs to a loan and is removed together with it.
type Guarantor struct {
	ID           string `json:"id"`
	LoanID       string `json:"loan_id"`
	Name         string `json:"name"`
	NationalID   string `json:"national_id"`
	Phone        string `json:"phone,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

// LoanInput is the stateless calculator request.
type LoanInput struct {
	Terms     LoanTerms       `json:"terms"`
	NetSalary decimal.Decimal `json:"net_salary"`
	LegalFee  decimal.Decimal `json:"legal_fee"`
}

// LoanResult is the calculator response.
type LoanResult struct {
	Financials    ComputedLoanFinancials `json:"financials"`
	TotalPayment  decimal.Decimal        `json:"total_payment"`
	TotalInterest decimal.Decimal        `json:"total_interest"`
}
