package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"loan-engine/domain"
	"loan-engine/financial"
)

type RepaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	Reference string          `json:"reference,omitempty"`
}

// RecordRepayment appends a payment to an ACTIVE or NPL loan.
func (s *LoanService) RecordRepayment(ctx context.Context, loanID string, req RepaymentRequest) (domain.Repayment, error) {
	if !req.Amount.IsPositive() {
		return domain.Repayment{}, domain.NewDomainError(domain.KindInvalidAmount, "amount", "repayment must be greater than zero")
	}
	if len(req.Reference) > MaxReferenceLength {
		return domain.Repayment{}, domain.NewDomainError(domain.KindInvalidInput, "reference", "reference is too long")
	}

	app, err := s.repo.Load(ctx, loanID)
	if err != nil {
		return domain.Repayment{}, err
	}
	if app.Status != domain.StatusActive && app.Status != domain.StatusNPL {
		return domain.Repayment{}, domain.NewDomainError(domain.KindPreconditionNotMet, "status",
			fmt.Sprintf("repayments are accepted only for active loans, got %s", app.Status))
	}

	paidAt := s.now().UTC()
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}

	rep := domain.Repayment{
		ID:        uuid.NewString(),
		LoanID:    loanID,
		Amount:    req.Amount,
		PaidAt:    paidAt,
		Reference: strings.TrimSpace(req.Reference),
	}
	if err := s.repo.AppendRepayment(ctx, rep, app.Version); err != nil {
		return domain.Repayment{}, err
	}

	s.logger.Info("repayment recorded",
		zap.String("loan_id", loanID),
		zap.String("amount", req.Amount.StringFixed(2)),
	)
	return rep, nil
}

// Schedule returns the amortization table of the loan. Before disbursement
// the first due date is projected from now.
func (s *LoanService) Schedule(ctx context.Context, loanID string) ([]domain.ScheduleEntry, error) {
	app, err := s.repo.Load(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return s.scheduleFor(app, s.now().UTC())
}

func (s *LoanService) scheduleFor(app *domain.LoanApplication, now time.Time) ([]domain.ScheduleEntry, error) {
	start := now
	if app.DisbursedAt != nil {
		start = *app.DisbursedAt
	}
	return s.policy.BuildSchedule(
		app.PrincipalAmount(),
		app.Terms.AnnualInterestRatePercent,
		app.Terms.TenureMonths,
		start.AddDate(0, 1, 0),
	)
}

// Statement reconciles a disbursed loan's schedule against its repayments.
func (s *LoanService) Statement(ctx context.Context, loanID string, asOf time.Time) (domain.RepaymentStatement, error) {
	app, err := s.repo.Load(ctx, loanID)
	if err != nil {
		return domain.RepaymentStatement{}, err
	}
	if asOf.IsZero() {
		asOf = s.now().UTC()
	}
	return s.statementFor(ctx, app, asOf)
}

func (s *LoanService) statementFor(ctx context.Context, app *domain.LoanApplication, asOf time.Time) (domain.RepaymentStatement, error) {
	if app.DisbursedAt == nil {
		return domain.RepaymentStatement{}, domain.NewDomainError(domain.KindPreconditionNotMet, "status",
			"loan has not been disbursed")
	}

	schedule, err := s.scheduleFor(app, asOf)
	if err != nil {
		return domain.RepaymentStatement{}, err
	}
	repayments, err := s.repo.Repayments(ctx, app.ID)
	if err != nil {
		return domain.RepaymentStatement{}, err
	}
	return financial.Reconcile(schedule, repayments, asOf), nil
}

type GuarantorRequest struct {
	Name         string `json:"name"`
	NationalID   string `json:"national_id"`
	Phone        string `json:"phone,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

// AddGuarantor attaches a guarantor while the loan is still being decided.
func (s *LoanService) AddGuarantor(ctx context.Context, loanID string, req GuarantorRequest) (domain.Guarantor, error) {
	name := strings.TrimSpace(req.Name)
	nationalID := strings.TrimSpace(req.NationalID)
	if name == "" || nationalID == "" {
		return domain.Guarantor{}, domain.NewDomainError(domain.KindInvalidInput, "guarantor", "name and national id are required")
	}

	app, err := s.repo.Load(ctx, loanID)
	if err != nil {
		return domain.Guarantor{}, err
	}
	if app.Status.IsTerminal() {
		return domain.Guarantor{}, domain.NewDomainError(domain.KindPreconditionNotMet, "status",
			fmt.Sprintf("loan in status %s cannot take guarantors", app.Status))
	}

	g := domain.Guarantor{
		ID:           uuid.NewString(),
		LoanID:       loanID,
		Name:         name,
		NationalID:   nationalID,
		Phone:        strings.TrimSpace(req.Phone),
		Relationship: strings.TrimSpace(req.Relationship),
	}
	if err := s.repo.AddGuarantor(ctx, g); err != nil {
		return domain.Guarantor{}, err
	}
	return g, nil
}

func (s *LoanService) Guarantors(ctx context.Context, loanID string) ([]domain.Guarantor, error) {
	return s.repo.Guarantors(ctx, loanID)
}
