package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"loan-engine/domain"
	"loan-engine/lifecycle"
	"loan-engine/metrics"
	"loan-engine/repository"
)

// TransitionRequest asks for a status change. DaysOverdue and PaymentCleared
// are derived from the repayment record when left nil.
type TransitionRequest struct {
	To                domain.LoanStatus `json:"to"`
	Actor             string            `json:"actor"`
	Reason            string            `json:"reason"`
	ApprovedAmount    *decimal.Decimal  `json:"approved_amount,omitempty"`
	DocumentsComplete bool              `json:"documents_complete"`
	DaysOverdue       *int              `json:"days_overdue,omitempty"`
	PaymentCleared    *bool             `json:"payment_cleared,omitempty"`
}

// Transition loads the loan, runs the lifecycle machine and saves the new
// status together with its audit entry. A concurrent change to the same loan
// surfaces as repository.ErrVersionConflict.
func (s *LoanService) Transition(ctx context.Context, id string, req TransitionRequest) (*domain.LoanApplication, error) {
	app, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	tc := lifecycle.TransitionContext{
		LoanID:            app.ID,
		ApprovedAmount:    app.ApprovedAmount,
		Financials:        app.Financials,
		Terms:             app.Terms,
		LegalFee:          app.LegalFee,
		DocumentsComplete: req.DocumentsComplete,
		Actor:             actorOr(req.Actor, systemActor),
		Reason:            req.Reason,
		At:                now,
	}
	if app.Financials != nil {
		tc.QualificationCap = app.Financials.QualificationCap
	}
	// Only the approval decision may set the amount; afterwards it is frozen.
	if app.Status == domain.StatusUnderReview && req.To == domain.StatusApproved && req.ApprovedAmount != nil {
		tc.ApprovedAmount = req.ApprovedAmount
	}

	if err := s.fillRepaymentFacts(ctx, app, req, &tc, now); err != nil {
		return nil, err
	}

	result, err := s.machine.Apply(app.Status, req.To, tc)
	if err != nil {
		metrics.RecordTransition(string(app.Status), string(req.To), string(domain.KindOf(err)))
		s.logger.Info("transition refused",
			zap.String("loan_id", id),
			zap.String("from", string(app.Status)),
			zap.String("to", string(req.To)),
			zap.Error(err),
		)
		return nil, err
	}

	if err := s.applyEffects(app, result.Status, tc, now); err != nil {
		return nil, err
	}
	from := app.Status
	app.Status = result.Status

	if err := s.repo.Save(ctx, app, &result.Entry); err != nil {
		outcome := "error"
		if errors.Is(err, repository.ErrVersionConflict) {
			outcome = "conflict"
		}
		metrics.RecordTransition(string(from), string(req.To), outcome)
		return nil, err
	}

	metrics.RecordTransition(string(from), string(result.Status), "ok")
	s.logger.Info("loan transitioned",
		zap.String("loan_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(result.Status)),
		zap.String("actor", tc.Actor),
	)
	return app, nil
}

// applyEffects stamps the milestone time of the new status. Approval pins the
// approved amount and recomputes financials on it.
func (s *LoanService) applyEffects(app *domain.LoanApplication, to domain.LoanStatus, tc lifecycle.TransitionContext, now time.Time) error {
	switch to {
	case domain.StatusUnderReview:
		app.ReviewedAt = &now
	case domain.StatusApproved:
		amount := app.Terms.RequestedAmount
		if tc.ApprovedAmount != nil {
			amount = *tc.ApprovedAmount
		}
		fin, err := s.policy.ComputeWithAmount(amount, app.Terms, app.NetSalary, app.LegalFee)
		if err != nil {
			return err
		}
		app.ApprovedAmount = &amount
		app.Financials = &fin
		app.ApprovedAt = &now
	case domain.StatusDisbursed:
		app.DisbursedAt = &now
	case domain.StatusClosed:
		app.ClosedAt = &now
	}
	return nil
}

// fillRepaymentFacts derives overdue days and clearance from the schedule and
// recorded repayments unless the caller supplied them.
func (s *LoanService) fillRepaymentFacts(ctx context.Context, app *domain.LoanApplication, req TransitionRequest, tc *lifecycle.TransitionContext, now time.Time) error {
	if req.DaysOverdue != nil {
		tc.DaysOverdue = *req.DaysOverdue
	}
	if req.PaymentCleared != nil {
		tc.PaymentCleared = *req.PaymentCleared
	}
	if req.DaysOverdue != nil && req.PaymentCleared != nil {
		return nil
	}
	if app.Status != domain.StatusActive && app.Status != domain.StatusNPL {
		return nil
	}

	stmt, err := s.statementFor(ctx, app, now)
	if err != nil {
		return err
	}
	if req.DaysOverdue == nil {
		tc.DaysOverdue = stmt.DaysOverdue
	}
	if req.PaymentCleared == nil {
		tc.PaymentCleared = stmt.PaymentCleared
	}
	return nil
}
