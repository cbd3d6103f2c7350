package lifecycle

import (
	"fmt"

	"loan-engine/domain"
)

type edge struct {
	from, to domain.LoanStatus
}

func (m *Machine) guard(current, requested domain.LoanStatus, tc TransitionContext) error {
	switch (edge{current, requested}) {
	case edge{domain.StatusUnderReview, domain.StatusApproved}:
		return m.guardApprove(tc)
	case edge{domain.StatusApproved, domain.StatusDisbursed}:
		return m.guardDisburse(tc)
	case edge{domain.StatusActive, domain.StatusNPL}:
		return m.guardNPL(tc)
	case edge{domain.StatusNPL, domain.StatusActive}:
		return guardCure(tc)
	}
	return nil
}

func (m *Machine) guardApprove(tc TransitionContext) error {
	if tc.Financials == nil {
		return domain.NewDomainError(domain.KindFinancialsNotComputed, "financials", "financials must be computed before approval")
	}

	approved := tc.approvedAmount()
	if !approved.IsPositive() {
		return domain.NewDomainError(domain.KindInvalidAmount, "approved_amount", "approved amount must be greater than zero")
	}

	if approved.GreaterThan(tc.QualificationCap) {
		return domain.NewDomainError(
			domain.KindExceedsQualificationCap,
			"approved_amount",
			fmt.Sprintf("approved=%s cap=%s", approved.StringFixed(2), tc.QualificationCap.StringFixed(2)),
		)
	}

	return nil
}

// guardDisburse recomputes net disbursement from the current terms rather
// than trusting the stored financials.
func (m *Machine) guardDisburse(tc TransitionContext) error {
	amount := tc.approvedAmount()

	fee, err := m.policy.ComputeProcessingFee(amount)
	if err != nil {
		return err
	}

	if _, err := m.policy.ComputeNetDisbursement(amount, fee, tc.LegalFee, tc.Terms.ExistingBalance); err != nil {
		return err
	}

	if !tc.DocumentsComplete {
		return domain.NewDomainError(domain.KindPreconditionNotMet, "documents_complete", "required documents are missing")
	}

	return nil
}

func (m *Machine) guardNPL(tc TransitionContext) error {
	if tc.DaysOverdue < m.policy.NPLThresholdDays {
		return domain.NewDomainError(
			domain.KindPreconditionNotMet,
			"days_overdue",
			fmt.Sprintf("%d days overdue, threshold is %d", tc.DaysOverdue, m.policy.NPLThresholdDays),
		)
	}
	return nil
}

func guardCure(tc TransitionContext) error {
	if !tc.PaymentCleared {
		return domain.NewDomainError(domain.KindPreconditionNotMet, "payment_cleared", "overdue amount has not been cleared")
	}
	return nil
}
