package lifecycle

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"loan-engine/domain"
	"loan-engine/financial"
)

var transitions = map[domain.LoanStatus][]domain.LoanStatus{
	domain.StatusPending:     {domain.StatusUnderReview, domain.StatusRejected},
	domain.StatusUnderReview: {domain.StatusApproved, domain.StatusRejected},
	domain.StatusApproved:    {domain.StatusDisbursed, domain.StatusRejected},
	domain.StatusDisbursed:   {domain.StatusActive},
	domain.StatusActive:      {domain.StatusClosed, domain.StatusNPL},
	domain.StatusNPL:         {domain.StatusActive, domain.StatusClosed},
	domain.StatusRejected:    nil,
	domain.StatusClosed:      nil,
}

// TransitionContext carries every fact a guard may need. The machine never
// reads a clock, a document store or the database itself.
type TransitionContext struct {
	LoanID string

	// ApprovedAmount defaults to Terms.RequestedAmount when nil.
	ApprovedAmount   *decimal.Decimal
	QualificationCap decimal.Decimal
	Financials       *domain.ComputedLoanFinancials
	Terms            domain.LoanTerms
	LegalFee         decimal.Decimal

	DocumentsComplete bool
	DaysOverdue       int
	PaymentCleared    bool

	Actor  string
	Reason string
	At     time.Time
}

func (c TransitionContext) approvedAmount() decimal.Decimal {
	if c.ApprovedAmount != nil {
		return *c.ApprovedAmount
	}
	return c.Terms.RequestedAmount
}

// Result is the outcome of an accepted transition.
type Result struct {
	Status domain.LoanStatus
	Entry  domain.AuditEntry
}

// Machine validates status transitions under a policy. The zero value is not
// usable; build it with New.
//
// Machine holds no mutable state and is safe for concurrent use. Callers must
// run load, Apply and save in one atomic unit to avoid lost updates.
type Machine struct {
	policy financial.Policy
}

// New creates a machine governed by policy.
func New(policy financial.Policy) *Machine {
	return &Machine{policy: policy}
}

// AllowedTransitions lists the statuses reachable from current.
func AllowedTransitions(current domain.LoanStatus) []domain.LoanStatus {
	next := transitions[current]
	out := make([]domain.LoanStatus, len(next))
	copy(out, next)
	return out
}

// IsAllowed reports whether the edge exists in the transition table.
func IsAllowed(current, requested domain.LoanStatus) bool {
	for _, s := range transitions[current] {
		if s == requested {
			return true
		}
	}
	return false
}

// Apply validates a single transition and returns the new status with its
// audit entry. It never mutates its inputs.
func (m *Machine) Apply(current, requested domain.LoanStatus, tc TransitionContext) (Result, error) {
	if !IsAllowed(current, requested) {
		return Result{}, domain.NewDomainError(
			domain.KindIllegalTransition,
			"status",
			fmt.Sprintf("cannot move from %s to %s", current, requested),
		)
	}

	if err := m.guard(current, requested, tc); err != nil {
		return Result{}, err
	}

	return Result{
		Status: requested,
		Entry: domain.AuditEntry{
			LoanID: tc.LoanID,
			From:   current,
			To:     requested,
			Actor:  tc.Actor,
			Reason: tc.Reason,
			At:     tc.At,
		},
	}, nil
}

// ApplyTransition uses the default policy.
func ApplyTransition(current, requested domain.LoanStatus, tc TransitionContext) (Result, error) {
	return New(financial.DefaultPolicy()).Apply(current, requested, tc)
}
