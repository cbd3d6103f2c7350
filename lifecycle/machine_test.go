package lifecycle

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-engine/domain"
	"loan-engine/financial"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()

	require.Error(t, err)
	assert.Equal(t, kind, domain.KindOf(err), "unexpected error: %v", err)
}

// satisfied returns a context under which every guard passes.
func satisfied() TransitionContext {
	return TransitionContext{
		LoanID:           "loan-1",
		ApprovedAmount:   decPtr("40000"),
		QualificationCap: dec("50000"),
		Financials:       &domain.ComputedLoanFinancials{},
		Terms: domain.LoanTerms{
			RequestedAmount:           dec("40000"),
			AnnualInterestRatePercent: dec("12"),
			TenureMonths:              12,
		},
		LegalFee:          dec("100"),
		DocumentsComplete: true,
		DaysOverdue:       120,
		PaymentCleared:    true,
		Actor:             "officer-7",
		Reason:            "ok",
		At:                time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestApply_AllowedEdges(t *testing.T) {
	t.Parallel()

	m := New(financial.DefaultPolicy())

	for from, targets := range transitions {
		for _, to := range targets {
			res, err := m.Apply(from, to, satisfied())
			require.NoError(t, err, "%s -> %s", from, to)
			assert.Equal(t, to, res.Status)
			assert.Equal(t, from, res.Entry.From)
			assert.Equal(t, to, res.Entry.To)
			assert.Equal(t, "loan-1", res.Entry.LoanID)
			assert.Equal(t, "officer-7", res.Entry.Actor)
			assert.Equal(t, satisfied().At, res.Entry.At)
		}
	}
}

func TestApply_EveryPairOutsideTableIsIllegal(t *testing.T) {
	t.Parallel()

	m := New(financial.DefaultPolicy())

	for _, from := range domain.AllStatuses {
		for _, to := range domain.AllStatuses {
			if IsAllowed(from, to) {
				continue
			}

			_, err := m.Apply(from, to, satisfied())
			assertKind(t, err, domain.KindIllegalTransition)
			assert.Contains(t, err.Error(), string(from))
			assert.Contains(t, err.Error(), string(to))
		}
	}
}

func TestApply_TerminalStatesRejectEverything(t *testing.T) {
	t.Parallel()

	for _, terminal := range []domain.LoanStatus{domain.StatusClosed, domain.StatusRejected} {
		assert.Empty(t, AllowedTransitions(terminal))

		for _, to := range domain.AllStatuses {
			_, err := ApplyTransition(terminal, to, satisfied())
			assertKind(t, err, domain.KindIllegalTransition)
		}
	}
}

func TestApply_NoSelfLoops(t *testing.T) {
	t.Parallel()

	for _, st := range domain.AllStatuses {
		_, err := ApplyTransition(st, st, satisfied())
		assertKind(t, err, domain.KindIllegalTransition)
	}
}

func TestApply_Approve(t *testing.T) {
	t.Parallel()

	t.Run("exceeds qualification cap", func(t *testing.T) {
		t.Parallel()

		tc := satisfied()
		tc.ApprovedAmount = decPtr("60000")
		tc.QualificationCap = dec("50000")

		_, err := ApplyTransition(domain.StatusUnderReview, domain.StatusApproved, tc)
		assertKind(t, err, domain.KindExceedsQualificationCap)
	})

	t.Run("equal to cap is allowed", func(t *testing.T) {
		t.Parallel()

		tc := satisfied()
		tc.ApprovedAmount = decPtr("50000")

		res, err := ApplyTransition(domain.StatusUnderReview, domain.StatusApproved, tc)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, res.Status)
	})

	t.Run("financials missing", func(t *testing.T) {
		t.Parallel()

		tc := satisfied()
		tc.Financials = nil

		_, err := ApplyTransition(domain.StatusUnderReview, domain.StatusApproved, tc)
		assertKind(t, err, domain.KindFinancialsNotComputed)
	})

	t.Run("defaults to requested amount", func(t *testing.T) {
		t.Parallel()

		tc := satisfied()
		tc.ApprovedAmount = nil
		tc.Terms.RequestedAmount = dec("50000.01")

		_, err := ApplyTransition(domain.StatusUnderReview, domain.StatusApproved, tc)
		assertKind(t, err, domain.KindExceedsQualificationCap)
	})
}

func TestApply_Disburse(t *testing.T) {
	t.Parallel()

	t.Run("documents missing", func(t *testing.T) {
		t.Parallel()

		tc := satisfied()
		tc.DocumentsComplete = false

		_, err := ApplyTransition(domain.StatusApproved, domain.StatusDisbursed, tc)
		assertKind(t, err, domain.KindPreconditionNotMet)
	})

	t.Run("recomputed net disbursement negative", func(t *testing.T) {
		t.Parallel()

		tc := satisfied()
		tc.ApprovedAmount = decPtr("5000")
		tc.Terms.ExistingBalance = dec("4500")

		_, err := ApplyTransition(domain.StatusApproved, domain.StatusDisbursed, tc)
		assertKind(t, err, domain.KindNegativeDisbursement)
	})
}

func TestApply_NPL(t *testing.T) {
	t.Parallel()

	tc := satisfied()
	tc.DaysOverdue = 45

	_, err := ApplyTransition(domain.StatusActive, domain.StatusNPL, tc)
	assertKind(t, err, domain.KindPreconditionNotMet)

	tc.DaysOverdue = 95
	res, err := ApplyTransition(domain.StatusActive, domain.StatusNPL, tc)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNPL, res.Status)

	tc.DaysOverdue = 90
	_, err = ApplyTransition(domain.StatusActive, domain.StatusNPL, tc)
	require.NoError(t, err)
}

func TestApply_NPLThresholdFromPolicy(t *testing.T) {
	t.Parallel()

	policy := financial.DefaultPolicy()
	policy.NPLThresholdDays = 30

	tc := satisfied()
	tc.DaysOverdue = 45

	_, err := New(policy).Apply(domain.StatusActive, domain.StatusNPL, tc)
	require.NoError(t, err)
}

func TestApply_Cure(t *testing.T) {
	t.Parallel()

	tc := satisfied()
	tc.PaymentCleared = false

	_, err := ApplyTransition(domain.StatusNPL, domain.StatusActive, tc)
	assertKind(t, err, domain.KindPreconditionNotMet)

	// Write-off does not require the arrears to be cleared.
	_, err = ApplyTransition(domain.StatusNPL, domain.StatusClosed, tc)
	require.NoError(t, err)
}

func TestApply_ConcurrentUse(t *testing.T) {
	t.Parallel()

	m := New(financial.DefaultPolicy())
	done := make(chan error, 32)

	for i := 0; i < cap(done); i++ {
		go func() {
			_, err := m.Apply(domain.StatusPending, domain.StatusUnderReview, satisfied())
			done <- err
		}()
	}

	for i := 0; i < cap(done); i++ {
		require.NoError(t, <-done)
	}
}

func TestAllowedTransitions_ReturnsCopy(t *testing.T) {
	t.Parallel()

	next := AllowedTransitions(domain.StatusPending)
	require.Len(t, next, 2)
	next[0] = domain.StatusClosed

	assert.Equal(t, domain.StatusUnderReview, AllowedTransitions(domain.StatusPending)[0])
}
