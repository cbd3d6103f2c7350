package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"loan-engine/domain"
	"loan-engine/financial"
	"loan-engine/lifecycle"
	"loan-engine/metrics"
	"loan-engine/repository"
)

type LoanService struct {
	repo     repository.LoanRepository
	cache    repository.CacheRepository
	policy   financial.Policy
	machine  *lifecycle.Machine
	logger   *zap.Logger
	cacheTTL time.Duration
	now      func() time.Time
}

type Option func(*LoanService)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *LoanService) { s.now = now }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *LoanService) { s.cacheTTL = ttl }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *LoanService) { s.logger = logger }
}

// NewLoanService creates a new LoanService with the given repository, cache
// and policy.
func NewLoanService(repo repository.LoanRepository,
	cache repository.CacheRepository,
	policy financial.Policy,
	opts ...Option,
) *LoanService {
	s := &LoanService{
		repo:    repo,
		cache:   cache,
		policy:  policy,
		machine: lifecycle.New(policy),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CalculateLoan previews the financials of a set of terms without storing a
// loan. Results are memoized in the cache; cache failures are not fatal.
func (s *LoanService) CalculateLoan(ctx context.Context, input domain.LoanInput) (domain.LoanResult, error) {
	key := calcKeyPrefix + inputHash(input)

	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var result domain.LoanResult
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			metrics.RecordCalculation(true)
			return result, nil
		}
		s.logger.Warn("discarding malformed cache entry", zap.String("key", key))
	}

	fin, err := s.policy.Compute(input.Terms, input.NetSalary, input.LegalFee)
	if err != nil {
		return domain.LoanResult{}, err
	}

	total, interest := financial.Totals(fin.MonthlyInstallment, input.Terms.RequestedAmount, input.Terms.TenureMonths)
	result := domain.LoanResult{
		Financials:    fin,
		TotalPayment:  total,
		TotalInterest: interest,
	}
	metrics.RecordCalculation(false)

	// Cache the result (not critical if it fails)
	if payload, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, key, string(payload), s.cacheTTL); err != nil {
			s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return result, nil
}

// inputHash is a stable digest of the calculator inputs. Decimals are
// normalized so 12 and 12.0 share an entry.
func inputHash(in domain.LoanInput) string {
	parts := []string{
		in.Terms.RequestedAmount.String(),
		in.Terms.AnnualInterestRatePercent.String(),
		fmt.Sprint(in.Terms.TenureMonths),
		in.Terms.ExistingBalance.String(),
		in.NetSalary.String(),
		in.LegalFee.String(),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

type SubmitRequest struct {
	ApplicantID string           `json:"applicant_id"`
	Terms       domain.LoanTerms `json:"terms"`
	NetSalary   decimal.Decimal  `json:"net_salary"`
	LegalFee    decimal.Decimal  `json:"legal_fee"`
	Actor       string           `json:"actor,omitempty"`
}

// Submit validates and stores a new application in PENDING with its
// financials already computed.
func (s *LoanService) Submit(ctx context.Context, req SubmitRequest) (*domain.LoanApplication, error) {
	applicant := strings.TrimSpace(req.ApplicantID)
	if applicant == "" {
		return nil, domain.NewDomainError(domain.KindInvalidInput, "applicant_id", "applicant id is required")
	}
	if len(applicant) > MaxApplicantIDLength {
		return nil, domain.NewDomainError(domain.KindInvalidInput, "applicant_id",
			fmt.Sprintf("applicant id exceeds %d characters", MaxApplicantIDLength))
	}

	fin, err := s.policy.Compute(req.Terms, req.NetSalary, req.LegalFee)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	app := &domain.LoanApplication{
		ID:          uuid.NewString(),
		ApplicantID: applicant,
		Terms:       req.Terms,
		Financials:  &fin,
		NetSalary:   req.NetSalary,
		LegalFee:    req.LegalFee,
		Status:      domain.StatusPending,
		AppliedAt:   now,
		History: []domain.AuditEntry{{
			To:     domain.StatusPending,
			Actor:  actorOr(req.Actor, applicant),
			Reason: "application submitted",
			At:     now,
		}},
	}
	app.History[0].LoanID = app.ID

	if err := s.repo.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("create loan: %w", err)
	}

	s.logger.Info("loan submitted",
		zap.String("loan_id", app.ID),
		zap.String("applicant_id", applicant),
		zap.String("amount", req.Terms.RequestedAmount.StringFixed(2)),
	)
	return app, nil
}

// UpdateTerms replaces the terms of a loan that is still PENDING or
// UNDER_REVIEW and recomputes its financials from scratch.
func (s *LoanService) UpdateTerms(ctx context.Context, id string, terms domain.LoanTerms, legalFee *decimal.Decimal) (*domain.LoanApplication, error) {
	app, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.TermsFrozen() {
		return nil, domain.NewDomainError(domain.KindTermsFrozen, "terms",
			fmt.Sprintf("terms cannot change in status %s", app.Status))
	}

	fee := app.LegalFee
	if legalFee != nil {
		fee = *legalFee
	}

	fin, err := s.policy.Compute(terms, app.NetSalary, fee)
	if err != nil {
		return nil, err
	}

	app.Terms = terms
	app.LegalFee = fee
	app.Financials = &fin

	if err := s.repo.Save(ctx, app, nil); err != nil {
		return nil, err
	}

	s.logger.Info("loan terms updated", zap.String("loan_id", id), zap.Int64("version", app.Version))
	return app, nil
}

func (s *LoanService) Get(ctx context.Context, id string) (*domain.LoanApplication, error) {
	return s.repo.Load(ctx, id)
}

func (s *LoanService) List(ctx context.Context, filter repository.LoanFilter) ([]domain.LoanApplication, int, error) {
	return s.repo.List(ctx, filter)
}

// Delete removes a loan that never reached money movement.
func (s *LoanService) Delete(ctx context.Context, id string) error {
	app, err := s.repo.Load(ctx, id)
	if err != nil {
		return err
	}
	if app.Status != domain.StatusPending && app.Status != domain.StatusRejected {
		return domain.NewDomainError(domain.KindPreconditionNotMet, "status",
			fmt.Sprintf("loan in status %s cannot be deleted", app.Status))
	}

	if err := s.repo.Delete(ctx, id, app.Version); err != nil {
		if errors.Is(err, repository.ErrHasRepayments) {
			return domain.NewDomainError(domain.KindPreconditionNotMet, "repayments", err.Error())
		}
		return err
	}

	s.logger.Info("loan deleted", zap.String("loan_id", id))
	return nil
}

func actorOr(actor, fallback string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return fallback
}
