package repository

import (
	"context"
	"errors"

	"loan-engine/domain"
)

var (
	ErrNotFound        = errors.New("loan not found")
	ErrAlreadyExists   = errors.New("loan already exists")
	ErrVersionConflict = errors.New("loan was modified concurrently")
	ErrHasRepayments   = errors.New("loan has recorded repayments")
)

// LoanFilter narrows List results. Zero values mean "any".
type LoanFilter struct {
	Status      domain.LoanStatus
	ApplicantID string
	Page        int
	Limit       int
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

func (f LoanFilter) normalized() LoanFilter {
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	return f
}

func (f LoanFilter) offset() int {
	return (f.Page - 1) * f.Limit
}

// LoanRepository persists loan applications and their dependents.
//
// Save is atomic: the loan row and the audit entry are written together or
// not at all. It is guarded by optimistic versioning: app.Version must equal
// the stored version, otherwise ErrVersionConflict is returned. On success
// app.Version is incremented.
type LoanRepository interface {
	Create(ctx context.Context, app *domain.LoanApplication) error
	Load(ctx context.Context, id string) (*domain.LoanApplication, error)
	Save(ctx context.Context, app *domain.LoanApplication, entry *domain.AuditEntry) error
	// Delete removes the loan together with its guarantors and audit trail.
	// Loans with repayments cannot be deleted. version is the version the
	// caller read; a newer stored version yields ErrVersionConflict.
	Delete(ctx context.Context, id string, version int64) error
	// List omits the audit history of each loan.
	List(ctx context.Context, filter LoanFilter) ([]domain.LoanApplication, int, error)

	// AppendRepayment records r if the loan is still at version.
	AppendRepayment(ctx context.Context, r domain.Repayment, version int64) error
	Repayments(ctx context.Context, loanID string) ([]domain.Repayment, error)

	AddGuarantor(ctx context.Context, g domain.Guarantor) error
	Guarantors(ctx context.Context, loanID string) ([]domain.Guarantor, error)
}
