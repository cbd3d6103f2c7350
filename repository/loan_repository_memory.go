package repository

import (
	"context"
	"sort"
	"sync"

	"loan-engine/domain"
)

// LoanRepositoryMemory is an in-memory implementation of LoanRepository.
type LoanRepositoryMemory struct {
	mu         sync.RWMutex
	loans      map[string]*domain.LoanApplication
	repayments map[string][]domain.Repayment
	guarantors map[string][]domain.Guarantor
}

// NewLoanRepositoryMemory creates a new in-memory loan repository.
func NewLoanRepositoryMemory() *LoanRepositoryMemory {
	return &LoanRepositoryMemory{
		loans:      make(map[string]*domain.LoanApplication),
		repayments: make(map[string][]domain.Repayment),
		guarantors: make(map[string][]domain.Guarantor),
	}
}

func cloneLoan(app *domain.LoanApplication) *domain.LoanApplication {
	c := *app
	c.History = append([]domain.AuditEntry(nil), app.History...)
	if app.Financials != nil {
		f := *app.Financials
		c.Financials = &f
	}
	return &c
}

// Create stores a new loan.
func (r *LoanRepositoryMemory) Create(_ context.Context, app *domain.LoanApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.loans[app.ID]; ok {
		return ErrAlreadyExists
	}
	r.loans[app.ID] = cloneLoan(app)
	return nil
}

// Load returns a copy of the stored loan.
func (r *LoanRepositoryMemory) Load(_ context.Context, id string) (*domain.LoanApplication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.loans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneLoan(app), nil
}

// Save replaces the stored loan if app.Version is current.
func (r *LoanRepositoryMemory) Save(_ context.Context, app *domain.LoanApplication, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.loans[app.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != app.Version {
		return ErrVersionConflict
	}

	next := cloneLoan(app)
	next.History = append([]domain.AuditEntry(nil), stored.History...)
	if entry != nil {
		next.History = append(next.History, *entry)
	}
	next.Version++

	r.loans[app.ID] = next
	app.Version = next.Version
	app.History = append([]domain.AuditEntry(nil), next.History...)
	return nil
}

// Delete removes the loan and its guarantors.
func (r *LoanRepositoryMemory) Delete(_ context.Context, id string, version int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkVersion(id, version); err != nil {
		return err
	}
	if len(r.repayments[id]) > 0 {
		return ErrHasRepayments
	}

	delete(r.loans, id)
	delete(r.guarantors, id)
	return nil
}

// List returns loans ordered by application time, newest first.
func (r *LoanRepositoryMemory) List(_ context.Context, filter LoanFilter) ([]domain.LoanApplication, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filter = filter.normalized()

	var matched []domain.LoanApplication
	for _, app := range r.loans {
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		if filter.ApplicantID != "" && app.ApplicantID != filter.ApplicantID {
			continue
		}
		c := cloneLoan(app)
		c.History = nil
		matched = append(matched, *c)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].AppliedAt.Equal(matched[j].AppliedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].AppliedAt.After(matched[j].AppliedAt)
	})

	total := len(matched)
	start := filter.offset()
	if start >= total {
		return []domain.LoanApplication{}, total, nil
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// AppendRepayment records a repayment for an existing loan.
func (r *LoanRepositoryMemory) AppendRepayment(_ context.Context, rep domain.Repayment, version int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkVersion(rep.LoanID, version); err != nil {
		return err
	}
	r.repayments[rep.LoanID] = append(r.repayments[rep.LoanID], rep)
	return nil
}

// checkVersion must be called with the write lock held.
func (r *LoanRepositoryMemory) checkVersion(id string, version int64) error {
	stored, ok := r.loans[id]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != version {
		return ErrVersionConflict
	}
	return nil
}

// Repayments returns the loan's repayments in the order they were recorded.
func (r *LoanRepositoryMemory) Repayments(_ context.Context, loanID string) ([]domain.Repayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.loans[loanID]; !ok {
		return nil, ErrNotFound
	}
	return append([]domain.Repayment(nil), r.repayments[loanID]...), nil
}

// AddGuarantor attaches a guarantor to an existing loan.
func (r *LoanRepositoryMemory) AddGuarantor(_ context.Context, g domain.Guarantor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.loans[g.LoanID]; !ok {
		return ErrNotFound
	}
	r.guarantors[g.LoanID] = append(r.guarantors[g.LoanID], g)
	return nil
}

// Guarantors returns the loan's guarantors.
func (r *LoanRepositoryMemory) Guarantors(_ context.Context, loanID string) ([]domain.Guarantor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.loans[loanID]; !ok {
		return nil, ErrNotFound
	}
	return append([]domain.Guarantor(nil), r.guarantors[loanID]...), nil
}
