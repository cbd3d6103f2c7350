package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"loan-engine/domain"
)

// timeLayout has a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const loanColumns = `id, applicant_id, requested_amount, annual_interest_rate, tenure_months,
	existing_balance, net_salary, legal_fee, approved_amount, processing_fee,
	financial_legal_fee, monthly_installment, net_disbursement, qualification_cap,
	status, applied_at, reviewed_at, approved_at, disbursed_at, closed_at, version`

// LoanRepositorySQLite stores loans in SQLite.
type LoanRepositorySQLite struct {
	db *sql.DB
}

func NewLoanRepositorySQLite(db *sql.DB) *LoanRepositorySQLite {
	return &LoanRepositorySQLite{db: db}
}

func (r *LoanRepositorySQLite) Create(ctx context.Context, app *domain.LoanApplication) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM loans WHERE id = ?", app.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check loan: %w", err)
	}
	if exists > 0 {
		return ErrAlreadyExists
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO loans (`+loanColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		loanArgs(app)...,
	)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}

	for i := range app.History {
		if err := insertAudit(ctx, tx, app.ID, app.History[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *LoanRepositorySQLite) Load(ctx context.Context, id string) (*domain.LoanApplication, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+loanColumns+" FROM loans WHERE id = ?", id)

	app, err := scanLoan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan loan: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT from_status, to_status, actor, reason, at FROM loan_audit WHERE loan_id = ? ORDER BY id",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var from, to, at string
		entry := domain.AuditEntry{LoanID: id}
		if err := rows.Scan(&from, &to, &entry.Actor, &entry.Reason, &at); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		entry.From = domain.LoanStatus(from)
		entry.To = domain.LoanStatus(to)
		if entry.At, err = parseTimestamp(at); err != nil {
			return nil, fmt.Errorf("audit entry for loan %s: %w", id, err)
		}
		app.History = append(app.History, entry)
	}

	return app, rows.Err()
}

func (r *LoanRepositorySQLite) Save(ctx context.Context, app *domain.LoanApplication, entry *domain.AuditEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	args := loanArgs(app)
	// Drop id and version from the insert ordering; they go in the WHERE clause.
	args = append(args[1:len(args)-1], app.ID, app.Version)

	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET
			applicant_id = ?, requested_amount = ?, annual_interest_rate = ?, tenure_months = ?,
			existing_balance = ?, net_salary = ?, legal_fee = ?, approved_amount = ?, processing_fee = ?,
			financial_legal_fee = ?, monthly_installment = ?, net_disbursement = ?, qualification_cap = ?,
			status = ?, applied_at = ?, reviewed_at = ?, approved_at = ?, disbursed_at = ?, closed_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM loans WHERE id = ?", app.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check loan: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	if entry != nil {
		if err := insertAudit(ctx, tx, app.ID, *entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	app.Version++
	if entry != nil {
		app.History = append(app.History, *entry)
	}
	return nil
}

func (r *LoanRepositorySQLite) Delete(ctx context.Context, id string, version int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := checkVersion(ctx, tx, id, version); err != nil {
		return err
	}

	var repayments int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM repayments WHERE loan_id = ?", id).Scan(&repayments); err != nil {
		return fmt.Errorf("count repayments: %w", err)
	}
	if repayments > 0 {
		return ErrHasRepayments
	}

	// Guarantors and audit rows go with the loan.
	for _, stmt := range []string{
		"DELETE FROM guarantors WHERE loan_id = ?",
		"DELETE FROM loan_audit WHERE loan_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete dependents: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM loans WHERE id = ? AND version = ?", id, version); err != nil {
		return fmt.Errorf("delete loan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// checkVersion fails unless the loan exists at exactly the given version.
func checkVersion(ctx context.Context, tx *sql.Tx, id string, version int64) error {
	var current int64
	err := tx.QueryRowContext(ctx, "SELECT version FROM loans WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if current != version {
		return ErrVersionConflict
	}
	return nil
}

func (r *LoanRepositorySQLite) List(ctx context.Context, filter LoanFilter) ([]domain.LoanApplication, int, error) {
	filter = filter.normalized()
	where, args := buildLoanWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM loans"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT " + loanColumns + " FROM loans" + where + " ORDER BY applied_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.offset())

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	loans := []domain.LoanApplication{}
	for rows.Next() {
		app, err := scanLoan(rows)
		if err != nil {
			return nil, 0, err
		}
		loans = append(loans, *app)
	}
	return loans, total, rows.Err()
}

func buildLoanWhere(f LoanFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.ApplicantID != "" {
		clauses = append(clauses, "applicant_id = ?")
		args = append(args, f.ApplicantID)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *LoanRepositorySQLite) AppendRepayment(ctx context.Context, rep domain.Repayment, version int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := checkVersion(ctx, tx, rep.LoanID, version); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO repayments (id, loan_id, amount, paid_at, reference) VALUES (?,?,?,?,?)",
		rep.ID, rep.LoanID, rep.Amount.String(), rep.PaidAt.UTC().Format(timeLayout), rep.Reference,
	)
	if err != nil {
		return fmt.Errorf("insert repayment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *LoanRepositorySQLite) Repayments(ctx context.Context, loanID string) ([]domain.Repayment, error) {
	if err := r.ensureLoan(ctx, loanID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, amount, paid_at, reference FROM repayments WHERE loan_id = ? ORDER BY paid_at, rowid",
		loanID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Repayment
	for rows.Next() {
		var amount, paidAt string
		rep := domain.Repayment{LoanID: loanID}
		if err := rows.Scan(&rep.ID, &amount, &paidAt, &rep.Reference); err != nil {
			return nil, err
		}
		if rep.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("repayment %s amount: %w", rep.ID, err)
		}
		if rep.PaidAt, err = parseTimestamp(paidAt); err != nil {
			return nil, fmt.Errorf("repayment %s paid_at: %w", rep.ID, err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *LoanRepositorySQLite) AddGuarantor(ctx context.Context, g domain.Guarantor) error {
	if err := r.ensureLoan(ctx, g.LoanID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO guarantors (id, loan_id, name, national_id, phone, relationship) VALUES (?,?,?,?,?,?)",
		g.ID, g.LoanID, g.Name, g.NationalID, g.Phone, g.Relationship,
	)
	if err != nil {
		return fmt.Errorf("insert guarantor: %w", err)
	}
	return nil
}

func (r *LoanRepositorySQLite) Guarantors(ctx context.Context, loanID string) ([]domain.Guarantor, error) {
	if err := r.ensureLoan(ctx, loanID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, national_id, phone, relationship FROM guarantors WHERE loan_id = ? ORDER BY rowid",
		loanID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Guarantor
	for rows.Next() {
		g := domain.Guarantor{LoanID: loanID}
		if err := rows.Scan(&g.ID, &g.Name, &g.NationalID, &g.Phone, &g.Relationship); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *LoanRepositorySQLite) ensureLoan(ctx context.Context, id string) error {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM loans WHERE id = ?", id).Scan(&n); err != nil {
		return fmt.Errorf("check loan: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- helpers ---

func insertAudit(ctx context.Context, tx *sql.Tx, loanID string, e domain.AuditEntry) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO loan_audit (loan_id, from_status, to_status, actor, reason, at) VALUES (?,?,?,?,?,?)",
		loanID, string(e.From), string(e.To), e.Actor, e.Reason, e.At.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// loanArgs returns the column values in loanColumns order.
func loanArgs(app *domain.LoanApplication) []any {
	var fee, legal, installment, net, qualificationCap any
	if f := app.Financials; f != nil {
		fee = f.ProcessingFee.String()
		legal = f.LegalFee.String()
		installment = f.MonthlyInstallment.String()
		net = f.NetDisbursement.String()
		qualificationCap = f.QualificationCap.String()
	}

	var approved any
	if app.ApprovedAmount != nil {
		approved = app.ApprovedAmount.String()
	}

	return []any{
		app.ID, app.ApplicantID,
		app.Terms.RequestedAmount.String(), app.Terms.AnnualInterestRatePercent.String(),
		app.Terms.TenureMonths, app.Terms.ExistingBalance.String(),
		app.NetSalary.String(), app.LegalFee.String(), approved,
		fee, legal, installment, net, qualificationCap,
		string(app.Status), app.AppliedAt.UTC().Format(timeLayout),
		nullableTime(app.ReviewedAt), nullableTime(app.ApprovedAt),
		nullableTime(app.DisbursedAt), nullableTime(app.ClosedAt),
		app.Version,
	}
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(s rowScanner) (*domain.LoanApplication, error) {
	var (
		app                                           domain.LoanApplication
		requested, rate, balance, salary, legal       string
		status, appliedAt                             string
		approved, fee, finLegal, installment, net     sql.NullString
		qualificationCap                              sql.NullString
		reviewedAt, approvedAt, disbursedAt, closedAt sql.NullString
	)

	err := s.Scan(
		&app.ID, &app.ApplicantID, &requested, &rate, &app.Terms.TenureMonths,
		&balance, &salary, &legal, &approved, &fee,
		&finLegal, &installment, &net, &qualificationCap,
		&status, &appliedAt, &reviewedAt, &approvedAt, &disbursedAt, &closedAt, &app.Version,
	)
	if err != nil {
		return nil, err
	}

	p := columnParser{}
	app.Terms.RequestedAmount = p.parse(requested)
	app.Terms.AnnualInterestRatePercent = p.parse(rate)
	app.Terms.ExistingBalance = p.parse(balance)
	app.NetSalary = p.parse(salary)
	app.LegalFee = p.parse(legal)

	if approved.Valid {
		a := p.parse(approved.String)
		app.ApprovedAmount = &a
	}

	if fee.Valid {
		app.Financials = &domain.ComputedLoanFinancials{
			ProcessingFee:      p.parse(fee.String),
			LegalFee:           p.parse(finLegal.String),
			MonthlyInstallment: p.parse(installment.String),
			NetDisbursement:    p.parse(net.String),
			QualificationCap:   p.parse(qualificationCap.String),
		}
	}

	app.Status = domain.LoanStatus(status)
	app.AppliedAt = p.timestamp(appliedAt)
	app.ReviewedAt = p.nullTimestamp(reviewedAt)
	app.ApprovedAt = p.nullTimestamp(approvedAt)
	app.DisbursedAt = p.nullTimestamp(disbursedAt)
	app.ClosedAt = p.nullTimestamp(closedAt)

	if p.err != nil {
		return nil, fmt.Errorf("loan %s: %w", app.ID, p.err)
	}

	return &app, nil
}

// columnParser keeps the first parse error so a row is decoded in one pass.
type columnParser struct {
	err error
}

func (p *columnParser) keep(err error) {
	if err != nil && p.err == nil {
		p.err = err
	}
}

func (p *columnParser) parse(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	p.keep(err)
	return d
}

func (p *columnParser) timestamp(s string) time.Time {
	t, err := parseTimestamp(s)
	p.keep(err)
	return t
}

func (p *columnParser) nullTimestamp(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := p.timestamp(ns.String)
	return &t
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return t, nil
}
