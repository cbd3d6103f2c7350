package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
//
// The pool is limited to one connection: SQLite serializes writers anyway,
// per-connection pragmas stay in force, and an in-memory database is not
// split across connections.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if dsn != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set wal mode: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS loans (
			id TEXT PRIMARY KEY,
			applicant_id TEXT NOT NULL,
			requested_amount TEXT NOT NULL,
			annual_interest_rate TEXT NOT NULL,
			tenure_months INTEGER NOT NULL,
			existing_balance TEXT NOT NULL,
			net_salary TEXT NOT NULL,
			legal_fee TEXT NOT NULL,
			approved_amount TEXT,
			processing_fee TEXT,
			financial_legal_fee TEXT,
			monthly_installment TEXT,
			net_disbursement TEXT,
			qualification_cap TEXT,
			status TEXT NOT NULL,
			applied_at TEXT NOT NULL,
			reviewed_at TEXT,
			approved_at TEXT,
			disbursed_at TEXT,
			closed_at TEXT,
			version INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_applicant ON loans(applicant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_applied_at ON loans(applied_at)`,

		`CREATE TABLE IF NOT EXISTS loan_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			loan_id TEXT NOT NULL,
			from_status TEXT NOT NULL DEFAULT '',
			to_status TEXT NOT NULL,
			actor TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			at TEXT NOT NULL,
			FOREIGN KEY (loan_id) REFERENCES loans(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loan_audit_loan ON loan_audit(loan_id)`,

		`CREATE TABLE IF NOT EXISTS repayments (
			id TEXT PRIMARY KEY,
			loan_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			paid_at TEXT NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (loan_id) REFERENCES loans(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_repayments_loan ON repayments(loan_id)`,

		`CREATE TABLE IF NOT EXISTS guarantors (
			id TEXT PRIMARY KEY,
			loan_id TEXT NOT NULL,
			name TEXT NOT NULL,
			national_id TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			relationship TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (loan_id) REFERENCES loans(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_guarantors_loan ON guarantors(loan_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}
