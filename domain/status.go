package domain

import (
	"fmt"
	"strings"
	"time"
)

// LoanStatus is the lifecycle state of a loan application.
//
// Allowed transitions:
//
//	PENDING      -> UNDER_REVIEW | REJECTED
//	UNDER_REVIEW -> APPROVED | REJECTED
//	APPROVED     -> DISBURSED | REJECTED
//	DISBURSED    -> ACTIVE
//	ACTIVE       -> CLOSED | NPL
//	NPL          -> ACTIVE | CLOSED
//	REJECTED, CLOSED are terminal.
type LoanStatus string

const (
	StatusPending     LoanStatus = "PENDING"
	StatusUnderReview LoanStatus = "UNDER_REVIEW"
	StatusApproved    LoanStatus = "APPROVED"
	StatusRejected    LoanStatus = "REJECTED"
	StatusDisbursed   LoanStatus = "DISBURSED"
	StatusActive      LoanStatus = "ACTIVE"
	StatusNPL         LoanStatus = "NPL"
	StatusClosed      LoanStatus = "CLOSED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []LoanStatus{
	StatusPending,
	StatusUnderReview,
	StatusApproved,
	StatusRejected,
	StatusDisbursed,
	StatusActive,
	StatusNPL,
	StatusClosed,
}

// ParseLoanStatus accepts the canonical name in any case.
func ParseLoanStatus(s string) (LoanStatus, error) {
	candidate := LoanStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range AllStatuses {
		if st == candidate {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown loan status %q", s)
}

// IsTerminal reports whether no transition leaves the status.
func (s LoanStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusClosed
}

func (s LoanStatus) String() string {
	return string(s)
}

// AuditEntry records one applied status change.
type AuditEntry struct {
	LoanID string     `json:"loan_id"`
	From   LoanStatus `json:"from,omitempty"`
	To     LoanStatus `json:"to"`
	Actor  string     `json:"actor,omitempty"`
	Reason string     `json:"reason,omitempty"`
	At     time.Time  `json:"at"`
}
