// Package lifecycle governs the status transitions of a loan application.
//
// Core flow:
//   - the caller loads the loan and gathers the facts guards need
//     (documents complete, days overdue, payment cleared) into a
//     TransitionContext;
//   - Machine.Apply checks the edge against the transition table, runs the
//     guard for it and returns the new status plus an audit entry;
//   - the caller persists both atomically.
//
// Failures are domain.DomainError values with a stable Kind.
package lifecycle
