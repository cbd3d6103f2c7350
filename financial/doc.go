// Package financial computes loan fees, qualification caps, installments,
// net disbursement and amortization schedules.
//
// Every function is pure and works on decimal values. Intermediate results
// keep full precision; each exported amount is rounded half-up to two places
// once, at the end.
package financial
