package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable, matchable failure category.
type ErrorKind string

const (
	KindInvalidAmount           ErrorKind = "InvalidAmount"
	KindInvalidIncome           ErrorKind = "InvalidIncome"
	KindInvalidTerm             ErrorKind = "InvalidTerm"
	KindNegativeDisbursement    ErrorKind = "NegativeDisbursement"
	KindFinancialsNotComputed   ErrorKind = "FinancialsNotComputed"
	KindExceedsQualificationCap ErrorKind = "ExceedsQualificationCap"
	KindIllegalTransition       ErrorKind = "IllegalTransition"
	KindPreconditionNotMet      ErrorKind = "PreconditionNotMet"

	// KindInvalidInput marks a malformed request field such as a blank id.
	KindInvalidInput ErrorKind = "InvalidInput"

	// KindTermsFrozen is returned when terms change after approval.
	KindTermsFrozen ErrorKind = "TermsFrozen"
)

// DomainError is a calculator or lifecycle failure.
type DomainError struct {
	Kind    ErrorKind
	Field   string
	Message string
}

func (e DomainError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}

	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Field)
}

// NewDomainError creates a domain error with kind, field and message.
func NewDomainError(kind ErrorKind, field, message string) error {
	return DomainError{Kind: kind, Field: field, Message: message}
}

// KindOf returns the kind of the first DomainError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var de DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries a DomainError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
