package shared

import (
	"errors"
	"fmt"
)

// Error codes used across the reconciliation domain
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyReversed     = "ALREADY_REVERSED"
	CodeInvariantViolation  = "INVARIANT_VIOLATION"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeCreditConsumed      = "CREDIT_CONSUMED"
	CodeDuplicateRequest    = "DUPLICATE_REQUEST"
	CodeLockTimeout         = "LOCK_TIMEOUT"
	CodeNothingToApply      = "NOTHING_TO_APPLY"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so callers can
// match against the sentinel values below with errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Sentinels for errors.Is matching
var (
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyReversed     = NewDomainError(CodeAlreadyReversed, "Payment has already been reversed")
	ErrInvariantViolation  = NewDomainError(CodeInvariantViolation, "Ledger invariant violated")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrCreditConsumed      = NewDomainError(CodeCreditConsumed, "Overpaid credit has already been consumed")
	ErrDuplicateRequest    = NewDomainError(CodeDuplicateRequest, "Request has already been processed")
	ErrLockTimeout         = NewDomainError(CodeLockTimeout, "Timed out waiting for party lock")
	ErrNothingToApply      = NewDomainError(CodeNothingToApply, "Nothing to apply")
)

// NewValidationError returns a VALIDATION_ERROR with a formatted message
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError returns a NOT_FOUND error naming the missing resource
func NewNotFoundError(resource string, id any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %v not found", resource, id))
}

// NewInvariantViolation returns an INVARIANT_VIOLATION error. These are fatal for
// the operation in progress and must abort the surrounding transaction.
func NewInvariantViolation(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvariantViolation, fmt.Sprintf(format, args...))
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvariantViolation reports whether err is an invariant violation
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

// CodeOf extracts the domain error code from err, or "" when err is not a DomainError
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
