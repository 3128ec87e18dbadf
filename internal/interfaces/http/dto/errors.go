package dto

import (
	"net/http"

	"github.com/erp/reconciliation/internal/domain/shared"
)

// Domain error codes, passed through to clients unchanged
const (
	ErrCodeValidation          = shared.CodeValidation
	ErrCodeNotFound            = shared.CodeNotFound
	ErrCodeAlreadyReversed     = shared.CodeAlreadyReversed
	ErrCodeInvariantViolation  = shared.CodeInvariantViolation
	ErrCodeConcurrencyConflict = shared.CodeConcurrencyConflict
	ErrCodeCreditConsumed      = shared.CodeCreditConsumed
	ErrCodeDuplicateRequest    = shared.CodeDuplicateRequest
	ErrCodeLockTimeout         = shared.CodeLockTimeout
	ErrCodeNothingToApply      = shared.CodeNothingToApply
)

// Transport error codes
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeValidation:     http.StatusBadRequest,
	ErrCodeNothingToApply: http.StatusBadRequest,
	ErrCodeBadRequest:     http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeNotFound:     http.StatusNotFound,

	// Conflicts with the current state of the ledger
	ErrCodeAlreadyReversed:     http.StatusConflict,
	ErrCodeDuplicateRequest:    http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeCreditConsumed:      http.StatusConflict,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeInvariantViolation: http.StatusInternalServerError,
	ErrCodeInternal:           http.StatusInternalServerError,

	// The party lock was busy; the request may be retried
	ErrCodeLockTimeout: http.StatusServiceUnavailable,
	ErrCodeUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
