package shared

import "errors"

// DomainError represents a domain-level error with a stable kind code
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error code constants for the payment and mileage rules
const (
	CodeValidation          = "VALIDATION"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeLockedState         = "LOCKED_STATE"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyDeleted      = "ALREADY_DELETED"
	CodeGone                = "GONE"
	CodeConflict            = "CONFLICT"
	CodeInvalidState        = "INVALID_STATE"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeUnauthorized        = "UNAUTHORIZED"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrLockedState         = NewDomainError(CodeLockedState, "Settled payment fields are immutable")
	ErrInsufficientBalance = NewDomainError(CodeInsufficientBalance, "Insufficient usable mileage")
	ErrAlreadyDeleted      = NewDomainError(CodeAlreadyDeleted, "Ledger is already deleted")
	ErrGone                = NewDomainError(CodeGone, "Ledger has been deleted")
	ErrConcurrencyConflict = NewDomainError(CodeConflict, "Resource was modified by another process")
)

// ErrorCode extracts the stable code from an error, or empty string when
// the error is not a DomainError.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err is a DomainError carrying the given code
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}
