package dto

import (
	"net/http"

	"github.com/commerce/backend/internal/domain/shared"
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Input errors -> 400 Bad Request
	shared.CodeValidation:    http.StatusBadRequest,
	shared.CodeInvalidAmount: http.StatusBadRequest,

	// Auth errors
	shared.CodeUnauthorized: http.StatusUnauthorized,
	shared.CodeForbidden:    http.StatusForbidden,

	// Resource errors
	shared.CodeNotFound:       http.StatusNotFound,
	shared.CodeAlreadyExists:  http.StatusConflict,
	shared.CodeConflict:       http.StatusConflict,
	shared.CodeAlreadyDeleted: http.StatusConflict,
	shared.CodeGone:           http.StatusGone,

	// Business rule errors -> 422 Unprocessable Entity
	shared.CodeInvalidState:        http.StatusUnprocessableEntity,
	shared.CodeLockedState:         http.StatusUnprocessableEntity,
	shared.CodeInsufficientBalance: http.StatusUnprocessableEntity,
}

// Transport-level error codes with no domain counterpart
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL"
)

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not mapped.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch code {
	case ErrCodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
