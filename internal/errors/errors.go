// Package errors provides custom error types for the Tabung API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
	ErrInvalidToken   = &AppError{Code: "INVALID_TOKEN", Message: "Invalid or expired token", StatusCode: http.StatusUnauthorized}
)

// Transaction errors.
var (
	ErrTransactionNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidTransactionType = &AppError{Code: "INVALID_TRANSACTION_TYPE", Message: "Unsupported transaction type", StatusCode: http.StatusBadRequest}
	ErrInvalidStatusChange    = &AppError{Code: "INVALID_STATUS_TRANSITION", Message: "Transaction status cannot change from its current state", StatusCode: http.StatusConflict}
	ErrDerivedTransaction     = &AppError{Code: "DERIVED_TRANSACTION", Message: "Transactions created by an approved payment cannot be modified", StatusCode: http.StatusConflict}
)

// Allocation errors.
var (
	ErrAllocationTotalInvalid = &AppError{Code: "ALLOCATION_TOTAL_INVALID", Message: "Allocation percentages must sum to 100", StatusCode: http.StatusBadRequest}
	ErrAllocationSumZero      = &AppError{Code: "ALLOCATION_SUM_ZERO", Message: "Allocation percentages sum to zero and cannot be adjusted", StatusCode: http.StatusBadRequest}
)

// Report errors.
var (
	ErrReportDownloadForbidden = &AppError{Code: "REPORT_DOWNLOAD_FORBIDDEN", Message: "Report download is not available on the current plan", StatusCode: http.StatusForbidden}
)

// Approval workflow errors.
var (
	ErrTenantNotFound      = &AppError{Code: "TENANT_NOT_FOUND", Message: "Tenant not found", StatusCode: http.StatusNotFound}
	ErrOrganizerNotFound   = &AppError{Code: "ORGANIZER_NOT_FOUND", Message: "Organizer not found", StatusCode: http.StatusNotFound}
	ErrOrganizerUnresolved = &AppError{Code: "ORGANIZER_UNRESOLVED", Message: "Tenant has no active organizer link or location", StatusCode: http.StatusUnprocessableEntity}
	ErrRequestNotFound     = &AppError{Code: "REQUEST_NOT_FOUND", Message: "Request not found", StatusCode: http.StatusNotFound}
	ErrRequestNotPending   = &AppError{Code: "REQUEST_NOT_PENDING", Message: "Request has already been decided", StatusCode: http.StatusConflict}
	ErrInvalidRequestKind  = &AppError{Code: "INVALID_REQUEST_KIND", Message: "Unknown request kind", StatusCode: http.StatusBadRequest}
	ErrDuplicateRequest    = &AppError{Code: "DUPLICATE_REQUEST", Message: "A pending request already exists", StatusCode: http.StatusConflict}
	ErrStoreWriteFailed    = &AppError{Code: "STORE_WRITE_FAILED", Message: "The change could not be saved", StatusCode: http.StatusInternalServerError}
)
