package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"error"`
	Detail     string `json:"message,omitempty"` // Provider or validation detail safe to show
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy of e carrying a client-visible detail message.
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Payment & Ledger (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New("PAY_001", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", "Invalid amount", http.StatusBadRequest)
}

func ErrDuplicateTransaction() *AppError {
	return New("PAY_003", "Duplicate transaction", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrMissingPaymentInfo() *AppError {
	return New("PAY_005", "Missing payment information", http.StatusBadRequest)
}

func ErrPaymentIncomplete() *AppError {
	return New("PAY_006", "Payment was not completed", http.StatusPaymentRequired)
}

func ErrUnsupportedProvider(provider string) *AppError {
	return New("PAY_007", fmt.Sprintf("Unsupported payment provider: %s", provider), http.StatusBadRequest)
}

func ErrMutationRejected(reason string) *AppError {
	return New("PAY_008", fmt.Sprintf("Wallet mutation rejected: %s", reason), http.StatusConflict)
}

// ---- Payment Providers (PRV) ----

func ErrProviderFailure(provider string, err error) *AppError {
	return Wrap("PRV_001", fmt.Sprintf("%s request failed", provider), http.StatusInternalServerError, err)
}

func ErrProviderTimeout(provider string, err error) *AppError {
	return Wrap("PRV_002", fmt.Sprintf("%s request timed out", provider), http.StatusInternalServerError, err)
}

func ErrProviderResponse(provider string, err error) *AppError {
	return Wrap("PRV_003", fmt.Sprintf("Unexpected response from %s", provider), http.StatusInternalServerError, err)
}

func ErrProviderNotConfigured(provider string) *AppError {
	return New("PRV_004", fmt.Sprintf("%s is not configured", provider), http.StatusInternalServerError)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAdminForbidden() *AppError {
	return New("AUTH_005", "Admin credential rejected", http.StatusForbidden)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_002", "Invalid signature", http.StatusBadRequest)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrStorageUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Wallet storage unavailable", http.StatusServiceUnavailable, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a PAY_002-style validation error.
func Validation(message string) *AppError {
	return New("PAY_002", "Invalid request", http.StatusBadRequest).WithDetail(message)
}
