package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("PAY_001", "Insufficient funds", http.StatusPaymentRequired),
			expected: "[PAY_001] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, New("PAY_001", "test", http.StatusBadRequest).Unwrap())
}

func TestAppError_WithDetailCopies(t *testing.T) {
	base := ErrInvalidAmount()
	withDetail := base.WithDetail("amount must be positive")

	assert.Empty(t, base.Detail)
	assert.Equal(t, "amount must be positive", withDetail.Detail)
	assert.Equal(t, base.Code, withDetail.Code)
}

func TestPaymentErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InsufficientFunds", ErrInsufficientFunds(), "PAY_001", 402},
		{"InvalidAmount", ErrInvalidAmount(), "PAY_002", 400},
		{"DuplicateTransaction", ErrDuplicateTransaction(), "PAY_003", 409},
		{"NotFound", ErrNotFound("Wallet"), "PAY_004", 404},
		{"MissingPaymentInfo", ErrMissingPaymentInfo(), "PAY_005", 400},
		{"PaymentIncomplete", ErrPaymentIncomplete(), "PAY_006", 402},
		{"UnsupportedProvider", ErrUnsupportedProvider("square"), "PAY_007", 400},
		{"MutationRejected", ErrMutationRejected("canceled"), "PAY_008", 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestProviderErrors(t *testing.T) {
	inner := fmt.Errorf("dial tcp: connection refused")

	tests := []struct {
		name string
		err  *AppError
		code string
	}{
		{"Failure", ErrProviderFailure("stripe", inner), "PRV_001"},
		{"Timeout", ErrProviderTimeout("paypal", inner), "PRV_002"},
		{"Response", ErrProviderResponse("stripe", inner), "PRV_003"},
		{"NotConfigured", ErrProviderNotConfigured("paypal"), "PRV_004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, http.StatusInternalServerError, tt.err.HTTPStatus)
		})
	}

	assert.True(t, errors.Is(ErrProviderTimeout("paypal", inner), inner))
}

func TestAuthErrors(t *testing.T) {
	assert.Equal(t, "AUTH_003", ErrInvalidToken().Code)
	assert.Equal(t, 401, ErrInvalidToken().HTTPStatus)
	assert.Equal(t, "AUTH_005", ErrAdminForbidden().Code)
	assert.Equal(t, 403, ErrAdminForbidden().HTTPStatus)
	assert.Equal(t, 400, ErrInvalidSignature().HTTPStatus)
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := ErrDatabaseError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))

	storeErr := ErrStorageUnavailable(inner)
	assert.Equal(t, "SYS_002", storeErr.Code)
	assert.Equal(t, 503, storeErr.HTTPStatus)

	encErr := ErrEncryptionFailure(inner)
	assert.Equal(t, "SYS_003", encErr.Code)
	assert.Equal(t, 500, encErr.HTTPStatus)
}

func TestRateLimitError(t *testing.T) {
	err := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
}

func TestValidationCarriesDetail(t *testing.T) {
	err := Validation("quantity must be at least 10")
	assert.Equal(t, "PAY_002", err.Code)
	assert.Equal(t, "quantity must be at least 10", err.Detail)
}
