package service

import (
	"context"
	"errors"

	"storefront-wallet/internal/core/domain"
	"storefront-wallet/pkg/apperror"
)

// providerError maps adapter failures onto the PRV_ codes.
func providerError(ctx context.Context, p domain.Provider, err error) error {
	name := p.DisplayName()
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return apperror.ErrProviderTimeout(name, err)
		}
		return apperror.ErrProviderFailure(name, err)
	}

	var appErr *apperror.AppError
	switch perr.Kind {
	case domain.ProviderErrTimeout:
		appErr = apperror.ErrProviderTimeout(name, err)
	case domain.ProviderErrParse:
		appErr = apperror.ErrProviderResponse(name, err)
	case domain.ProviderErrConfig:
		appErr = apperror.ErrProviderNotConfigured(name)
		appErr.Err = err
	default:
		appErr = apperror.ErrProviderFailure(name, err)
	}
	if perr.Detail != "" {
		appErr = appErr.WithDetail(perr.Detail)
	}
	return appErr
}
