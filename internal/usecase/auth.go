package usecase

import (
	"context"
	"errors"
	"fmt"

	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
	"paygate/internal/domain/repository"
	"paygate/internal/pkg/auth"
)

// AuthUseCase authenticates merchants by code and secret and issues
// API tokens.
type AuthUseCase struct {
	merchants repository.MerchantRepository
	hasher    auth.SecretHasher
	strategy  auth.Strategy
}

// NewAuthUseCase assembles merchant authentication.
func NewAuthUseCase(merchants repository.MerchantRepository, hasher auth.SecretHasher, strategy auth.Strategy) *AuthUseCase {
	return &AuthUseCase{merchants: merchants, hasher: hasher, strategy: strategy}
}

// Authenticate checks the merchant secret and returns a token. A wrong
// code and a wrong secret are indistinguishable to the caller.
func (u *AuthUseCase) Authenticate(ctx context.Context, merchantCode, secret string) (string, error) {
	merchant, err := u.merchants.GetByCode(ctx, merchantCode)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return "", domainErrors.ErrInvalidCredentials
		}
		return "", err
	}
	if merchant.Status != model.MerchantEnabled {
		return "", fmt.Errorf("%w: %s", domainErrors.ErrMerchantDisabled, merchantCode)
	}
	if err := u.hasher.Compare(merchant.SecretHash, secret); err != nil {
		return "", domainErrors.ErrInvalidCredentials
	}
	return u.strategy.IssueToken(merchant.Code)
}

// ParseToken validates a token and returns the merchant code it was
// issued for.
func (u *AuthUseCase) ParseToken(token string) (string, error) {
	return u.strategy.ParseToken(token)
}
