package repository

import (
	"context"

	"paygate/internal/domain/model"
)

// MerchantRepository provides read access to merchants and their
// per-trade-type provider credentials.
type MerchantRepository interface {
	GetByCode(ctx context.Context, code string) (*model.Merchant, error)
	GetConfig(ctx context.Context, merchantCode, tradeType string) (*model.ProviderConfig, error)
}
