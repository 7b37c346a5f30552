package handlers

import (
	"context"

	"paygate/internal/domain/model"
	"paygate/internal/provider"
	"paygate/internal/usecase"
)

// AuthFacade describes merchant authentication capabilities required by
// handlers.
type AuthFacade interface {
	Login(ctx context.Context, merchantCode, secret string) (string, error)
	ParseToken(token string) (string, error)
}

// OrderFacade encapsulates order lifecycle operations exposed via HTTP.
// Every order-scoped call verifies the order belongs to the merchant.
type OrderFacade interface {
	CreateOrder(ctx context.Context, req usecase.CreateRequest) (*usecase.CreateResult, error)
	ReCreateOrder(ctx context.Context, merchantCode, orderCode string) (*usecase.CreateResult, error)
	CancelOrder(ctx context.Context, merchantCode, orderCode, reason string) (*model.Order, error)
	CancelWalletOrder(ctx context.Context, merchantCode, orderCode, reason string) (*model.Order, error)
	RefundOrder(ctx context.Context, merchantCode, orderCode, reason string, force bool) (*model.Order, error)
	OrderDetail(ctx context.Context, merchantCode, orderCode string) (*model.Order, error)
	OrderWaters(ctx context.Context, merchantCode, orderCode string) ([]model.OrderWater, error)
}

// CallbackFacade applies provider webhooks.
type CallbackFacade interface {
	HandleCallback(ctx context.Context, providerName string, kind provider.CallbackKind, orderCode string, req provider.CallbackRequest) error
}

// PaymentFacade aggregates the full set of operations used across
// handlers.
type PaymentFacade interface {
	AuthFacade
	OrderFacade
	CallbackFacade
}
