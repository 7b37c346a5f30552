package app

import (
	"context"
	"time"

	"paygate/internal/config"
	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
	"paygate/internal/provider"
	"paygate/internal/usecase"
)

// PaymentFacade is the application surface consumed by the HTTP layer
// and the expiry worker. Order-scoped merchant operations verify
// ownership before touching the order; a foreign order is reported as
// not found so merchants cannot probe each other's order codes.
type PaymentFacade struct {
	auth      *usecase.AuthUseCase
	orders    *usecase.Coordinator
	callbacks *usecase.CallbackService
	orderTTL  time.Duration
}

func NewPaymentFacade(auth *usecase.AuthUseCase, orders *usecase.Coordinator, callbacks *usecase.CallbackService, cfg *config.Config) *PaymentFacade {
	return &PaymentFacade{auth: auth, orders: orders, callbacks: callbacks, orderTTL: cfg.OrderTTL}
}

func (f *PaymentFacade) Login(ctx context.Context, merchantCode, secret string) (string, error) {
	return f.auth.Authenticate(ctx, merchantCode, secret)
}

func (f *PaymentFacade) ParseToken(token string) (string, error) {
	return f.auth.ParseToken(token)
}

func (f *PaymentFacade) CreateOrder(ctx context.Context, req usecase.CreateRequest) (*usecase.CreateResult, error) {
	return f.orders.Create(ctx, req)
}

func (f *PaymentFacade) ReCreateOrder(ctx context.Context, merchantCode, orderCode string) (*usecase.CreateResult, error) {
	if err := f.checkOwnership(ctx, merchantCode, orderCode); err != nil {
		return nil, err
	}
	return f.orders.ReCreate(ctx, orderCode)
}

func (f *PaymentFacade) CancelOrder(ctx context.Context, merchantCode, orderCode, reason string) (*model.Order, error) {
	if err := f.checkOwnership(ctx, merchantCode, orderCode); err != nil {
		return nil, err
	}
	return f.orders.Cancel(ctx, orderCode, reason)
}

func (f *PaymentFacade) CancelWalletOrder(ctx context.Context, merchantCode, orderCode, reason string) (*model.Order, error) {
	if err := f.checkOwnership(ctx, merchantCode, orderCode); err != nil {
		return nil, err
	}
	return f.orders.CancelWallet(ctx, orderCode, reason)
}

func (f *PaymentFacade) RefundOrder(ctx context.Context, merchantCode, orderCode, reason string, force bool) (*model.Order, error) {
	if err := f.checkOwnership(ctx, merchantCode, orderCode); err != nil {
		return nil, err
	}
	return f.orders.Refund(ctx, orderCode, reason, force)
}

func (f *PaymentFacade) OrderDetail(ctx context.Context, merchantCode, orderCode string) (*model.Order, error) {
	order, err := f.orders.Detail(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	if order.MerchantCode != merchantCode {
		return nil, domainErrors.ErrNotFound
	}
	return order, nil
}

func (f *PaymentFacade) OrderWaters(ctx context.Context, merchantCode, orderCode string) ([]model.OrderWater, error) {
	if err := f.checkOwnership(ctx, merchantCode, orderCode); err != nil {
		return nil, err
	}
	return f.orders.Waters(ctx, orderCode)
}

func (f *PaymentFacade) HandleCallback(ctx context.Context, providerName string, kind provider.CallbackKind, orderCode string, req provider.CallbackRequest) error {
	return f.callbacks.Handle(ctx, providerName, kind, orderCode, req)
}

// ExpiredPendingOrders returns pending orders whose payment deadline
// has passed.
func (f *PaymentFacade) ExpiredPendingOrders(ctx context.Context, limit int) ([]model.Order, error) {
	return f.orders.ExpiredPending(ctx, f.orderTTL, limit)
}

// ExpireOrder fails a single timed-out order.
func (f *PaymentFacade) ExpireOrder(ctx context.Context, orderCode string) error {
	return f.orders.ExpireOrder(ctx, orderCode)
}

func (f *PaymentFacade) checkOwnership(ctx context.Context, merchantCode, orderCode string) error {
	order, err := f.orders.Detail(ctx, orderCode)
	if err != nil {
		return err
	}
	if order.MerchantCode != merchantCode {
		return domainErrors.ErrNotFound
	}
	return nil
}
