package test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"paygate/internal/domain/model"
	"paygate/internal/provider"
	"paygate/internal/usecase"
)

// AuthFacadeStub provides controllable behaviour for auth endpoints.
type AuthFacadeStub struct {
	LoginFn      func(context.Context, string, string) (string, error)
	ParseTokenFn func(string) (string, error)
}

// Login delegates to provided function or returns a fixed token.
func (s AuthFacadeStub) Login(ctx context.Context, merchantCode, secret string) (string, error) {
	if s.LoginFn != nil {
		return s.LoginFn(ctx, merchantCode, secret)
	}
	return "session-token", nil
}

// ParseToken delegates to provided function or echoes a merchant code.
func (s AuthFacadeStub) ParseToken(token string) (string, error) {
	if s.ParseTokenFn != nil {
		return s.ParseTokenFn(token)
	}
	return "M1", nil
}

// OrderFacadeStub provides controllable behaviour for order endpoints.
type OrderFacadeStub struct {
	CreateFn       func(context.Context, usecase.CreateRequest) (*usecase.CreateResult, error)
	ReCreateFn     func(context.Context, string, string) (*usecase.CreateResult, error)
	CancelFn       func(context.Context, string, string, string) (*model.Order, error)
	CancelWalletFn func(context.Context, string, string, string) (*model.Order, error)
	RefundFn       func(context.Context, string, string, string, bool) (*model.Order, error)
	DetailFn       func(context.Context, string, string) (*model.Order, error)
	WatersFn       func(context.Context, string, string) ([]model.OrderWater, error)
}

// CreateOrder delegates to provided function or returns a default result.
func (s OrderFacadeStub) CreateOrder(ctx context.Context, req usecase.CreateRequest) (*usecase.CreateResult, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, req)
	}
	return &usecase.CreateResult{OrderCode: "P1", Payload: map[string]string{"code_url": "weixin://pay"}}, nil
}

// ReCreateOrder delegates to provided function or returns a default result.
func (s OrderFacadeStub) ReCreateOrder(ctx context.Context, merchantCode, orderCode string) (*usecase.CreateResult, error) {
	if s.ReCreateFn != nil {
		return s.ReCreateFn(ctx, merchantCode, orderCode)
	}
	return &usecase.CreateResult{OrderCode: orderCode, Payload: map[string]string{}}, nil
}

// CancelOrder delegates to provided function or returns a closed order.
func (s OrderFacadeStub) CancelOrder(ctx context.Context, merchantCode, orderCode, reason string) (*model.Order, error) {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, merchantCode, orderCode, reason)
	}
	return defaultOrder(merchantCode, orderCode, model.StatusClosed), nil
}

// CancelWalletOrder delegates to provided function or returns a cancelled order.
func (s OrderFacadeStub) CancelWalletOrder(ctx context.Context, merchantCode, orderCode, reason string) (*model.Order, error) {
	if s.CancelWalletFn != nil {
		return s.CancelWalletFn(ctx, merchantCode, orderCode, reason)
	}
	return defaultOrder(merchantCode, orderCode, model.StatusCancelled), nil
}

// RefundOrder delegates to provided function or returns a refunding order.
func (s OrderFacadeStub) RefundOrder(ctx context.Context, merchantCode, orderCode, reason string, force bool) (*model.Order, error) {
	if s.RefundFn != nil {
		return s.RefundFn(ctx, merchantCode, orderCode, reason, force)
	}
	return defaultOrder(merchantCode, orderCode, model.StatusRefundProcessing), nil
}

// OrderDetail delegates to provided function or returns a pending order.
func (s OrderFacadeStub) OrderDetail(ctx context.Context, merchantCode, orderCode string) (*model.Order, error) {
	if s.DetailFn != nil {
		return s.DetailFn(ctx, merchantCode, orderCode)
	}
	return defaultOrder(merchantCode, orderCode, model.StatusPending), nil
}

// OrderWaters delegates to provided function or returns one audit entry.
func (s OrderFacadeStub) OrderWaters(ctx context.Context, merchantCode, orderCode string) ([]model.OrderWater, error) {
	if s.WatersFn != nil {
		return s.WatersFn(ctx, merchantCode, orderCode)
	}
	return []model.OrderWater{{OrderCode: orderCode, WaterCode: "W1", Status: model.StatusPending, CreatedAt: time.Unix(0, 0)}}, nil
}

// CallbackFacadeStub simulates webhook processing.
type CallbackFacadeStub struct {
	HandleFn func(context.Context, string, provider.CallbackKind, string, provider.CallbackRequest) error
	Calls    []CallbackCall
}

// CallbackCall stores information about HandleCallback invocations.
type CallbackCall struct {
	Provider  string
	Kind      provider.CallbackKind
	OrderCode string
	Request   provider.CallbackRequest
}

// HandleCallback records the call and delegates to the provided function.
func (s *CallbackFacadeStub) HandleCallback(ctx context.Context, providerName string, kind provider.CallbackKind, orderCode string, req provider.CallbackRequest) error {
	s.Calls = append(s.Calls, CallbackCall{Provider: providerName, Kind: kind, OrderCode: orderCode, Request: req})
	if s.HandleFn != nil {
		return s.HandleFn(ctx, providerName, kind, orderCode, req)
	}
	return nil
}

// PaymentFacadeStub aggregates all facade stubs for router-level tests.
type PaymentFacadeStub struct {
	AuthFacadeStub
	OrderFacadeStub
	*CallbackFacadeStub
}

// NewPaymentFacadeStub creates a stub with a recording callback facade.
func NewPaymentFacadeStub() *PaymentFacadeStub {
	return &PaymentFacadeStub{CallbackFacadeStub: &CallbackFacadeStub{}}
}

func defaultOrder(merchantCode, orderCode string, status model.OrderStatus) *model.Order {
	return &model.Order{
		Code:         orderCode,
		MerchantCode: merchantCode,
		TradeType:    "wechat_native",
		Status:       status,
		Price:        decimal.NewFromInt(10),
		TotalPrice:   decimal.NewFromInt(10),
		ProductName:  "widget",
		CreatedAt:    time.Unix(0, 0),
	}
}
