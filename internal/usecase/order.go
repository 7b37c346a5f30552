package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
	"paygate/internal/domain/repository"
	"paygate/internal/pkg/lock"
	"paygate/internal/provider"
)

const lockTTL = 30 * time.Second

// CreateRequest carries the merchant's order-creation input.
type CreateRequest struct {
	MerchantCode  string
	TradeType     string
	Price         decimal.Decimal
	TotalPrice    decimal.Decimal
	CouponCode    string
	ProductName   string
	Attach        string
	Remark        string
	Origin        string
	Browser       string
	BrowserSystem string
}

// CreateResult is the provider payload plus the assigned order code.
type CreateResult struct {
	OrderCode string
	Payload   map[string]string
}

// Coordinator drives the order lifecycle: create, re-create, cancel,
// refund and expiry. Every guard-then-mutate section runs under a
// per-order mutex plus a row lock inside one transaction.
type Coordinator struct {
	repos    repository.Factory
	uow      repository.UnitOfWork
	registry *provider.Registry
	locks    lock.Manager
	logger   *slog.Logger

	now     func() time.Time
	newCode func() string
}

// NewCoordinator assembles a lifecycle coordinator.
func NewCoordinator(repos repository.Factory, uow repository.UnitOfWork, registry *provider.Registry, locks lock.Manager, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		repos:    repos,
		uow:      uow,
		registry: registry,
		locks:    locks,
		logger:   logger,
		now:      time.Now,
		newCode:  newOrderCode,
	}
}

func newOrderCode() string {
	u := uuid.New()
	return fmt.Sprintf("P%d%x", time.Now().UnixMilli(), u[:4])
}

func newWaterCode() string {
	u := uuid.New()
	return fmt.Sprintf("W%d%x", time.Now().UnixMilli(), u[:4])
}

func (c *Coordinator) resolveMerchant(ctx context.Context, code string, force bool) (*model.Merchant, error) {
	merchant, err := c.repos.Merchants().GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domainErrors.ErrMerchantNotFound, code)
		}
		return nil, err
	}
	if !force && merchant.Status != model.MerchantEnabled {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrMerchantDisabled, code)
	}
	return merchant, nil
}

func (c *Coordinator) appendWater(ctx context.Context, order *model.Order) error {
	return c.repos.Waters().Append(ctx, &model.OrderWater{
		WaterCode: newWaterCode(),
		OrderCode: order.Code,
		Status:    order.Status,
		CreatedAt: c.now(),
	})
}

// Create registers a new order with the provider and persists it in one
// transaction. A failed provider call rolls everything back so no order
// row ever exists without its external counterpart.
func (c *Coordinator) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	merchant, err := c.resolveMerchant(ctx, req.MerchantCode, false)
	if err != nil {
		return nil, err
	}
	prov, err := c.registry.ByTradeType(req.TradeType)
	if err != nil {
		return nil, err
	}
	cfg, err := prov.Detector.Check(ctx, merchant, req.TradeType)
	if err != nil {
		return nil, err
	}

	now := c.now()
	order := &model.Order{
		Code:          c.newCode(),
		MerchantCode:  merchant.Code,
		TradeType:     req.TradeType,
		Status:        model.StatusPending,
		Price:         req.Price,
		TotalPrice:    req.TotalPrice,
		CouponCode:    req.CouponCode,
		ProductName:   req.ProductName,
		Attach:        req.Attach,
		Remark:        req.Remark,
		Origin:        req.Origin,
		Browser:       req.Browser,
		BrowserSystem: req.BrowserSystem,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var resp *provider.CreateResponse
	gatewayDone := false
	err = c.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		resp, err = prov.Creator.Handle(ctx, cfg, order)
		if err != nil {
			return fmt.Errorf("%w: %v", domainErrors.ErrGatewayInvocation, err)
		}
		gatewayDone = true
		if err := c.repos.Orders().Insert(ctx, order); err != nil {
			return err
		}
		return c.appendWater(ctx, order)
	})
	if err != nil {
		if gatewayDone {
			// The provider-side order exists but the local commit
			// failed. There is no cross-system transaction to undo
			// it, so surface the orphan loudly.
			c.logger.Error("provider resource orphaned by failed commit",
				slog.String("order", order.Code),
				slog.String("trade_type", order.TradeType),
				slog.Any("error", err),
			)
		}
		return nil, err
	}

	prov.Creator.OnFinish(ctx, order)
	return &CreateResult{OrderCode: order.Code, Payload: resp.Payload}, nil
}

func recreateGuard(order *model.Order) error {
	switch {
	case order.Status.InPaidFamily():
		return domainErrors.NewState(order.Code, string(order.Status), "already paid")
	case order.Status.InClosedFamily():
		return domainErrors.NewState(order.Code, string(order.Status), "already closed")
	case !order.Status.InPendingFamily():
		return domainErrors.NewState(order.Code, string(order.Status), "abnormal status")
	}
	return nil
}

// ReCreate re-registers a still-pending order with its provider,
// reusing the stored merchant and trade type.
func (c *Coordinator) ReCreate(ctx context.Context, orderCode string) (*CreateResult, error) {
	release, err := c.locks.Acquire(ctx, "order:"+orderCode, lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := c.repos.Orders().GetByCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	if err := recreateGuard(order); err != nil {
		return nil, err
	}
	merchant, err := c.resolveMerchant(ctx, order.MerchantCode, false)
	if err != nil {
		return nil, err
	}
	prov, err := c.registry.ByTradeType(order.TradeType)
	if err != nil {
		return nil, err
	}
	cfg, err := prov.Detector.Check(ctx, merchant, order.TradeType)
	if err != nil {
		return nil, err
	}

	var resp *provider.CreateResponse
	gatewayDone := false
	err = c.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err = c.repos.Orders().GetByCodeForUpdate(ctx, orderCode)
		if err != nil {
			return err
		}
		if err := recreateGuard(order); err != nil {
			return err
		}
		resp, err = prov.Creator.Handle(ctx, cfg, order)
		if err != nil {
			return fmt.Errorf("%w: %v", domainErrors.ErrGatewayInvocation, err)
		}
		gatewayDone = true
		order.UpdatedAt = c.now()
		if err := c.repos.Orders().UpdateByCode(ctx, order); err != nil {
			return err
		}
		return c.appendWater(ctx, order)
	})
	if err != nil {
		if gatewayDone {
			c.logger.Error("provider resource orphaned by failed commit",
				slog.String("order", orderCode),
				slog.Any("error", err),
			)
		}
		return nil, err
	}

	prov.Creator.OnFinish(ctx, order)
	return &CreateResult{OrderCode: order.Code, Payload: resp.Payload}, nil
}

func cancelGuard(order *model.Order) error {
	switch {
	case order.Status == model.StatusRefundSuccess:
		return domainErrors.NewState(order.Code, string(order.Status), "already refunded")
	case order.Status.InRefundFamily():
		return domainErrors.NewState(order.Code, string(order.Status), "refunding")
	case order.Status == model.StatusCancelled:
		return domainErrors.NewState(order.Code, string(order.Status), "already cancelled")
	case order.Status.InClosedFamily():
		return domainErrors.NewState(order.Code, string(order.Status), "already closed")
	}
	return nil
}

// Cancel closes an order administratively. No provider call is made and
// no money moves.
func (c *Coordinator) Cancel(ctx context.Context, orderCode, reason string) (*model.Order, error) {
	release, err := c.locks.Acquire(ctx, "order:"+orderCode, lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	var order *model.Order
	err = c.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err = c.repos.Orders().GetByCodeForUpdate(ctx, orderCode)
		if err != nil {
			return err
		}
		if err := cancelGuard(order); err != nil {
			return err
		}
		order.Status = model.StatusClosed
		order.RefundCode = "RC" + order.Code
		order.RefundReason = reason
		order.UpdatedAt = c.now()
		if err := c.repos.Orders().UpdateByCode(ctx, order); err != nil {
			return err
		}
		return c.appendWater(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func cancelWalletGuard(order *model.Order) error {
	switch {
	case order.Status == model.StatusRefundProcessing:
		return domainErrors.NewState(order.Code, string(order.Status), "refunding")
	case order.Status == model.StatusRefundSuccess:
		return domainErrors.NewState(order.Code, string(order.Status), "already refunded")
	case order.Status == model.StatusCancelled:
		return domainErrors.NewState(order.Code, string(order.Status), "already cancelled")
	case order.Status.InClosedFamily():
		return domainErrors.NewState(order.Code, string(order.Status), "already closed")
	case order.Status.InPendingFamily():
		return domainErrors.NewState(order.Code, string(order.Status), "not paid")
	case order.Status.InFailedFamily():
		return domainErrors.NewState(order.Code, string(order.Status), "timed out")
	}
	return nil
}

// CancelWallet refunds a wallet-paid order in full through the
// provider's wallet refund call and settles the order according to the
// reported refund status.
func (c *Coordinator) CancelWallet(ctx context.Context, orderCode, reason string) (*model.Order, error) {
	release, err := c.locks.Acquire(ctx, "order:"+orderCode, lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := c.repos.Orders().GetByCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	if err := cancelWalletGuard(order); err != nil {
		return nil, err
	}
	merchant, err := c.resolveMerchant(ctx, order.MerchantCode, false)
	if err != nil {
		return nil, err
	}
	prov, err := c.registry.ByTradeType(order.TradeType)
	if err != nil {
		return nil, err
	}
	if prov.WalletRefunder == nil {
		return nil, fmt.Errorf("%w: %s has no wallet refunds", domainErrors.ErrUnsupportedTradeType, order.TradeType)
	}
	cfg, err := prov.Detector.Check(ctx, merchant, order.TradeType)
	if err != nil {
		return nil, err
	}

	err = c.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err = c.repos.Orders().GetByCodeForUpdate(ctx, orderCode)
		if err != nil {
			return err
		}
		if err := cancelWalletGuard(order); err != nil {
			return err
		}
		order.RefundCode = "RC" + order.Code
		order.RefundReason = reason
		resp, err := prov.WalletRefunder.Handle(ctx, cfg, order, provider.RefundRequest{
			RefundCode: order.RefundCode,
			Amount:     order.TotalPrice,
			Reason:     reason,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", domainErrors.ErrGatewayInvocation, err)
		}
		return c.settleRefund(ctx, order, resp, true)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func refundGuard(order *model.Order) error {
	switch {
	case order.Status.InRefundFamily():
		return domainErrors.NewState(order.Code, string(order.Status), "already refunded")
	case !order.Status.InPaidFamily():
		return domainErrors.NewState(order.Code, string(order.Status), "not paid")
	}
	return nil
}

// Refund submits a refund for a paid order. force bypasses the
// merchant-enabled check for operator-driven refunds.
func (c *Coordinator) Refund(ctx context.Context, orderCode, reason string, force bool) (*model.Order, error) {
	release, err := c.locks.Acquire(ctx, "order:"+orderCode, lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := c.repos.Orders().GetByCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	if err := refundGuard(order); err != nil {
		return nil, err
	}
	merchant, err := c.resolveMerchant(ctx, order.MerchantCode, force)
	if err != nil {
		return nil, err
	}
	prov, err := c.registry.ByTradeType(order.TradeType)
	if err != nil {
		return nil, err
	}
	if prov.Refunder == nil {
		return nil, fmt.Errorf("%w: %s has no refunds", domainErrors.ErrUnsupportedTradeType, order.TradeType)
	}
	cfg, err := prov.Detector.Check(ctx, merchant, order.TradeType)
	if err != nil {
		return nil, err
	}

	err = c.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err = c.repos.Orders().GetByCodeForUpdate(ctx, orderCode)
		if err != nil {
			return err
		}
		if err := refundGuard(order); err != nil {
			return err
		}
		order.Status = model.StatusRefundProcessing
		order.RefundCode = "R" + order.Code
		order.RefundReason = reason
		resp, err := prov.Refunder.Handle(ctx, cfg, order, provider.RefundRequest{
			RefundCode: order.RefundCode,
			Amount:     order.TotalPrice,
			Reason:     reason,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", domainErrors.ErrGatewayInvocation, err)
		}
		return c.settleRefund(ctx, order, resp, false)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (c *Coordinator) settleRefund(ctx context.Context, order *model.Order, resp *provider.RefundResponse, wallet bool) error {
	status, err := RefundOrderStatus(resp.Status, wallet)
	if err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrGatewayInvocation, err)
	}
	order.Status = status
	now := c.now()
	if resp.CreateTime != nil {
		order.RefundCreateTime = resp.CreateTime
	} else {
		order.RefundCreateTime = &now
	}
	if resp.SuccessTime != nil {
		order.RefundSuccessTime = resp.SuccessTime
	}
	order.UpdatedAt = now
	if err := c.repos.Orders().UpdateByCode(ctx, order); err != nil {
		return err
	}
	return c.appendWater(ctx, order)
}

// Detail returns an order by its code.
func (c *Coordinator) Detail(ctx context.Context, orderCode string) (*model.Order, error) {
	return c.repos.Orders().GetByCode(ctx, orderCode)
}

// Waters lists the audit trail for an order.
func (c *Coordinator) Waters(ctx context.Context, orderCode string) ([]model.OrderWater, error) {
	if _, err := c.repos.Orders().GetByCode(ctx, orderCode); err != nil {
		return nil, err
	}
	return c.repos.Waters().ListByOrder(ctx, orderCode)
}

// ExpiredPending lists pending orders created before the ttl cutoff.
func (c *Coordinator) ExpiredPending(ctx context.Context, ttl time.Duration, limit int) ([]model.Order, error) {
	return c.repos.Orders().SelectExpiredPending(ctx, c.now().Add(-ttl), limit)
}

// ExpireOrder marks a pending order as failed with a timeout message.
// An order that left the pending state in the meantime is left alone.
func (c *Coordinator) ExpireOrder(ctx context.Context, orderCode string) error {
	release, err := c.locks.Acquire(ctx, "order:"+orderCode, lockTTL)
	if err != nil {
		return err
	}
	defer release()

	return c.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := c.repos.Orders().GetByCodeForUpdate(ctx, orderCode)
		if err != nil {
			return err
		}
		if !order.Status.InPendingFamily() {
			return nil
		}
		order.Status = model.StatusPayFailed
		order.FailMessage = "payment timed out"
		order.UpdatedAt = c.now()
		if err := c.repos.Orders().UpdateByCode(ctx, order); err != nil {
			return err
		}
		return c.appendWater(ctx, order)
	})
}
