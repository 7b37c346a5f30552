package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
	"paygate/internal/pkg/lock"
	"paygate/internal/provider"
)

const testTradeType = "stub_pay"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type coordinatorFixture struct {
	coordinator *Coordinator
	orders      *memOrders
	merchants   *memMerchants
	factory     *stubFactory
	creator     *stubCreator
	refunder    *stubRefunder
}

func newCoordinatorFixture(orders ...*model.Order) *coordinatorFixture {
	merchant := &model.Merchant{Code: "m-1", Status: model.MerchantEnabled}
	cfg := &model.ProviderConfig{MerchantCode: "m-1", TradeType: testTradeType, Settings: map[string]string{}}

	memO := newMemOrders(orders...)
	memM := newMemMerchants(merchant)
	memM.addConfig(cfg)

	creator := &stubCreator{resp: &provider.CreateResponse{Payload: map[string]string{"qr_code": "QR"}}}
	refunder := &stubRefunder{resp: &provider.RefundResponse{Status: model.RefundStatusProcessing}}

	registry := provider.NewRegistry(&provider.Provider{
		Name:           "stub",
		TradeTypes:     []string{testTradeType},
		Detector:       &stubDetector{cfg: cfg},
		Creator:        creator,
		Refunder:       refunder,
		WalletRefunder: refunder,
	})

	factory := newStubFactory(memO, memM)
	c := NewCoordinator(factory, passthroughUoW{}, registry, lock.NewLocalManager(), testLogger())
	c.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	c.newCode = func() string { return "P123" }

	return &coordinatorFixture{
		coordinator: c,
		orders:      memO,
		merchants:   memM,
		factory:     factory,
		creator:     creator,
		refunder:    refunder,
	}
}

func pendingOrder(code string) *model.Order {
	return &model.Order{
		Code:         code,
		MerchantCode: "m-1",
		TradeType:    testTradeType,
		Status:       model.StatusPending,
		TotalPrice:   decimal.NewFromFloat(19.90),
		CreatedAt:    time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC),
	}
}

func paidOrder(code string) *model.Order {
	o := pendingOrder(code)
	o.Status = model.StatusPaid
	o.TransactionID = "T1"
	return o
}

func TestCreatePersistsOrderAndWater(t *testing.T) {
	f := newCoordinatorFixture()

	res, err := f.coordinator.Create(context.Background(), CreateRequest{
		MerchantCode: "m-1",
		TradeType:    testTradeType,
		TotalPrice:   decimal.NewFromFloat(19.90),
		ProductName:  "widget",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.OrderCode != "P123" {
		t.Errorf("order code = %q", res.OrderCode)
	}
	if res.Payload["qr_code"] != "QR" {
		t.Errorf("payload = %v", res.Payload)
	}

	order, err := f.orders.GetByCode(context.Background(), "P123")
	if err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
	if order.Status != model.StatusPending {
		t.Errorf("status = %s", order.Status)
	}
	if len(f.factory.waters.rows) != 1 {
		t.Errorf("water rows = %d, want 1", len(f.factory.waters.rows))
	}
	if f.creator.finished != 1 {
		t.Errorf("OnFinish calls = %d, want 1", f.creator.finished)
	}
}

func TestCreateRollsBackOnCreatorFailure(t *testing.T) {
	f := newCoordinatorFixture()
	f.creator.err = errors.New("gateway down")

	_, err := f.coordinator.Create(context.Background(), CreateRequest{
		MerchantCode: "m-1",
		TradeType:    testTradeType,
	})
	if !errors.Is(err, domainErrors.ErrGatewayInvocation) {
		t.Fatalf("err = %v, want ErrGatewayInvocation", err)
	}
	if f.orders.inserts != 0 {
		t.Errorf("inserts = %d, want 0", f.orders.inserts)
	}
	if _, err := f.orders.GetByCode(context.Background(), "P123"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Errorf("order row exists after rollback")
	}
	if f.creator.finished != 0 {
		t.Errorf("OnFinish ran after failed create")
	}
}

func TestCreateRejectsUnknownMerchant(t *testing.T) {
	f := newCoordinatorFixture()
	_, err := f.coordinator.Create(context.Background(), CreateRequest{MerchantCode: "ghost", TradeType: testTradeType})
	if !errors.Is(err, domainErrors.ErrMerchantNotFound) {
		t.Fatalf("err = %v, want ErrMerchantNotFound", err)
	}
}

func TestCreateRejectsDisabledMerchant(t *testing.T) {
	f := newCoordinatorFixture()
	f.merchants.merchants["m-1"].Status = model.MerchantDisabled
	_, err := f.coordinator.Create(context.Background(), CreateRequest{MerchantCode: "m-1", TradeType: testTradeType})
	if !errors.Is(err, domainErrors.ErrMerchantDisabled) {
		t.Fatalf("err = %v, want ErrMerchantDisabled", err)
	}
	if f.creator.handled != 0 {
		t.Errorf("creator called for disabled merchant")
	}
}

func TestCreateRejectsUnknownTradeType(t *testing.T) {
	f := newCoordinatorFixture()
	_, err := f.coordinator.Create(context.Background(), CreateRequest{MerchantCode: "m-1", TradeType: "carrier_pigeon"})
	if !errors.Is(err, domainErrors.ErrUnsupportedTradeType) {
		t.Fatalf("err = %v, want ErrUnsupportedTradeType", err)
	}
}

func TestReCreateGuards(t *testing.T) {
	tests := []struct {
		name   string
		status model.OrderStatus
		reason string
	}{
		{"paid", model.StatusPaid, "already paid"},
		{"closed", model.StatusClosed, "already closed"},
		{"cancelled", model.StatusCancelled, "already closed"},
		{"refunding", model.StatusRefundProcessing, "abnormal status"},
		{"failed", model.StatusPayFailed, "abnormal status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := pendingOrder("P1")
			order.Status = tt.status
			f := newCoordinatorFixture(order)

			_, err := f.coordinator.ReCreate(context.Background(), "P1")
			se, ok := domainErrors.AsState(err)
			if !ok {
				t.Fatalf("err = %v, want StateError", err)
			}
			if se.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", se.Reason, tt.reason)
			}
			if f.creator.handled != 0 {
				t.Errorf("creator called despite guard")
			}
		})
	}
}

func TestReCreatePendingOrder(t *testing.T) {
	f := newCoordinatorFixture(pendingOrder("P1"))
	res, err := f.coordinator.ReCreate(context.Background(), "P1")
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if res.Payload["qr_code"] != "QR" {
		t.Errorf("payload = %v", res.Payload)
	}
	if f.creator.handled != 1 || f.creator.finished != 1 {
		t.Errorf("creator handled=%d finished=%d", f.creator.handled, f.creator.finished)
	}
}

func TestCancelGuards(t *testing.T) {
	tests := []struct {
		name   string
		status model.OrderStatus
		reason string
	}{
		{"refunding", model.StatusRefundProcessing, "refunding"},
		{"refund abnormal", model.StatusRefundAbnormal, "refunding"},
		{"refunded", model.StatusRefundSuccess, "already refunded"},
		{"cancelled", model.StatusCancelled, "already cancelled"},
		{"closed", model.StatusClosed, "already closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := pendingOrder("P1")
			order.Status = tt.status
			order.RefundCode = "RP1"
			f := newCoordinatorFixture(order)

			_, err := f.coordinator.Cancel(context.Background(), "P1", "changed mind")
			se, ok := domainErrors.AsState(err)
			if !ok {
				t.Fatalf("err = %v, want StateError", err)
			}
			if se.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", se.Reason, tt.reason)
			}

			stored, err := f.orders.GetByCode(context.Background(), "P1")
			if err != nil {
				t.Fatalf("get order: %v", err)
			}
			if stored.Status != tt.status {
				t.Errorf("status = %s, want %s", stored.Status, tt.status)
			}
			if stored.RefundCode != "RP1" {
				t.Errorf("refund code = %q, want untouched", stored.RefundCode)
			}
		})
	}
}

func TestCancelClosesOrder(t *testing.T) {
	f := newCoordinatorFixture(pendingOrder("P1"))
	order, err := f.coordinator.Cancel(context.Background(), "P1", "changed mind")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if order.Status != model.StatusClosed {
		t.Errorf("status = %s", order.Status)
	}
	if order.RefundCode != "RCP1" {
		t.Errorf("refund code = %q", order.RefundCode)
	}
	if order.RefundReason != "changed mind" {
		t.Errorf("refund reason = %q", order.RefundReason)
	}
	if f.refunder.handled != 0 {
		t.Errorf("administrative cancel called the provider")
	}
}

func TestCancelWalletGuards(t *testing.T) {
	tests := []struct {
		name   string
		status model.OrderStatus
		reason string
	}{
		{"refunding", model.StatusRefundProcessing, "refunding"},
		{"refunded", model.StatusRefundSuccess, "already refunded"},
		{"cancelled", model.StatusCancelled, "already cancelled"},
		{"closed", model.StatusClosed, "already closed"},
		{"pending", model.StatusPending, "not paid"},
		{"failed", model.StatusPayFailed, "timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := pendingOrder("P1")
			order.Status = tt.status
			f := newCoordinatorFixture(order)

			_, err := f.coordinator.CancelWallet(context.Background(), "P1", "return")
			se, ok := domainErrors.AsState(err)
			if !ok {
				t.Fatalf("err = %v, want StateError", err)
			}
			if se.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", se.Reason, tt.reason)
			}
			if f.refunder.handled != 0 {
				t.Errorf("refunder called despite guard")
			}
		})
	}
}

func TestCancelWalletSettlesByRefundStatus(t *testing.T) {
	tests := []struct {
		name   string
		status model.RefundStatus
		want   model.OrderStatus
	}{
		{"success", model.RefundStatusSuccess, model.StatusCancelled},
		{"processing", model.RefundStatusProcessing, model.StatusRefundProcessing},
		{"closed", model.RefundStatusClosed, model.StatusClosed},
		{"abnormal", model.RefundStatusAbnormal, model.StatusRefundAbnormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCoordinatorFixture(paidOrder("P1"))
			f.refunder.resp = &provider.RefundResponse{Status: tt.status}

			order, err := f.coordinator.CancelWallet(context.Background(), "P1", "return")
			if err != nil {
				t.Fatalf("cancel wallet: %v", err)
			}
			if order.Status != tt.want {
				t.Errorf("status = %s, want %s", order.Status, tt.want)
			}
			if order.RefundCode != "RCP1" {
				t.Errorf("refund code = %q", order.RefundCode)
			}
		})
	}
}

func TestRefundGuards(t *testing.T) {
	tests := []struct {
		name   string
		status model.OrderStatus
		reason string
	}{
		{"pending", model.StatusPending, "not paid"},
		{"failed", model.StatusPayFailed, "not paid"},
		{"closed", model.StatusClosed, "not paid"},
		{"refunding", model.StatusRefundProcessing, "already refunded"},
		{"refunded", model.StatusRefundSuccess, "already refunded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := pendingOrder("P1")
			order.Status = tt.status
			f := newCoordinatorFixture(order)

			_, err := f.coordinator.Refund(context.Background(), "P1", "defect", false)
			se, ok := domainErrors.AsState(err)
			if !ok {
				t.Fatalf("err = %v, want StateError", err)
			}
			if se.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", se.Reason, tt.reason)
			}
		})
	}
}

func TestRefundPaidOrder(t *testing.T) {
	f := newCoordinatorFixture(paidOrder("P1"))
	f.refunder.resp = &provider.RefundResponse{Status: model.RefundStatusSuccess}

	order, err := f.coordinator.Refund(context.Background(), "P1", "defect", false)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if order.Status != model.StatusRefundSuccess {
		t.Errorf("status = %s", order.Status)
	}
	if order.RefundCode != "RP1" {
		t.Errorf("refund code = %q", order.RefundCode)
	}
	if order.RefundCreateTime == nil {
		t.Error("refund create time not stamped")
	}
}

func TestRefundForceBypassesDisabledMerchant(t *testing.T) {
	f := newCoordinatorFixture(paidOrder("P1"))
	f.merchants.merchants["m-1"].Status = model.MerchantDisabled

	if _, err := f.coordinator.Refund(context.Background(), "P1", "defect", false); !errors.Is(err, domainErrors.ErrMerchantDisabled) {
		t.Fatalf("err = %v, want ErrMerchantDisabled", err)
	}
	if _, err := f.coordinator.Refund(context.Background(), "P1", "defect", true); err != nil {
		t.Fatalf("forced refund: %v", err)
	}
}

func TestRefundRollsBackOnGatewayFailure(t *testing.T) {
	f := newCoordinatorFixture(paidOrder("P1"))
	f.refunder.err = errors.New("gateway down")

	_, err := f.coordinator.Refund(context.Background(), "P1", "defect", false)
	if !errors.Is(err, domainErrors.ErrGatewayInvocation) {
		t.Fatalf("err = %v, want ErrGatewayInvocation", err)
	}
	if f.orders.updates != 0 {
		t.Errorf("updates = %d, want 0", f.orders.updates)
	}
}

func TestConcurrentOperationRejected(t *testing.T) {
	f := newCoordinatorFixture(paidOrder("P1"))

	manager := lock.NewLocalManager()
	f.coordinator.locks = manager
	release, err := manager.Acquire(context.Background(), "order:P1", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	if _, err := f.coordinator.Refund(context.Background(), "P1", "defect", false); !errors.Is(err, domainErrors.ErrOperationInProgress) {
		t.Fatalf("err = %v, want ErrOperationInProgress", err)
	}
}

func TestExpiredPendingHonorsCutoff(t *testing.T) {
	stale := pendingOrder("P1")
	fresh := pendingOrder("P2")
	fresh.CreatedAt = time.Date(2026, 9, 1, 11, 59, 0, 0, time.UTC)
	f := newCoordinatorFixture(stale, fresh)

	orders, err := f.coordinator.ExpiredPending(context.Background(), 30*time.Minute, 10)
	if err != nil {
		t.Fatalf("expired pending: %v", err)
	}
	if len(orders) != 1 || orders[0].Code != "P1" {
		t.Fatalf("orders = %+v", orders)
	}
}

func TestExpireOrderMarksTimedOut(t *testing.T) {
	f := newCoordinatorFixture(pendingOrder("P1"))

	if err := f.coordinator.ExpireOrder(context.Background(), "P1"); err != nil {
		t.Fatalf("expire: %v", err)
	}
	order, _ := f.orders.GetByCode(context.Background(), "P1")
	if order.Status != model.StatusPayFailed {
		t.Errorf("status = %s", order.Status)
	}
	if order.FailMessage != "payment timed out" {
		t.Errorf("fail message = %q", order.FailMessage)
	}
}

func TestExpireOrderLeavesPaidAlone(t *testing.T) {
	f := newCoordinatorFixture(paidOrder("P1"))

	if err := f.coordinator.ExpireOrder(context.Background(), "P1"); err != nil {
		t.Fatalf("expire: %v", err)
	}
	order, _ := f.orders.GetByCode(context.Background(), "P1")
	if order.Status != model.StatusPaid {
		t.Errorf("paid order expired")
	}
	if f.orders.updates != 0 {
		t.Errorf("updates = %d, want 0", f.orders.updates)
	}
}
