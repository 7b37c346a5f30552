package test

import (
	"context"
	"sync"
	"time"

	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
	"paygate/internal/domain/repository"
)

// OrderRepositoryStub keeps orders in memory keyed by order code.
type OrderRepositoryStub struct {
	mu     sync.Mutex
	orders map[string]*model.Order
}

// NewOrderRepositoryStub creates an empty in-memory order repository.
func NewOrderRepositoryStub() *OrderRepositoryStub {
	return &OrderRepositoryStub{orders: make(map[string]*model.Order)}
}

// Seed stores an order bypassing Insert bookkeeping.
func (r *OrderRepositoryStub) Seed(order *model.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders[order.Code] = &cp
}

func (r *OrderRepositoryStub) GetByCode(ctx context.Context, code string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[code]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (r *OrderRepositoryStub) GetByCodeForUpdate(ctx context.Context, code string) (*model.Order, error) {
	return r.GetByCode(ctx, code)
}

func (r *OrderRepositoryStub) Insert(ctx context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.Code]; ok {
		return domainErrors.ErrAlreadyExists
	}
	cp := *order
	r.orders[order.Code] = &cp
	return nil
}

func (r *OrderRepositoryStub) UpdateByCode(ctx context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.Code]
	if !ok || stored.Version != order.Version {
		return domainErrors.ErrWriteConflict
	}
	cp := *order
	cp.Version++
	r.orders[order.Code] = &cp
	order.Version++
	return nil
}

func (r *OrderRepositoryStub) SelectExpiredPending(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Order
	for _, order := range r.orders {
		if len(out) >= limit {
			break
		}
		if order.Status.InPendingFamily() && order.CreatedAt.Before(olderThan) {
			out = append(out, *order)
		}
	}
	return out, nil
}

// MerchantRepositoryStub serves merchants and configs from maps.
type MerchantRepositoryStub struct {
	Merchants map[string]*model.Merchant
	Configs   map[string]*model.ProviderConfig
}

// NewMerchantRepositoryStub creates an empty merchant repository stub.
func NewMerchantRepositoryStub() *MerchantRepositoryStub {
	return &MerchantRepositoryStub{
		Merchants: make(map[string]*model.Merchant),
		Configs:   make(map[string]*model.ProviderConfig),
	}
}

// AddConfig registers provider credentials for a merchant trade type.
func (r *MerchantRepositoryStub) AddConfig(merchantCode, tradeType string, cfg *model.ProviderConfig) {
	r.Configs[merchantCode+"/"+tradeType] = cfg
}

func (r *MerchantRepositoryStub) GetByCode(ctx context.Context, code string) (*model.Merchant, error) {
	merchant, ok := r.Merchants[code]
	if !ok {
		return nil, domainErrors.ErrMerchantNotFound
	}
	return merchant, nil
}

func (r *MerchantRepositoryStub) GetConfig(ctx context.Context, merchantCode, tradeType string) (*model.ProviderConfig, error) {
	cfg, ok := r.Configs[merchantCode+"/"+tradeType]
	if !ok {
		return nil, domainErrors.ErrConfigMissing
	}
	return cfg, nil
}

// WaterRepositoryStub collects appended audit entries.
type WaterRepositoryStub struct {
	mu     sync.Mutex
	Waters []model.OrderWater
}

func (r *WaterRepositoryStub) Append(ctx context.Context, water *model.OrderWater) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Waters = append(r.Waters, *water)
	return nil
}

func (r *WaterRepositoryStub) ListByOrder(ctx context.Context, orderCode string) ([]model.OrderWater, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.OrderWater
	for _, w := range r.Waters {
		if w.OrderCode == orderCode {
			out = append(out, w)
		}
	}
	return out, nil
}

// FailureRepositoryStub collects failed callback records.
type FailureRepositoryStub struct {
	mu      sync.Mutex
	Records []model.FailureRecord
}

func (r *FailureRepositoryStub) Append(ctx context.Context, record *model.FailureRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Records = append(r.Records, *record)
	return nil
}

// FactoryStub bundles repository stubs behind the factory interface.
type FactoryStub struct {
	OrderRepo    *OrderRepositoryStub
	MerchantRepo *MerchantRepositoryStub
	WaterRepo    *WaterRepositoryStub
	FailureRepo  *FailureRepositoryStub
}

// NewFactoryStub creates a factory with fresh repository stubs.
func NewFactoryStub() *FactoryStub {
	return &FactoryStub{
		OrderRepo:    NewOrderRepositoryStub(),
		MerchantRepo: NewMerchantRepositoryStub(),
		WaterRepo:    &WaterRepositoryStub{},
		FailureRepo:  &FailureRepositoryStub{},
	}
}

func (f *FactoryStub) Orders() repository.OrderRepository       { return f.OrderRepo }
func (f *FactoryStub) Merchants() repository.MerchantRepository { return f.MerchantRepo }
func (f *FactoryStub) Waters() repository.WaterRepository       { return f.WaterRepo }
func (f *FactoryStub) Failures() repository.FailureRepository   { return f.FailureRepo }

// UnitOfWorkStub runs the callback without any transaction.
type UnitOfWorkStub struct{}

func (UnitOfWorkStub) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
