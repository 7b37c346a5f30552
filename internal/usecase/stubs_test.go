package usecase

import (
	"context"
	"time"

	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
	"paygate/internal/domain/repository"
	"paygate/internal/provider"
)

type memOrders struct {
	byCode     map[string]*model.Order
	insertErr  error
	updateErrs []error
	inserts    int
	updates    int
	reads      int
}

func newMemOrders(orders ...*model.Order) *memOrders {
	m := &memOrders{byCode: make(map[string]*model.Order)}
	for _, o := range orders {
		clone := *o
		m.byCode[o.Code] = &clone
	}
	return m
}

func (m *memOrders) get(code string) (*model.Order, error) {
	o, ok := m.byCode[code]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (m *memOrders) GetByCode(_ context.Context, code string) (*model.Order, error) {
	m.reads++
	return m.get(code)
}

func (m *memOrders) GetByCodeForUpdate(_ context.Context, code string) (*model.Order, error) {
	m.reads++
	return m.get(code)
}

func (m *memOrders) Insert(_ context.Context, order *model.Order) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserts++
	clone := *order
	m.byCode[order.Code] = &clone
	return nil
}

func (m *memOrders) UpdateByCode(_ context.Context, order *model.Order) error {
	m.updates++
	if len(m.updateErrs) > 0 {
		err := m.updateErrs[0]
		m.updateErrs = m.updateErrs[1:]
		if err != nil {
			return err
		}
	}
	clone := *order
	clone.Version++
	m.byCode[order.Code] = &clone
	return nil
}

func (m *memOrders) SelectExpiredPending(_ context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.byCode {
		if o.Status.InPendingFamily() && o.CreatedAt.Before(olderThan) {
			out = append(out, *o)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memMerchants struct {
	merchants map[string]*model.Merchant
	configs   map[string]*model.ProviderConfig
}

func newMemMerchants(merchants ...*model.Merchant) *memMerchants {
	m := &memMerchants{
		merchants: make(map[string]*model.Merchant),
		configs:   make(map[string]*model.ProviderConfig),
	}
	for _, mr := range merchants {
		m.merchants[mr.Code] = mr
	}
	return m
}

func (m *memMerchants) addConfig(cfg *model.ProviderConfig) {
	m.configs[cfg.MerchantCode+"/"+cfg.TradeType] = cfg
}

func (m *memMerchants) GetByCode(_ context.Context, code string) (*model.Merchant, error) {
	mr, ok := m.merchants[code]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return mr, nil
}

func (m *memMerchants) GetConfig(_ context.Context, merchantCode, tradeType string) (*model.ProviderConfig, error) {
	cfg, ok := m.configs[merchantCode+"/"+tradeType]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return cfg, nil
}

type memWaters struct {
	rows []model.OrderWater
}

func (m *memWaters) Append(_ context.Context, water *model.OrderWater) error {
	m.rows = append(m.rows, *water)
	return nil
}

func (m *memWaters) ListByOrder(_ context.Context, orderCode string) ([]model.OrderWater, error) {
	var out []model.OrderWater
	for _, w := range m.rows {
		if w.OrderCode == orderCode {
			out = append(out, w)
		}
	}
	return out, nil
}

type memFailures struct {
	rows []model.FailureRecord
}

func (m *memFailures) Append(_ context.Context, record *model.FailureRecord) error {
	m.rows = append(m.rows, *record)
	return nil
}

type stubFactory struct {
	orders    *memOrders
	merchants *memMerchants
	waters    *memWaters
	failures  *memFailures
}

func newStubFactory(orders *memOrders, merchants *memMerchants) *stubFactory {
	return &stubFactory{
		orders:    orders,
		merchants: merchants,
		waters:    &memWaters{},
		failures:  &memFailures{},
	}
}

func (f *stubFactory) Orders() repository.OrderRepository       { return f.orders }
func (f *stubFactory) Merchants() repository.MerchantRepository { return f.merchants }
func (f *stubFactory) Waters() repository.WaterRepository       { return f.waters }
func (f *stubFactory) Failures() repository.FailureRepository   { return f.failures }

type passthroughUoW struct{}

func (passthroughUoW) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubDetector struct {
	cfg *model.ProviderConfig
	err error
}

func (d *stubDetector) Check(context.Context, *model.Merchant, string) (*model.ProviderConfig, error) {
	return d.cfg, d.err
}

type stubCreator struct {
	resp     *provider.CreateResponse
	err      error
	handled  int
	finished int
}

func (c *stubCreator) Handle(context.Context, *model.ProviderConfig, *model.Order) (*provider.CreateResponse, error) {
	c.handled++
	if c.err != nil {
		return nil, c.err
	}
	return c.resp, nil
}

func (c *stubCreator) OnFinish(context.Context, *model.Order) { c.finished++ }

type stubRefunder struct {
	resp    *provider.RefundResponse
	err     error
	handled int
}

func (r *stubRefunder) Handle(context.Context, *model.ProviderConfig, *model.Order, provider.RefundRequest) (*provider.RefundResponse, error) {
	r.handled++
	if r.err != nil {
		return nil, r.err
	}
	return r.resp, nil
}

type stubParser struct {
	notification *provider.Notification
	err          error
}

func (p *stubParser) Parse(context.Context, *model.ProviderConfig, *model.Order, provider.CallbackRequest) (*provider.Notification, error) {
	return p.notification, p.err
}
