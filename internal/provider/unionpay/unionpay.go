// Package unionpay implements the UnionPay QR provider. Its callback
// carries no usable signature material, so the parser refuses webhooks
// unless the merchant config explicitly opts in to insecure mode.
package unionpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"paygate/internal/adapter/gateway"
	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
	"paygate/internal/domain/repository"
	"paygate/internal/provider"
)

// Settings keys read from the merchant provider config.
const (
	SettingMerchantID    = "merchant_id"
	SettingGatewayURL    = "gateway_url"
	SettingNotifyURL     = "notify_url"
	SettingAllowInsecure = "allow_insecure"
)

// New assembles the UnionPay provider bundle.
func New(client *gateway.Client, merchants repository.MerchantRepository, logger *slog.Logger) *provider.Provider {
	return &provider.Provider{
		Name:       "unionpay",
		TradeTypes: []string{provider.TradeTypeUnionPayQR},
		Detector:   &Detector{configs: merchants},
		Creator:    &Creator{client: client, logger: logger},
		Callbacks: map[provider.CallbackKind]provider.CallbackParser{
			provider.CallbackPayment: &CallbackParser{logger: logger},
		},
	}
}

// Detector validates the UnionPay credential set for a merchant.
type Detector struct {
	configs repository.MerchantRepository
}

func (d *Detector) Check(ctx context.Context, merchant *model.Merchant, tradeType string) (*model.ProviderConfig, error) {
	cfg, err := d.configs.GetConfig(ctx, merchant.Code, tradeType)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: merchant %s has no unionpay config", domainErrors.ErrConfigMissing, merchant.Code)
		}
		return nil, err
	}
	for _, key := range []string{SettingMerchantID, SettingGatewayURL} {
		if cfg.Setting(key) == "" {
			return nil, fmt.Errorf("%w: unionpay setting %s missing for merchant %s", domainErrors.ErrConfigMissing, key, merchant.Code)
		}
	}
	return cfg, nil
}

type qrCreateRequest struct {
	MerchantID string `json:"mchnt_cd"`
	OrderNo    string `json:"order_no"`
	Amount     int64  `json:"order_amt"`
	GoodsName  string `json:"goods_name"`
	NotifyURL  string `json:"notify_url,omitempty"`
}

type qrCreateResponse struct {
	QRCode string `json:"qr_code"`
}

// Creator registers the order and returns the QR payload.
type Creator struct {
	client *gateway.Client
	logger *slog.Logger
}

func (c *Creator) Handle(ctx context.Context, cfg *model.ProviderConfig, order *model.Order) (*provider.CreateResponse, error) {
	req := qrCreateRequest{
		MerchantID: cfg.Setting(SettingMerchantID),
		OrderNo:    order.Code,
		Amount:     order.TotalPrice.Shift(2).IntPart(),
		GoodsName:  order.ProductName,
	}
	if notify := cfg.Setting(SettingNotifyURL); notify != "" {
		req.NotifyURL = fmt.Sprintf("%s/%s", notify, order.Code)
	}

	var resp qrCreateResponse
	url := cfg.Setting(SettingGatewayURL) + "/qr/precreate"
	if err := c.client.PostJSON(ctx, url, req, &resp); err != nil {
		return nil, fmt.Errorf("unionpay precreate: %w", err)
	}
	return &provider.CreateResponse{Payload: map[string]string{"qr_code": resp.QRCode}}, nil
}

func (c *Creator) OnFinish(ctx context.Context, order *model.Order) {
	c.logger.Info("unionpay order registered", slog.String("order", order.Code))
}

type qrNotification struct {
	OrderNo       string `json:"order_no"`
	TransactionID string `json:"txn_id"`
	Status        string `json:"order_status"`
	PayTime       string `json:"pay_time"`
}

// CallbackParser handles the unauthenticated UnionPay webhook. Without
// signature material the webhook cannot be trusted, so parsing fails
// unless the config carries allow_insecure=true, and even then every
// accepted notification is logged at error level.
type CallbackParser struct {
	logger *slog.Logger
}

func (p *CallbackParser) Parse(ctx context.Context, cfg *model.ProviderConfig, order *model.Order, req provider.CallbackRequest) (*provider.Notification, error) {
	if cfg.Setting(SettingAllowInsecure) != "true" {
		return nil, fmt.Errorf("%w: unionpay callbacks are unauthenticated; set %s=true to accept them anyway", domainErrors.ErrSignatureInvalid, SettingAllowInsecure)
	}
	p.logger.Error("accepting unauthenticated unionpay callback",
		slog.String("order", order.Code),
		slog.String("merchant", cfg.MerchantCode),
	)

	var body qrNotification
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrSignatureInvalid, err)
	}
	if body.OrderNo != order.Code {
		return nil, fmt.Errorf("%w: order_no %q does not match order %s", domainErrors.ErrSignatureInvalid, body.OrderNo, order.Code)
	}

	n := &provider.Notification{
		Kind:           provider.CallbackPayment,
		ProviderStatus: body.Status,
		TransactionID:  body.TransactionID,
	}
	if body.PayTime != "" {
		t, err := time.ParseInLocation("2006-01-02 15:04:05", body.PayTime, time.Local)
		if err != nil {
			return nil, fmt.Errorf("parse pay_time %q: %w", body.PayTime, err)
		}
		n.PayTime = &t
		n.FinishedTime = &t
	}
	return n, nil
}
