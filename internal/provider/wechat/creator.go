package wechat

import (
	"context"
	"fmt"
	"log/slog"

	"paygate/internal/adapter/gateway"
	"paygate/internal/domain/model"
	"paygate/internal/provider"
)

type prepayRequest struct {
	AppID       string       `json:"appid,omitempty"`
	MchID       string       `json:"mchid"`
	OutTradeNo  string       `json:"out_trade_no"`
	Description string       `json:"description"`
	Attach      string       `json:"attach,omitempty"`
	NotifyURL   string       `json:"notify_url"`
	Amount      prepayAmount `json:"amount"`
}

type prepayAmount struct {
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
}

type prepayResponse struct {
	PrepayID string `json:"prepay_id"`
	CodeURL  string `json:"code_url"`
	H5URL    string `json:"h5_url"`
}

// Creator registers the order with the WeChat gateway before it is
// persisted locally; a gateway failure must abort the whole creation.
type Creator struct {
	client *gateway.Client
	logger *slog.Logger
}

func endpointFor(tradeType string) string {
	switch tradeType {
	case provider.TradeTypeWechatNative:
		return "/v3/pay/transactions/native"
	case provider.TradeTypeWechatH5:
		return "/v3/pay/transactions/h5"
	default:
		return "/v3/pay/transactions/jsapi"
	}
}

// Handle performs the prepay call and returns the provider payload the
// client needs to complete the payment.
func (c *Creator) Handle(ctx context.Context, cfg *model.ProviderConfig, order *model.Order) (*provider.CreateResponse, error) {
	req := prepayRequest{
		AppID:       cfg.Setting(SettingAppID),
		MchID:       cfg.Setting(SettingMchID),
		OutTradeNo:  order.Code,
		Description: order.ProductName,
		Attach:      order.Attach,
		NotifyURL:   fmt.Sprintf("%s/%s", cfg.Setting(SettingNotifyURL), order.Code),
		Amount: prepayAmount{
			// WeChat wants the amount in cents.
			Total:    order.TotalPrice.Shift(2).IntPart(),
			Currency: "CNY",
		},
	}

	var resp prepayResponse
	url := cfg.Setting(SettingGatewayURL) + endpointFor(order.TradeType)
	if err := c.client.PostJSON(ctx, url, req, &resp); err != nil {
		return nil, fmt.Errorf("wechat prepay: %w", err)
	}

	payload := map[string]string{}
	if resp.PrepayID != "" {
		payload["prepay_id"] = resp.PrepayID
	}
	if resp.CodeURL != "" {
		payload["code_url"] = resp.CodeURL
	}
	if resp.H5URL != "" {
		payload["h5_url"] = resp.H5URL
	}
	return &provider.CreateResponse{Payload: payload}, nil
}

// OnFinish runs after the creation transaction committed.
func (c *Creator) OnFinish(ctx context.Context, order *model.Order) {
	c.logger.Info("wechat order registered",
		slog.String("order", order.Code),
		slog.String("trade_type", order.TradeType),
	)
}
