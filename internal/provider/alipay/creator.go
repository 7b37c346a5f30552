package alipay

import (
	"context"
	"fmt"
	"log/slog"

	"paygate/internal/adapter/gateway"
	"paygate/internal/domain/model"
	"paygate/internal/provider"
)

type tradeCreateRequest struct {
	AppID       string `json:"app_id"`
	OutTradeNo  string `json:"out_trade_no"`
	Subject     string `json:"subject"`
	TotalAmount string `json:"total_amount"`
	ProductCode string `json:"product_code"`
	NotifyURL   string `json:"notify_url,omitempty"`
	Passback    string `json:"passback_params,omitempty"`
}

type tradeCreateResponse struct {
	TradeNo   string `json:"trade_no"`
	QRCode    string `json:"qr_code"`
	OrderInfo string `json:"order_info"`
}

// Creator registers the order with the Alipay gateway.
type Creator struct {
	client *gateway.Client
	logger *slog.Logger
}

func productCodeFor(tradeType string) string {
	if tradeType == provider.TradeTypeAlipayQR {
		return "FACE_TO_FACE_PAYMENT"
	}
	return "QUICK_MSECURITY_PAY"
}

// Handle performs the trade precreate call and returns the payload the
// client needs to hand off to the Alipay app or render as a QR code.
func (c *Creator) Handle(ctx context.Context, cfg *model.ProviderConfig, order *model.Order) (*provider.CreateResponse, error) {
	req := tradeCreateRequest{
		AppID:       cfg.Setting(SettingAppID),
		OutTradeNo:  order.Code,
		Subject:     order.ProductName,
		TotalAmount: order.TotalPrice.StringFixed(2),
		ProductCode: productCodeFor(order.TradeType),
		Passback:    order.Attach,
	}
	if notify := cfg.Setting(SettingNotifyURL); notify != "" {
		req.NotifyURL = fmt.Sprintf("%s/%s", notify, order.Code)
	}

	var resp tradeCreateResponse
	url := cfg.Setting(SettingGatewayURL) + "/gateway/trade/precreate"
	if err := c.client.PostJSON(ctx, url, req, &resp); err != nil {
		return nil, fmt.Errorf("alipay precreate: %w", err)
	}

	payload := map[string]string{}
	if resp.TradeNo != "" {
		payload["trade_no"] = resp.TradeNo
	}
	if resp.QRCode != "" {
		payload["qr_code"] = resp.QRCode
	}
	if resp.OrderInfo != "" {
		payload["order_info"] = resp.OrderInfo
	}
	return &provider.CreateResponse{Payload: payload}, nil
}

// OnFinish runs after the creation transaction committed.
func (c *Creator) OnFinish(ctx context.Context, order *model.Order) {
	c.logger.Info("alipay order registered",
		slog.String("order", order.Code),
		slog.String("trade_type", order.TradeType),
	)
}
