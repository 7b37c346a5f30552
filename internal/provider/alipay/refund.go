package alipay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"paygate/internal/adapter/gateway"
	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
	"paygate/internal/provider"
)

type refundRequest struct {
	AppID        string `json:"app_id"`
	OutTradeNo   string `json:"out_trade_no"`
	OutRequestNo string `json:"out_request_no"`
	RefundAmount string `json:"refund_amount"`
	RefundReason string `json:"refund_reason,omitempty"`
}

type refundResponse struct {
	FundChange string `json:"fund_change"`
	TradeNo    string `json:"trade_no"`
	GmtRefund  string `json:"gmt_refund_pay"`
}

// Refunder submits a refund against the Alipay gateway. Alipay refunds
// are synchronous: fund_change Y means the money already moved.
type Refunder struct {
	client *gateway.Client
	logger *slog.Logger
}

func (r *Refunder) Handle(ctx context.Context, cfg *model.ProviderConfig, order *model.Order, req provider.RefundRequest) (*provider.RefundResponse, error) {
	body := refundRequest{
		AppID:        cfg.Setting(SettingAppID),
		OutTradeNo:   order.Code,
		OutRequestNo: req.RefundCode,
		RefundAmount: req.Amount.StringFixed(2),
		RefundReason: req.Reason,
	}

	var resp refundResponse
	url := cfg.Setting(SettingGatewayURL) + "/gateway/trade/refund"
	if err := r.client.PostJSON(ctx, url, body, &resp); err != nil {
		return nil, fmt.Errorf("alipay refund: %w", err)
	}

	if resp.FundChange != "Y" {
		return &provider.RefundResponse{Status: model.RefundStatusProcessing, RefundID: resp.TradeNo}, nil
	}
	out := &provider.RefundResponse{Status: model.RefundStatusSuccess, RefundID: resp.TradeNo}
	if resp.GmtRefund != "" {
		t, err := time.Parse("2006-01-02 15:04:05", resp.GmtRefund)
		if err != nil {
			return nil, fmt.Errorf("%w: alipay gmt_refund_pay %q: %v", domainErrors.ErrGatewayInvocation, resp.GmtRefund, err)
		}
		out.SuccessTime = &t
	}
	r.logger.Info("alipay refund accepted",
		slog.String("order", order.Code),
		slog.String("refund", req.RefundCode),
	)
	return out, nil
}
