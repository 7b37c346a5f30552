package wechat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"paygate/internal/adapter/gateway"
	"paygate/internal/domain/model"
	"paygate/internal/provider"
)

type refundCreateRequest struct {
	OutTradeNo    string       `json:"out_trade_no"`
	OutRefundNo   string       `json:"out_refund_no"`
	TransactionID string       `json:"transaction_id,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	NotifyURL     string       `json:"notify_url,omitempty"`
	Amount        refundAmount `json:"amount"`
}

type refundAmount struct {
	Refund   int64  `json:"refund"`
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
}

type refundCreateResponse struct {
	RefundID    string `json:"refund_id"`
	OutRefundNo string `json:"out_refund_no"`
	Status      string `json:"status"`
	CreateTime  string `json:"create_time"`
	SuccessTime string `json:"success_time"`
}

func (r refundCreateResponse) toProviderResponse() (*provider.RefundResponse, error) {
	status := model.RefundStatus(r.Status)
	switch status {
	case model.RefundStatusSuccess, model.RefundStatusProcessing, model.RefundStatusClosed, model.RefundStatusAbnormal:
	default:
		return nil, fmt.Errorf("wechat refund: unknown status %q", r.Status)
	}

	resp := &provider.RefundResponse{Status: status, RefundID: r.RefundID}
	if r.CreateTime != "" {
		t, err := time.Parse(time.RFC3339, r.CreateTime)
		if err != nil {
			return nil, fmt.Errorf("wechat refund: bad create_time: %w", err)
		}
		resp.CreateTime = &t
	}
	if r.SuccessTime != "" {
		t, err := time.Parse(time.RFC3339, r.SuccessTime)
		if err != nil {
			return nil, fmt.Errorf("wechat refund: bad success_time: %w", err)
		}
		resp.SuccessTime = &t
	}
	return resp, nil
}

// Refunder submits domestic refunds for card/QR paid orders.
type Refunder struct {
	client *gateway.Client
	logger *slog.Logger
}

func (r *Refunder) Handle(ctx context.Context, cfg *model.ProviderConfig, order *model.Order, req provider.RefundRequest) (*provider.RefundResponse, error) {
	body := refundCreateRequest{
		OutTradeNo:    order.Code,
		OutRefundNo:   req.RefundCode,
		TransactionID: order.TransactionID,
		Reason:        req.Reason,
		NotifyURL:     fmt.Sprintf("%s/%s", cfg.Setting(SettingNotifyURL), order.Code),
		Amount: refundAmount{
			Refund:   req.Amount.Shift(2).IntPart(),
			Total:    order.TotalPrice.Shift(2).IntPart(),
			Currency: "CNY",
		},
	}

	var resp refundCreateResponse
	url := cfg.Setting(SettingGatewayURL) + "/v3/refund/domestic/refunds"
	if err := r.client.PostJSON(ctx, url, body, &resp); err != nil {
		return nil, fmt.Errorf("wechat refund: %w", err)
	}
	return resp.toProviderResponse()
}

// WalletRefunder returns funds to the payer's wallet balance instead of
// the original card channel.
type WalletRefunder struct {
	client *gateway.Client
	logger *slog.Logger
}

func (r *WalletRefunder) Handle(ctx context.Context, cfg *model.ProviderConfig, order *model.Order, req provider.RefundRequest) (*provider.RefundResponse, error) {
	body := refundCreateRequest{
		OutTradeNo:    order.Code,
		OutRefundNo:   req.RefundCode,
		TransactionID: order.TransactionID,
		Reason:        req.Reason,
		NotifyURL:     fmt.Sprintf("%s/%s", cfg.Setting(SettingNotifyURL), order.Code),
		Amount: refundAmount{
			Refund:   req.Amount.Shift(2).IntPart(),
			Total:    order.TotalPrice.Shift(2).IntPart(),
			Currency: "CNY",
		},
	}

	var resp refundCreateResponse
	url := cfg.Setting(SettingGatewayURL) + "/v3/fund-app/wallet-refunds"
	if err := r.client.PostJSON(ctx, url, body, &resp); err != nil {
		return nil, fmt.Errorf("wechat wallet refund: %w", err)
	}
	return resp.toProviderResponse()
}
