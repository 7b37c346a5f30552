package alipay

import (
	"context"
	"fmt"
	"time"

	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
	"paygate/internal/provider"
)

const timeLayout = "2006-01-02 15:04:05"

// CallbackParser authenticates the form-parameter webhook Alipay sends
// after a trade state change. The signature covers every non-empty
// parameter except sign and sign_type.
type CallbackParser struct{}

func (p *CallbackParser) Parse(ctx context.Context, cfg *model.ProviderConfig, order *model.Order, req provider.CallbackRequest) (*provider.Notification, error) {
	params := req.Params
	sig := params["sign"]
	if sig == "" {
		return nil, fmt.Errorf("%w: sign parameter missing", domainErrors.ErrSignatureInvalid)
	}
	st := params["sign_type"]
	if st == "" {
		st = signType(cfg)
	}

	pub, err := parsePublicKey(cfg.Setting(SettingPublicKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrConfigMissing, err)
	}
	if err := verify(pub, st, signContent(params), sig); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrSignatureInvalid, err)
	}

	if params["out_trade_no"] != order.Code {
		return nil, fmt.Errorf("%w: out_trade_no %q does not match order %s", domainErrors.ErrSignatureInvalid, params["out_trade_no"], order.Code)
	}

	n := &provider.Notification{
		Kind:           provider.CallbackPayment,
		ProviderStatus: params["trade_status"],
		TransactionID:  params["trade_no"],
	}
	if gmt := params["gmt_payment"]; gmt != "" {
		t, err := time.ParseInLocation(timeLayout, gmt, time.Local)
		if err != nil {
			return nil, fmt.Errorf("parse gmt_payment %q: %w", gmt, err)
		}
		n.PayTime = &t
		n.FinishedTime = &t
	}
	return n, nil
}
