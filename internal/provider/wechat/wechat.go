// Package wechat implements the WeChat-style payment provider: JSON
// gateway calls per merchant config and AEAD-sealed callbacks.
package wechat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"paygate/internal/adapter/gateway"
	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
	"paygate/internal/domain/repository"
	"paygate/internal/provider"
)

// Settings keys read from the merchant provider config.
const (
	SettingMchID      = "mch_id"
	SettingSerialNo   = "serial_no"
	SettingAPIV3Key   = "api_v3_key"
	SettingAppID      = "app_id"
	SettingGatewayURL = "gateway_url"
	SettingNotifyURL  = "notify_url"
)

// New assembles the WeChat provider bundle.
func New(client *gateway.Client, merchants repository.MerchantRepository, logger *slog.Logger) *provider.Provider {
	return &provider.Provider{
		Name: "wechat",
		TradeTypes: []string{
			provider.TradeTypeWechatJSAPI,
			provider.TradeTypeWechatNative,
			provider.TradeTypeWechatH5,
			provider.TradeTypeWallet,
		},
		Detector:       &Detector{configs: merchants},
		Creator:        &Creator{client: client, logger: logger},
		Refunder:       &Refunder{client: client, logger: logger},
		WalletRefunder: &WalletRefunder{client: client, logger: logger},
		Callbacks: map[provider.CallbackKind]provider.CallbackParser{
			provider.CallbackPayment:       &CallbackParser{kind: provider.CallbackPayment},
			provider.CallbackRefund:        &CallbackParser{kind: provider.CallbackRefund},
			provider.CallbackTransfer:      &CallbackParser{kind: provider.CallbackTransfer},
			provider.CallbackWalletPayment: &CallbackParser{kind: provider.CallbackWalletPayment},
		},
	}
}

// Detector validates the WeChat credential set for a merchant.
type Detector struct {
	configs repository.MerchantRepository
}

// Check loads the merchant's WeChat config for the trade type and
// validates that the credential set is complete.
func (d *Detector) Check(ctx context.Context, merchant *model.Merchant, tradeType string) (*model.ProviderConfig, error) {
	cfg, err := d.configs.GetConfig(ctx, merchant.Code, tradeType)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: merchant %s has no wechat config for %s", domainErrors.ErrConfigMissing, merchant.Code, tradeType)
		}
		return nil, err
	}
	for _, key := range []string{SettingMchID, SettingSerialNo, SettingAPIV3Key, SettingGatewayURL} {
		if cfg.Setting(key) == "" {
			return nil, fmt.Errorf("%w: wechat setting %s missing for merchant %s", domainErrors.ErrConfigMissing, key, merchant.Code)
		}
	}
	if len(cfg.Setting(SettingAPIV3Key)) != apiV3KeyLength {
		return nil, fmt.Errorf("%w: wechat api v3 key must be %d bytes", domainErrors.ErrConfigMissing, apiV3KeyLength)
	}
	return cfg, nil
}
