// Package alipay implements the Alipay-style provider: form-parameter
// callbacks signed with the merchant's RSA key pair.
package alipay

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
	SettingAppID      = "app_id"
	SettingPublicKey  = "public_key"
	SettingSignType   = "sign_type"
	SettingCharset    = "charset"
	SettingGatewayURL = "gateway_url"
	SettingNotifyURL  = "notify_url"
)

const (
	defaultSignType = "RSA2"
	defaultCharset  = "utf-8"
)

// New assembles the Alipay provider bundle.
func New(client *gateway.Client, merchants repository.MerchantRepository, logger *slog.Logger) *provider.Provider {
	return &provider.Provider{
		Name:       "alipay",
		TradeTypes: []string{provider.TradeTypeAlipayApp, provider.TradeTypeAlipayQR},
		Detector:   &Detector{configs: merchants},
		Creator:    &Creator{client: client, logger: logger},
		Refunder:   &Refunder{client: client, logger: logger},
		Callbacks: map[provider.CallbackKind]provider.CallbackParser{
			provider.CallbackPayment: &CallbackParser{},
		},
	}
}

// Detector validates the Alipay credential set for a merchant.
type Detector struct {
	configs repository.MerchantRepository
}

// Check loads the merchant's Alipay config and validates that the
// public key parses under the configured signature algorithm.
func (d *Detector) Check(ctx context.Context, merchant *model.Merchant, tradeType string) (*model.ProviderConfig, error) {
	cfg, err := d.configs.GetConfig(ctx, merchant.Code, tradeType)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: merchant %s has no alipay config for %s", domainErrors.ErrConfigMissing, merchant.Code, tradeType)
		}
		return nil, err
	}
	for _, key := range []string{SettingAppID, SettingPublicKey, SettingGatewayURL} {
		if cfg.Setting(key) == "" {
			return nil, fmt.Errorf("%w: alipay setting %s missing for merchant %s", domainErrors.ErrConfigMissing, key, merchant.Code)
		}
	}
	if _, err := parsePublicKey(cfg.Setting(SettingPublicKey)); err != nil {
		return nil, fmt.Errorf("%w: alipay public key invalid for merchant %s: %v", domainErrors.ErrConfigMissing, merchant.Code, err)
	}
	switch signType(cfg) {
	case "RSA", "RSA2":
	default:
		return nil, fmt.Errorf("%w: alipay sign type %q not supported", domainErrors.ErrConfigMissing, cfg.Setting(SettingSignType))
	}
	return cfg, nil
}

func signType(cfg *model.ProviderConfig) string {
	if st := cfg.Setting(SettingSignType); st != "" {
		return st
	}
	return defaultSignType
}

func charset(cfg *model.ProviderConfig) string {
	if cs := cfg.Setting(SettingCharset); cs != "" {
		return cs
	}
	return defaultCharset
}
