package model

import "time"

// MerchantStatus describes whether a merchant may transact.
type MerchantStatus string

const (
	MerchantEnabled  MerchantStatus = "ENABLED"
	MerchantDisabled MerchantStatus = "DISABLED"
)

// Merchant is read-only within the payment flows; disabled merchants
// reject every operation.
type Merchant struct {
	ID         int64
	Code       string
	Name       string
	Status     MerchantStatus
	SecretHash string
	CreatedAt  time.Time
}

// ProviderConfig is the opaque credential record a merchant holds for
// one trade type. Providers interpret Settings by their own keys.
type ProviderConfig struct {
	MerchantCode string
	TradeType    string
	Settings     map[string]string
}

// Setting returns the named credential value or empty string.
func (c *ProviderConfig) Setting(key string) string {
	if c == nil {
		return ""
	}
	return c.Settings[key]
}
