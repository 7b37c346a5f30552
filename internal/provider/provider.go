package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"paygate/internal/domain/model"
)

// Trade types served by the bundled providers.
const (
	TradeTypeWechatJSAPI  = "wechat_jsapi"
	TradeTypeWechatNative = "wechat_native"
	TradeTypeWechatH5     = "wechat_h5"
	TradeTypeAlipayApp    = "alipay_app"
	TradeTypeAlipayQR     = "alipay_qr"
	TradeTypeUnionPayQR   = "unionpay_qr"
	TradeTypeWallet       = "wallet"
)

// ConfigDetector validates that a merchant holds usable credentials for
// a trade type and returns the opaque config handle.
type ConfigDetector interface {
	Check(ctx context.Context, merchant *model.Merchant, tradeType string) (*model.ProviderConfig, error)
}

// CreateResponse is the provider payload handed back to the client
// after a successful order creation (payment URL, QR token, prepay id).
type CreateResponse struct {
	Payload map[string]string
}

// OrderCreator performs the network call that registers the order with
// the provider and decorates it with provider-specific fields.
type OrderCreator interface {
	Handle(ctx context.Context, cfg *model.ProviderConfig, order *model.Order) (*CreateResponse, error)
	OnFinish(ctx context.Context, order *model.Order)
}

// RefundRequest carries what a refund creator needs beyond the order.
type RefundRequest struct {
	RefundCode string
	Amount     decimal.Decimal
	Reason     string
}

// RefundResponse reports the provider-side result of a refund call.
type RefundResponse struct {
	Status      model.RefundStatus
	RefundID    string
	CreateTime  *time.Time
	SuccessTime *time.Time
}

// RefundCreator submits a refund for a paid order.
type RefundCreator interface {
	Handle(ctx context.Context, cfg *model.ProviderConfig, order *model.Order, req RefundRequest) (*RefundResponse, error)
}

// WalletRefundCreator refunds a wallet-paid order back to the wallet.
type WalletRefundCreator interface {
	Handle(ctx context.Context, cfg *model.ProviderConfig, order *model.Order, req RefundRequest) (*RefundResponse, error)
}

// CallbackKind distinguishes the webhook purposes a provider serves.
type CallbackKind string

const (
	CallbackPayment       CallbackKind = "payment"
	CallbackRefund        CallbackKind = "refund"
	CallbackTransfer      CallbackKind = "transfer"
	CallbackWalletPayment CallbackKind = "wallet-payment"
)

// CallbackRequest is the raw webhook: body plus provider-specific
// headers (WeChat-style) or form parameters (Alipay-style).
type CallbackRequest struct {
	Body    []byte
	Headers map[string]string
	Params  map[string]string
}

// Header names carried by WeChat-style callbacks.
const (
	HeaderSignature     = "Wechatpay-Signature"
	HeaderNonce         = "Wechatpay-Nonce"
	HeaderSerial        = "Wechatpay-Serial"
	HeaderTimestamp     = "Wechatpay-Timestamp"
	HeaderSignatureType = "Wechatpay-Signature-Type"
)

// Notification is the authenticated, still provider-vocabulary result
// of parsing a callback. The status mapper translates it into a
// canonical model.Outcome.
type Notification struct {
	Kind              CallbackKind
	ProviderStatus    string
	TransactionID     string
	FailMessage       string
	PayTime           *time.Time
	FinishedTime      *time.Time
	RefundSuccessTime *time.Time
}

// CallbackParser authenticates a webhook and extracts its notification.
// Authentication failure must surface as an error without mutating
// anything.
type CallbackParser interface {
	Parse(ctx context.Context, cfg *model.ProviderConfig, order *model.Order, req CallbackRequest) (*Notification, error)
}

// Provider bundles the SPI implementations one payment provider offers.
// WalletRefunder and individual callback kinds may be absent.
type Provider struct {
	Name           string
	TradeTypes     []string
	Detector       ConfigDetector
	Creator        OrderCreator
	Refunder       RefundCreator
	WalletRefunder WalletRefundCreator
	Callbacks      map[CallbackKind]CallbackParser
}
