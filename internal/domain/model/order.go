package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is a four-digit status code; the leading digit groups
// related states (1 pending, 2 paid, 3 failed, 4 refund, 5 closed).
type OrderStatus string

const (
	StatusPending          OrderStatus = "1000"
	StatusPaid             OrderStatus = "2000"
	StatusPayFailed        OrderStatus = "3000"
	StatusRefundProcessing OrderStatus = "4000"
	StatusRefundSuccess    OrderStatus = "4002"
	StatusRefundAbnormal   OrderStatus = "4003"
	StatusClosed           OrderStatus = "5000"
	StatusCancelled        OrderStatus = "5002"
)

func (s OrderStatus) group() byte {
	if len(s) == 0 {
		return 0
	}
	return s[0]
}

// IsTerminal reports whether no further transition is allowed from s.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusPayFailed, StatusRefundSuccess, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// InPendingFamily reports the awaiting-payment status group.
func (s OrderStatus) InPendingFamily() bool { return s.group() == '1' }

// InPaidFamily reports the payment-confirmed status group.
func (s OrderStatus) InPaidFamily() bool { return s.group() == '2' }

// InFailedFamily reports the payment-failed/timeout status group.
func (s OrderStatus) InFailedFamily() bool { return s.group() == '3' }

// InRefundFamily reports the refund-in-flight/settled status group.
func (s OrderStatus) InRefundFamily() bool { return s.group() == '4' }

// InClosedFamily reports the closed/cancelled status group.
func (s OrderStatus) InClosedFamily() bool { return s.group() == '5' }

// Order is the central payment order entity. Code is assigned exactly
// once at creation and never reused; money fields are write-once.
type Order struct {
	ID            int64
	Code          string
	MerchantCode  string
	TradeType     string
	Status        OrderStatus
	Price         decimal.Decimal
	TotalPrice    decimal.Decimal
	CouponCode    string
	ProductName   string
	Attach        string
	Remark        string
	Origin        string
	Browser       string
	BrowserSystem string

	TransactionID string
	FailMessage   string
	PayTime       *time.Time
	FinishedTime  *time.Time

	RefundCode        string
	RefundReason      string
	RefundCreateTime  *time.Time
	RefundSuccessTime *time.Time

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderWater is an append-only audit entry recorded alongside every
// order mutation.
type OrderWater struct {
	ID        int64
	WaterCode string
	OrderCode string
	Status    OrderStatus
	CreatedAt time.Time
}

// FailureRecord preserves a callback that failed authentication, kept
// for tampering investigation.
type FailureRecord struct {
	ID            int64
	OrderCode     string
	Provider      string
	Body          string
	Signature     string
	SignatureType string
	Nonce         string
	Serial        string
	Reason        string
	CreatedAt     time.Time
}
