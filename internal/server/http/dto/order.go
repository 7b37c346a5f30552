package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"paygate/internal/domain/model"
)

// CreateOrderRequest carries the order-creation input.
type CreateOrderRequest struct {
	TradeType     string          `json:"trade_type" binding:"required"`
	Price         decimal.Decimal `json:"price"`
	TotalPrice    decimal.Decimal `json:"total_price" binding:"required"`
	CouponCode    string          `json:"coupon_code"`
	ProductName   string          `json:"product_name" binding:"required"`
	Attach        string          `json:"attach"`
	Remark        string          `json:"remark"`
	Origin        string          `json:"origin"`
	Browser       string          `json:"browser"`
	BrowserSystem string          `json:"browser_system"`
}

// CreateOrderResponse returns the assigned order code and the provider
// payload the client needs to complete the payment.
type CreateOrderResponse struct {
	OrderCode string            `json:"order_code"`
	Payload   map[string]string `json:"payload"`
}

// CancelRequest carries the close/refund reason.
type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RefundRequest carries the refund reason and the force flag.
type RefundRequest struct {
	Reason string `json:"reason" binding:"required"`
	Force  bool   `json:"force"`
}

// OrderResponse is the external order representation.
type OrderResponse struct {
	OrderCode     string     `json:"order_code"`
	MerchantCode  string     `json:"merchant_code"`
	TradeType     string     `json:"trade_type"`
	Status        string     `json:"status"`
	Price         string     `json:"price"`
	TotalPrice    string     `json:"total_price"`
	ProductName   string     `json:"product_name"`
	TransactionID string     `json:"transaction_id,omitempty"`
	FailMessage   string     `json:"fail_message,omitempty"`
	PayTime       *time.Time `json:"pay_time,omitempty"`
	FinishedTime  *time.Time `json:"finished_time,omitempty"`
	RefundCode    string     `json:"refund_code,omitempty"`
	RefundReason  string     `json:"refund_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewOrderResponse maps a domain order to its external representation.
func NewOrderResponse(order *model.Order) OrderResponse {
	return OrderResponse{
		OrderCode:     order.Code,
		MerchantCode:  order.MerchantCode,
		TradeType:     order.TradeType,
		Status:        string(order.Status),
		Price:         order.Price.String(),
		TotalPrice:    order.TotalPrice.String(),
		ProductName:   order.ProductName,
		TransactionID: order.TransactionID,
		FailMessage:   order.FailMessage,
		PayTime:       order.PayTime,
		FinishedTime:  order.FinishedTime,
		RefundCode:    order.RefundCode,
		RefundReason:  order.RefundReason,
		CreatedAt:     order.CreatedAt,
	}
}

// WaterResponse is one audit trail entry.
type WaterResponse struct {
	WaterCode string    `json:"water_code"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewWaterResponses maps audit entries to their external form.
func NewWaterResponses(waters []model.OrderWater) []WaterResponse {
	out := make([]WaterResponse, 0, len(waters))
	for _, w := range waters {
		out = append(out, WaterResponse{
			WaterCode: w.WaterCode,
			Status:    string(w.Status),
			CreatedAt: w.CreatedAt,
		})
	}
	return out
}
