package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"paygate/internal/server/http/dto"
	"paygate/internal/usecase"
)

// OrderHandler processes merchant order operations.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler creates OrderHandler instance.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Create handles POST /api/order.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price := req.Price
	if price.IsZero() {
		price = req.TotalPrice
	}
	result, err := h.facade.CreateOrder(c.Request.Context(), usecase.CreateRequest{
		MerchantCode:  CurrentMerchantCode(c),
		TradeType:     req.TradeType,
		Price:         price,
		TotalPrice:    req.TotalPrice,
		CouponCode:    req.CouponCode,
		ProductName:   req.ProductName,
		Attach:        req.Attach,
		Remark:        req.Remark,
		Origin:        req.Origin,
		Browser:       req.Browser,
		BrowserSystem: req.BrowserSystem,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CreateOrderResponse{OrderCode: result.OrderCode, Payload: result.Payload})
}

// ReCreate handles POST /api/order/:orderCode/recreate.
func (h *OrderHandler) ReCreate(c *gin.Context) {
	result, err := h.facade.ReCreateOrder(c.Request.Context(), CurrentMerchantCode(c), c.Param("orderCode"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CreateOrderResponse{OrderCode: result.OrderCode, Payload: result.Payload})
}

// Cancel handles POST /api/order/:orderCode/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.facade.CancelOrder(c.Request.Context(), CurrentMerchantCode(c), c.Param("orderCode"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

// CancelWallet handles POST /api/order/:orderCode/cancel-wallet.
func (h *OrderHandler) CancelWallet(c *gin.Context) {
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.facade.CancelWalletOrder(c.Request.Context(), CurrentMerchantCode(c), c.Param("orderCode"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

// Refund handles POST /api/order/:orderCode/refund.
func (h *OrderHandler) Refund(c *gin.Context) {
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.facade.RefundOrder(c.Request.Context(), CurrentMerchantCode(c), c.Param("orderCode"), req.Reason, req.Force)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

// Detail handles GET /api/order/:orderCode.
func (h *OrderHandler) Detail(c *gin.Context) {
	order, err := h.facade.OrderDetail(c.Request.Context(), CurrentMerchantCode(c), c.Param("orderCode"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

// Waters handles GET /api/order/:orderCode/waters.
func (h *OrderHandler) Waters(c *gin.Context) {
	waters, err := h.facade.OrderWaters(c.Request.Context(), CurrentMerchantCode(c), c.Param("orderCode"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWaterResponses(waters))
}
