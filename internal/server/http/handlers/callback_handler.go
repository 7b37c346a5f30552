package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"paygate/internal/provider"
	"paygate/internal/server/http/dto"
)

// CallbackHandler terminates provider webhooks. Routes are wildly
// provider-specific: WeChat posts a signed JSON body with its
// signature material in headers, Alipay posts a signed form, UnionPay
// posts a bare JSON body. Acks differ too.
type CallbackHandler struct {
	facade CallbackFacade
}

// NewCallbackHandler creates CallbackHandler instance.
func NewCallbackHandler(facade CallbackFacade) *CallbackHandler {
	return &CallbackHandler{facade: facade}
}

// WechatPayment handles POST /v2/pay/callback/wechat/order/:orderCode.
func (h *CallbackHandler) WechatPayment(c *gin.Context) {
	h.wechat(c, provider.CallbackPayment)
}

// WechatRefund handles POST /v2/pay/callback/wechat/refund/:orderCode.
func (h *CallbackHandler) WechatRefund(c *gin.Context) {
	h.wechat(c, provider.CallbackRefund)
}

// WechatTransfer handles POST /v2/pay/callback/wechat/transfer/:orderCode.
func (h *CallbackHandler) WechatTransfer(c *gin.Context) {
	h.wechat(c, provider.CallbackTransfer)
}

// WechatWalletPayment handles POST /v2/pay/callback/wechat/payment/:orderCode.
func (h *CallbackHandler) WechatWalletPayment(c *gin.Context) {
	h.wechat(c, provider.CallbackWalletPayment)
}

func (h *CallbackHandler) wechat(c *gin.Context, kind provider.CallbackKind) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.AckFail("read body"))
		return
	}

	req := provider.CallbackRequest{
		Body: body,
		Headers: map[string]string{
			provider.HeaderSignature:     c.GetHeader(provider.HeaderSignature),
			provider.HeaderNonce:         c.GetHeader(provider.HeaderNonce),
			provider.HeaderSerial:        c.GetHeader(provider.HeaderSerial),
			provider.HeaderTimestamp:     c.GetHeader(provider.HeaderTimestamp),
			provider.HeaderSignatureType: c.GetHeader(provider.HeaderSignatureType),
		},
	}
	if err := h.facade.HandleCallback(c.Request.Context(), "wechat", kind, c.Param("orderCode"), req); err != nil {
		c.JSON(http.StatusInternalServerError, dto.AckFail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.AckSuccess())
}

// AlipayPayment handles POST /v2/pay/callback/alipay/order/:orderCode.
// Alipay expects the literal strings "success"/"fail" in the response
// body, not JSON.
func (h *CallbackHandler) AlipayPayment(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "fail")
		return
	}
	params := make(map[string]string, len(c.Request.PostForm))
	for k := range c.Request.PostForm {
		params[k] = c.Request.PostForm.Get(k)
	}

	req := provider.CallbackRequest{Params: params}
	if err := h.facade.HandleCallback(c.Request.Context(), "alipay", provider.CallbackPayment, c.Param("orderCode"), req); err != nil {
		c.String(http.StatusInternalServerError, "fail")
		return
	}
	c.String(http.StatusOK, "success")
}

// UnionPayPayment handles POST /v2/pay/callback/unionpay/order/:orderCode.
func (h *CallbackHandler) UnionPayPayment(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.AckFail("read body"))
		return
	}

	req := provider.CallbackRequest{Body: body}
	if err := h.facade.HandleCallback(c.Request.Context(), "unionpay", provider.CallbackPayment, c.Param("orderCode"), req); err != nil {
		c.JSON(http.StatusInternalServerError, dto.AckFail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.AckSuccess())
}
