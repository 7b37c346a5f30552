package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"paygate/internal/server/http/handlers"
	"paygate/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.PaymentFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	authHandler := handlers.NewAuthHandler(facade)
	orderHandler := handlers.NewOrderHandler(facade)
	callbackHandler := handlers.NewCallbackHandler(facade)

	api := engine.Group("/api")
	api.POST("/merchant/login", authHandler.Login)

	orders := api.Group("/order")
	orders.Use(middleware.AuthRequired(facade))
	orders.POST("", orderHandler.Create)
	orders.GET("/:orderCode", orderHandler.Detail)
	orders.GET("/:orderCode/waters", orderHandler.Waters)
	orders.POST("/:orderCode/recreate", orderHandler.ReCreate)
	orders.POST("/:orderCode/cancel", orderHandler.Cancel)
	orders.POST("/:orderCode/cancel-wallet", orderHandler.CancelWallet)
	orders.POST("/:orderCode/refund", orderHandler.Refund)

	// Webhooks authenticate by signature, not by merchant token.
	callbacks := engine.Group("/v2/pay/callback")
	callbacks.POST("/wechat/order/:orderCode", callbackHandler.WechatPayment)
	callbacks.POST("/wechat/refund/:orderCode", callbackHandler.WechatRefund)
	callbacks.POST("/wechat/transfer/:orderCode", callbackHandler.WechatTransfer)
	callbacks.POST("/wechat/payment/:orderCode", callbackHandler.WechatWalletPayment)
	callbacks.POST("/alipay/order/:orderCode", callbackHandler.AlipayPayment)
	callbacks.POST("/unionpay/order/:orderCode", callbackHandler.UnionPayPayment)

	return engine
}
