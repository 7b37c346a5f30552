package di

import (
	"go.uber.org/fx"

	"paygate/internal/adapter/gateway"
	"paygate/internal/app"
	"paygate/internal/config"
	"paygate/internal/logger"
	"paygate/internal/pkg/auth"
	"paygate/internal/pkg/lock"
	"paygate/internal/provider"
	"paygate/internal/provider/alipay"
	"paygate/internal/provider/unionpay"
	"paygate/internal/provider/wechat"
	"paygate/internal/server/http/router"
	"paygate/internal/storage/postgres"
	"paygate/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		lock.Module,
		postgres.Module,
		gateway.Module,
		wechat.Module,
		alipay.Module,
		unionpay.Module,
		provider.Module,
		usecase.Module,
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
