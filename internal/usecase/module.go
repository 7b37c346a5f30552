package usecase

import "go.uber.org/fx"

// Module wires the lifecycle coordinator and the callback pipeline.
var Module = fx.Options(
	fx.Provide(NewAuthUseCase),
	fx.Provide(NewCoordinator),
	fx.Provide(NewRetryWriter),
	fx.Provide(NewCallbackService),
)
