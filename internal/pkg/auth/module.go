package auth

import (
	"go.uber.org/fx"

	"paygate/internal/config"
)

// Module provides authentication primitives via fx.
var Module = fx.Options(
	fx.Provide(newSecretHasher),
	fx.Provide(newTokenStrategy),
)

func newSecretHasher() SecretHasher {
	return NewBcryptHasher(0)
}

type strategyParams struct {
	fx.In

	Config *config.Config
}

func newTokenStrategy(p strategyParams) Strategy {
	return NewHMACStrategy(p.Config.AuthSecret, Options{})
}
