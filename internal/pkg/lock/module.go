package lock

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"paygate/internal/config"
)

// Module wires a lock manager: redis-backed when a redis address is
// configured, in-process otherwise.
var Module = fx.Provide(newManager)

type managerParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newManager(p managerParams) Manager {
	if p.Config.RedisAddress == "" {
		p.Logger.Warn("redis address not set, using in-process locks; run a single replica")
		return NewLocalManager()
	}
	client := redis.NewClient(&redis.Options{Addr: p.Config.RedisAddress})
	return NewRedisManager(client, "")
}
