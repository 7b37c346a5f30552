package gateway

import (
	"log/slog"

	"go.uber.org/fx"
)

// Module exposes the shared gateway client to the fx graph.
var Module = fx.Provide(func(logger *slog.Logger) *Client {
	return NewClient(logger)
})
