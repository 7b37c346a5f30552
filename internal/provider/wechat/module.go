package wechat

import "go.uber.org/fx"

// Module contributes the WeChat provider to the registry group.
var Module = fx.Provide(
	fx.Annotate(New, fx.ResultTags(`group:"providers"`)),
)
