package provider

import "go.uber.org/fx"

// Module wires the provider registry. The concrete providers feed the
// "providers" value group from their own packages.
var Module = fx.Provide(
	fx.Annotate(
		func(providers []*Provider) *Registry { return NewRegistry(providers...) },
		fx.ParamTags(`group:"providers"`),
	),
)
