package provider

import (
	"fmt"

	domainErrors "paygate/internal/domain/errors"
)

// Registry resolves providers by trade type or by provider name. It is
// built once at startup and read-only afterwards.
type Registry struct {
	byTradeType map[string]*Provider
	byName      map[string]*Provider
}

// NewRegistry indexes the given providers. Duplicate trade types or
// names are a wiring bug and panic at startup.
func NewRegistry(providers ...*Provider) *Registry {
	r := &Registry{
		byTradeType: make(map[string]*Provider),
		byName:      make(map[string]*Provider),
	}
	for _, p := range providers {
		if _, ok := r.byName[p.Name]; ok {
			panic(fmt.Sprintf("provider registry: duplicate provider %q", p.Name))
		}
		r.byName[p.Name] = p
		for _, tt := range p.TradeTypes {
			if _, ok := r.byTradeType[tt]; ok {
				panic(fmt.Sprintf("provider registry: duplicate trade type %q", tt))
			}
			r.byTradeType[tt] = p
		}
	}
	return r
}

// ByTradeType resolves the provider serving a trade type.
func (r *Registry) ByTradeType(tradeType string) (*Provider, error) {
	p, ok := r.byTradeType[tradeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrUnsupportedTradeType, tradeType)
	}
	return p, nil
}

// ByName resolves a provider by its callback path name.
func (r *Registry) ByName(name string) (*Provider, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: provider %s", domainErrors.ErrUnsupportedTradeType, name)
	}
	return p, nil
}

// TradeTypes lists every registered trade type.
func (r *Registry) TradeTypes() []string {
	types := make([]string, 0, len(r.byTradeType))
	for tt := range r.byTradeType {
		types = append(types, tt)
	}
	return types
}
