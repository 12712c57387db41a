package bridge

import (
	"context"
	"fmt"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/resolver"
)

// ProxyModule is a remote module seen through an HTTPBridge. Its config and query list are the
// ones discovered when it was created.
type ProxyModule struct {
	bridge  *HTTPBridge
	address crypto.Address
	config  module.Config
	queries []string
	up      *resolver.Composite
	down    *resolver.Composite
}

var _ module.Module = (*ProxyModule)(nil)

// NewProxy discovers the module at address and returns a proxy for it.
func NewProxy(ctx context.Context, bridge *HTTPBridge, address crypto.Address) (*ProxyModule, error) {
	discovered, err := bridge.TargetDiscover(ctx, &address)
	if err != nil {
		return nil, fmt.Errorf("could not discover %s: %w", address, err)
	}

	var config module.Config
	for _, p := range discovered {
		if p.Schema() == payload.AddressSchema || p.Schema() == payload.QuerySchema {
			continue
		}
		config, err = module.ConfigFromPayload(p)
		if err != nil {
			return nil, err
		}
		break
	}

	p := &ProxyModule{
		bridge:  bridge,
		address: address,
		config:  config,
		queries: bridge.TargetQueries(address),
		up:      resolver.NewComposite(bridge.log),
	}
	p.down = resolver.NewComposite(bridge.log, resolver.NewSimple(p))
	return p, nil
}

func (p *ProxyModule) Address() crypto.Address {
	return p.address
}

func (p *ProxyModule) Config() module.Config {
	return p.config
}

func (p *ProxyModule) Queries() []string {
	return append([]string(nil), p.queries...)
}

func (p *ProxyModule) Query(ctx context.Context, query *boundwitness.BoundWitness, payloads []payload.Payload) (*boundwitness.BoundWitness, []payload.Payload, error) {
	return p.bridge.TargetQuery(ctx, p.address, query, payloads)
}

// Queryable only checks the query schema against the discovered list. The remote module
// applies its own security config.
func (p *ProxyModule) Queryable(query *boundwitness.BoundWitness, payloads []payload.Payload, _ *module.Config) bool {
	return p.bridge.TargetQueryable(p.address, query, payloads)
}

func (p *ProxyModule) Discover(ctx context.Context) ([]payload.Payload, error) {
	return p.bridge.TargetDiscover(ctx, &p.address)
}

// Resolve looks the filter up among the modules the remote node exposes.
func (p *ProxyModule) Resolve(ctx context.Context, filter module.Filter, _ module.Direction) ([]module.Module, error) {
	return p.bridge.TargetResolve(ctx, filter)
}

func (p *ProxyModule) UpResolver() module.CompositeResolver {
	return p.up
}

func (p *ProxyModule) DownResolver() module.CompositeResolver {
	return p.down
}
