package module

import (
	"context"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/payload"
)

const (
	// DiscoverQuerySchema asks a module for its capability surface.
	DiscoverQuerySchema = "network.xyo.query.module.discover"

	// SubscribeQuerySchema registers interest in a module.
	SubscribeQuerySchema = "network.xyo.query.module.subscribe"
)

// Module is the addressable unit of behavior. Every interaction with a module, local or remote,
// goes through a query bound witness signed by the caller.
type Module interface {
	Address() crypto.Address

	Config() Config

	// Queries lists the query schemas the module handles.
	Queries() []string

	// Query dispatches a query bound witness with its payloads and returns the signed response.
	// Handler failures are returned inline as module error payloads, not as errors.
	Query(ctx context.Context, query *boundwitness.BoundWitness, payloads []payload.Payload) (*boundwitness.BoundWitness, []payload.Payload, error)

	// Queryable reports whether Query would accept the query. It has no side effects.
	Queryable(query *boundwitness.BoundWitness, payloads []payload.Payload, override *Config) bool

	// Discover returns the config, address and supported query payloads of the module.
	Discover(ctx context.Context) ([]payload.Payload, error)

	// Resolve finds the modules visible from this module in the given direction.
	Resolve(ctx context.Context, filter Filter, direction Direction) ([]Module, error)

	// UpResolver sees the module's ancestors and siblings.
	UpResolver() CompositeResolver

	// DownResolver sees the module itself and whatever it exposes below it.
	DownResolver() CompositeResolver
}

// Lifecycle is implemented by modules that must be started before they accept queries.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	State() State
}

// Node is a module owning a registry of child modules, wiring their visibility as they are
// attached and detached.
type Node interface {
	Module
	EventSource

	Register(m Module) error
	Unregister(ctx context.Context, m Module) error
	Attach(ctx context.Context, addressOrName string, external bool) (crypto.Address, error)
	Detach(ctx context.Context, addressOrName string) (crypto.Address, error)

	// Registered lists the addresses of every registered module.
	Registered() []crypto.Address

	// Attached lists the addresses of every attached module.
	Attached() []crypto.Address
}

// Supports reports whether m handles every given query schema.
func Supports(m Module, schemas ...string) bool {
	supported := make(map[string]struct{}, len(m.Queries()))
	for _, q := range m.Queries() {
		supported[q] = struct{}{}
	}
	for _, s := range schemas {
		if _, ok := supported[s]; !ok {
			return false
		}
	}
	return true
}

// Name returns the configured name of m.
func Name(m Module) string {
	return m.Config().Name
}
