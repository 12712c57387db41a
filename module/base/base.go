package base

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/events"
	"github.com/witnessnet/witnessnet/module/metrics"
	"github.com/witnessnet/witnessnet/module/resolver"
)

// DefaultConfigSchema is the config schema of modules that do not declare their own.
const DefaultConfigSchema = "network.xyo.module.config"

// Base is the fixed dispatcher every module variant is built on. A variant supplies a handler
// table keyed by query schema; Base owns the lifecycle, the capability and security checks,
// the response signing, the resolver slots and the event emitter.
type Base struct {
	log      zerolog.Logger
	account  *crypto.Account
	config   module.Config
	handlers Handlers
	queries  []string
	metrics  module.QueryMetrics
	resolves module.ResolverMetrics

	lifecycle sync.Mutex
	state     *atomic.Int32
	emitter   *events.Emitter

	// module is the outer module, the identity resolvers hand out
	module module.Module
	up     *resolver.Composite
	down   *resolver.Composite
	self   *resolver.Simple

	validators []Validator
	startHooks []func(context.Context) error
	stopHooks  []func(context.Context) error
}

var _ module.Module = (*Base)(nil)
var _ module.Lifecycle = (*Base)(nil)
var _ module.EventSource = (*Base)(nil)

// Option configures a Base.
type Option func(*Base)

// WithMetrics records queries with the given collector.
func WithMetrics(m module.QueryMetrics) Option {
	return func(b *Base) {
		b.metrics = m
	}
}

// WithResolverMetrics records resolves with the given collector.
func WithResolverMetrics(m module.ResolverMetrics) Option {
	return func(b *Base) {
		b.resolves = m
	}
}

// WithValidators adds query validators evaluated after the capability and security checks.
func WithValidators(validators ...Validator) Option {
	return func(b *Base) {
		b.validators = append(b.validators, validators...)
	}
}

// WithStartHook runs f when the module starts, after the config was validated.
func WithStartHook(f func(context.Context) error) Option {
	return func(b *Base) {
		b.startHooks = append(b.startHooks, f)
	}
}

// WithStopHook runs f when the module stops.
func WithStopHook(f func(context.Context) error) Option {
	return func(b *Base) {
		b.stopHooks = append(b.stopHooks, f)
	}
}

// New creates a base module. A nil account is replaced by a random one.
func New(log zerolog.Logger, account *crypto.Account, config module.Config, handlers Handlers, opts ...Option) (*Base, error) {
	if account == nil {
		var err error
		account, err = crypto.NewRandomAccount()
		if err != nil {
			return nil, fmt.Errorf("could not create module account: %w", err)
		}
	}
	if config.Schema == "" {
		config.Schema = DefaultConfigSchema
	}
	if config.NotStartedAction == "" {
		config.NotStartedAction = module.NotStartedWarn
	}

	b := &Base{
		account:  account,
		config:   config,
		handlers: make(Handlers, len(handlers)),
		metrics:  metrics.NewNoopCollector(),
		resolves: metrics.NewNoopCollector(),
		state:    atomic.NewInt32(int32(module.StateCreated)),
	}
	b.log = log.With().
		Str("module", config.Name).
		Str("address", account.Address().Hex()).
		Logger()
	b.emitter = events.NewEmitter(b.log, account.Address())

	for schema, h := range handlers {
		b.handlers[schema] = h
	}
	b.handlers[module.DiscoverQuerySchema] = b.handleDiscover
	b.handlers[module.SubscribeQuerySchema] = b.handleSubscribe

	variant := make([]string, 0, len(handlers))
	for schema := range handlers {
		if schema == module.DiscoverQuerySchema || schema == module.SubscribeQuerySchema {
			continue
		}
		variant = append(variant, schema)
	}
	sort.Strings(variant)
	b.queries = append([]string{module.DiscoverQuerySchema, module.SubscribeQuerySchema}, variant...)

	for _, apply := range opts {
		apply(b)
	}

	b.self = resolver.NewSimple()
	b.up = resolver.NewComposite(b.log)
	b.down = resolver.NewComposite(b.log, b.self)
	b.SetModule(b)

	return b, nil
}

// SetModule makes m the identity this base resolves as. Variants embedding Base call it with
// themselves so resolvers hand out the variant rather than the bare dispatcher.
func (b *Base) SetModule(m module.Module) {
	if b.module != nil {
		b.self.Remove(b.module.Address())
	}
	b.module = m
	b.self.Add(m)
}

// Module returns the outer module.
func (b *Base) Module() module.Module {
	return b.module
}

func (b *Base) Address() crypto.Address {
	return b.account.Address()
}

func (b *Base) Account() *crypto.Account {
	return b.account
}

func (b *Base) Config() module.Config {
	return b.config
}

func (b *Base) Logger() zerolog.Logger {
	return b.log
}

// Queries lists the built-in query schemas followed by the variant's, sorted.
func (b *Base) Queries() []string {
	out := make([]string, len(b.queries))
	copy(out, b.queries)
	return out
}

func (b *Base) UpResolver() module.CompositeResolver {
	return b.up
}

func (b *Base) DownResolver() module.CompositeResolver {
	return b.down
}

func (b *Base) Subscribe(kinds ...module.EventKind) module.Subscription {
	return b.emitter.Subscribe(kinds...)
}

// Emit announces ev to subscribers.
func (b *Base) Emit(ev module.Event) {
	b.emitter.Emit(ev)
}

// Discover returns the config payload, the address payload and one payload per supported query.
func (b *Base) Discover(_ context.Context) ([]payload.Payload, error) {
	out := make([]payload.Payload, 0, len(b.queries)+2)
	out = append(out, b.config.Payload())
	out = append(out, payload.NewAddress(b.Address(), b.config.Name))
	for _, q := range b.queries {
		out = append(out, payload.NewQuery(q))
	}
	return out, nil
}

// Resolve finds modules through the up and down resolvers.
func (b *Base) Resolve(ctx context.Context, filter module.Filter, direction module.Direction) ([]module.Module, error) {
	var slots []module.Resolver
	if direction.Includes(module.DirectionUp) {
		slots = append(slots, b.up)
	}
	if direction.Includes(module.DirectionDown) {
		slots = append(slots, b.down)
	}
	return b.ResolveThrough(ctx, filter, direction, slots...)
}

// ResolveThrough resolves through several slots concurrently, recording the resolve under
// direction.
func (b *Base) ResolveThrough(ctx context.Context, filter module.Filter, direction module.Direction, slots ...module.Resolver) ([]module.Module, error) {
	start := time.Now()
	results, err := resolver.FanOut(ctx, slots, filter)
	b.resolves.ResolveDuration(string(direction), time.Since(start))
	if err != nil {
		b.resolves.ResolveFailure(string(direction))
	}
	return merge(ctx, b.log, filter, results, err)
}

// merge combines the results of several slots. Failed slots are logged and skipped; only a
// cancelled context fails the resolve.
func merge(ctx context.Context, log zerolog.Logger, filter module.Filter, results [][]module.Module, err error) ([]module.Module, error) {
	if err != nil {
		log.Warn().Err(err).Msg("partial resolve failure")
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	var merged []module.Module
	for _, r := range results {
		merged = append(merged, r...)
	}
	return filter.Apply(merged), nil
}
