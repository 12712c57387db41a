package base

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/metrics"
	"github.com/witnessnet/witnessnet/module/query"
)

// HandlerFunc answers one query. Supporting payloads travel with the query in w.
type HandlerFunc func(ctx context.Context, w *boundwitness.QueryWrapper, q payload.Payload) ([]payload.Payload, error)

// Handlers maps query schemas to their handler.
type Handlers map[string]HandlerFunc

// Validator is an additional dispatch precondition.
type Validator = query.Validator

// Query dispatches a query bound witness.
//
// A query that is malformed, lacks its query payload, reaches a module that is not started, or
// is refused by the security config fails with an error before anything is signed. Any other
// failure, including an unsupported schema, is answered inline with a module error payload in a
// normally signed response.
func (b *Base) Query(ctx context.Context, bw *boundwitness.BoundWitness, payloads []payload.Payload) (*boundwitness.BoundWitness, []payload.Payload, error) {
	name := b.config.Name

	w, q, err := b.unwrap(bw, payloads)
	if err != nil {
		reason := metrics.ReasonMissingQuery
		if errors.Is(err, module.ErrMalformedQuery) {
			reason = metrics.ReasonMalformed
		}
		b.metrics.QueryRejected(name, reason)
		return nil, nil, err
	}
	schema := q.Schema()

	if !b.Started() {
		b.metrics.QueryRejected(name, metrics.ReasonNotStarted)
		b.logNotStarted(schema)
		return nil, nil, module.ErrNotStarted
	}

	validators := append([]Validator{query.NewConfigValidator(b.config.Security)}, b.validators...)
	err = query.Validate(bw, q, validators...)
	if err != nil {
		b.metrics.QueryRejected(name, metrics.ReasonNotQueryable)
		b.log.Debug().Err(err).Str("query", schema).Msg("query rejected")
		if !module.IsNotQueryableError(err) {
			err = module.NotQueryableError{Err: err}
		}
		return nil, nil, err
	}

	b.metrics.QueryReceived(name, schema)
	start := time.Now()

	results, err := b.dispatch(ctx, w, q)
	if err != nil {
		b.metrics.QueryFailed(name, schema)
		b.log.Warn().Err(err).Str("query", schema).Msg("query failed")
		results = append(results, payload.NewModuleError(w.QueryHash(), name, schema, err.Error()))
	}

	response, results, err := b.bindResult(w.QueryHash(), schema, results)
	if err != nil {
		return nil, nil, err
	}

	b.metrics.QueryHandled(name, schema, time.Since(start))
	b.Emit(module.Event{Kind: module.ModuleQueried, Module: b.module, Query: bw, Result: response})
	b.log.Debug().Str("query", schema).Int("results", len(results)).Msg("query answered")

	return response, results, nil
}

// Queryable reports whether Query would dispatch the query to a handler. It is false for a
// module that is not started, and otherwise requires the schema to be supported and the
// signers to satisfy the security config, taken from override when given.
func (b *Base) Queryable(bw *boundwitness.BoundWitness, payloads []payload.Payload, override *module.Config) bool {
	_, q, err := b.unwrap(bw, payloads)
	if err != nil {
		return false
	}
	if !b.Started() {
		b.logNotStarted(q.Schema())
		return false
	}

	security := b.config.Security
	if override != nil {
		security = override.Security
	}
	validators := []Validator{
		query.NewSupportedValidator(b.Queries),
		query.NewConfigValidator(security),
	}
	validators = append(validators, b.validators...)
	return query.Validate(bw, q, validators...) == nil
}

// unwrap resolves the query payload of a well formed query bound witness. It has no side effects.
func (b *Base) unwrap(bw *boundwitness.BoundWitness, payloads []payload.Payload) (*boundwitness.QueryWrapper, payload.Payload, error) {
	w, err := boundwitness.WrapQuery(bw, payloads)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", module.ErrMissingQuery, err)
	}
	if errs := boundwitness.Validate(bw); len(errs) > 0 {
		var merr *multierror.Error
		merr = multierror.Append(merr, errs...)
		return nil, nil, fmt.Errorf("%w: %v", module.ErrMalformedQuery, merr)
	}
	q, err := w.Query()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", module.ErrMissingQuery, err)
	}
	return w, q, nil
}

// dispatch routes the query to its handler. A panicking handler is reported as a failure.
func (b *Base) dispatch(ctx context.Context, w *boundwitness.QueryWrapper, q payload.Payload) (results []payload.Payload, err error) {
	schema := q.Schema()
	handler, ok := b.handlers[schema]
	if !ok || query.NewSupportedValidator(b.Queries).Validate(w.BoundWitness(), q) != nil {
		return nil, module.NewUnsupportedQueryError(schema)
	}

	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("query", schema).Msg("query handler panicked")
			results = nil
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler(ctx, w, q)
}

// bindResult signs the results with the module account, and a fresh account when the module
// uses ephemeral query accounts. Results that cannot be bound are replaced by a module error.
func (b *Base) bindResult(queryHash hash.Hash, schema string, results []payload.Payload) (*boundwitness.BoundWitness, []payload.Payload, error) {
	signers := []*crypto.Account{b.account}
	if b.config.EphemeralQueryAccount {
		ephemeral, err := crypto.NewRandomAccount()
		if err != nil {
			return nil, nil, fmt.Errorf("could not create ephemeral query account: %w", err)
		}
		signers = append(signers, ephemeral)
	}

	response, bound, err := boundwitness.NewBuilder().Payloads(results...).Signers(signers...).Build()
	if err == nil {
		return response, bound, nil
	}
	if errors.Is(err, payload.ErrMissingSchema) {
		b.log.Error().Err(err).Str("query", schema).Msg("handler returned an invalid payload")
		results = []payload.Payload{payload.NewModuleError(queryHash, b.config.Name, schema, err.Error())}
		return boundwitness.NewBuilder().Payloads(results...).Signers(signers...).Build()
	}
	return nil, nil, fmt.Errorf("could not bind query result: %w", err)
}

func (b *Base) handleDiscover(ctx context.Context, _ *boundwitness.QueryWrapper, _ payload.Payload) ([]payload.Payload, error) {
	return b.module.Discover(ctx)
}

func (b *Base) handleSubscribe(_ context.Context, w *boundwitness.QueryWrapper, _ payload.Payload) ([]payload.Payload, error) {
	b.log.Debug().Interface("subscribers", w.Addresses()).Msg("subscribe query received")
	return nil, nil
}
