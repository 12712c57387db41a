package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/module"
)

// Composite merges the results of several resolvers. Children are queried concurrently; a child
// that fails is logged and skipped, so one unreachable resolver never hides the others.
type Composite struct {
	log zerolog.Logger

	mu        sync.RWMutex
	resolvers []module.Resolver
}

var _ module.CompositeResolver = (*Composite)(nil)

func NewComposite(log zerolog.Logger, resolvers ...module.Resolver) *Composite {
	c := &Composite{log: log.With().Str("component", "composite_resolver").Logger()}
	c.Add(resolvers...)
	return c
}

func (c *Composite) Add(resolvers ...module.Resolver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range resolvers {
		if r == nil || c.indexOf(r) >= 0 {
			continue
		}
		c.resolvers = append(c.resolvers, r)
	}
}

func (c *Composite) Remove(resolvers ...module.Resolver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range resolvers {
		if i := c.indexOf(r); i >= 0 {
			c.resolvers = append(c.resolvers[:i], c.resolvers[i+1:]...)
		}
	}
}

// Contains reports whether r was added.
func (c *Composite) Contains(r module.Resolver) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexOf(r) >= 0
}

func (c *Composite) indexOf(r module.Resolver) int {
	for i, existing := range c.resolvers {
		if existing == r {
			return i
		}
	}
	return -1
}

// Resolve unions the children's results, deduplicated by address in child order.
func (c *Composite) Resolve(ctx context.Context, filter module.Filter) ([]module.Module, error) {
	c.mu.RLock()
	resolvers := make([]module.Resolver, len(c.resolvers))
	copy(resolvers, c.resolvers)
	c.mu.RUnlock()

	results, err := FanOut(ctx, resolvers, filter)
	if err != nil {
		c.log.Warn().Err(err).Msg("some resolvers failed")
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

// FanOut queries every resolver concurrently. Results are index aligned with resolvers; a failed
// resolver contributes nothing and its error is folded into the returned error.
func FanOut(ctx context.Context, resolvers []module.Resolver, filter module.Filter) ([][]module.Module, error) {
	results := make([][]module.Module, len(resolvers))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs *multierror.Error
	)
	for i, r := range resolvers {
		wg.Add(1)
		go func(i int, r module.Resolver) {
			defer wg.Done()
			modules, err := r.Resolve(ctx, filter)
			if err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("resolver %d: %w", i, err))
				mu.Unlock()
				return
			}
			results[i] = modules
		}(i, r)
	}
	wg.Wait()

	return results, errs.ErrorOrNil()
}
