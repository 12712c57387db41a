package base

import (
	"context"
	"fmt"

	"github.com/witnessnet/witnessnet/module"
)

func (b *Base) State() module.State {
	return module.State(b.state.Load())
}

// Started reports whether the module accepts queries.
func (b *Base) Started() bool {
	return b.State() == module.StateStarted
}

// Start validates the config and starts the module. Starting a started module is a no-op;
// a stopped module cannot be restarted.
func (b *Base) Start(ctx context.Context) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	switch b.State() {
	case module.StateStarted:
		return nil
	case module.StateStopped:
		return module.ErrStopped
	}

	if err := b.config.Validate(); err != nil {
		b.log.Error().Err(err).Msg("invalid module config")
		return err
	}

	for _, hook := range b.startHooks {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("could not start module: %w", err)
		}
	}

	b.state.Store(int32(module.StateStarted))
	b.log.Info().Msg("module started")
	return nil
}

// Stop stops the module. Queries are refused afterwards.
func (b *Base) Stop(ctx context.Context) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if !b.state.CompareAndSwap(int32(module.StateStarted), int32(module.StateStopped)) {
		b.state.Store(int32(module.StateStopped))
		return nil
	}

	for _, hook := range b.stopHooks {
		if err := hook(ctx); err != nil {
			b.log.Error().Err(err).Msg("stop hook failed")
		}
	}
	b.log.Info().Msg("module stopped")
	return nil
}

// logNotStarted reports a query to a module that is not started, at the configured level.
func (b *Base) logNotStarted(schema string) {
	switch b.config.NotStartedAction {
	case module.NotStartedNone:
	case module.NotStartedError:
		b.log.Error().Str("query", schema).Str("state", b.State().String()).Msg("module queried before start")
	default:
		b.log.Warn().Str("query", schema).Str("state", b.State().String()).Msg("module queried before start")
	}
}
