package witness

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/base"
)

const (
	ConfigSchema       = "network.xyo.witness.config"
	ObserveQuerySchema = "network.xyo.query.witness.observe"
)

// Observer produces the observations of a witness. Supplied payloads are hints the observer may
// use or ignore.
type Observer interface {
	Observe(ctx context.Context, payloads []payload.Payload) ([]payload.Payload, error)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, payloads []payload.Payload) ([]payload.Payload, error)

func (f ObserverFunc) Observe(ctx context.Context, payloads []payload.Payload) ([]payload.Payload, error) {
	return f(ctx, payloads)
}

// Witness is a module answering observe queries with the output of its observer.
type Witness struct {
	*base.Base
	observer Observer
}

// New creates a witness. A nil account is replaced by a random one.
func New(log zerolog.Logger, account *crypto.Account, config module.Config, observer Observer, opts ...base.Option) (*Witness, error) {
	if config.Schema == "" {
		config.Schema = ConfigSchema
	}
	w := &Witness{observer: observer}
	handlers := base.Handlers{
		ObserveQuerySchema: w.handleObserve,
	}
	b, err := base.New(log, account, config, handlers, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create witness: %w", err)
	}
	w.Base = b
	w.SetModule(w)
	return w, nil
}

// Observe runs the observer. Every observation must carry a schema.
func (w *Witness) Observe(ctx context.Context, payloads []payload.Payload) ([]payload.Payload, error) {
	observed, err := w.observer.Observe(ctx, payloads)
	if err != nil {
		return nil, fmt.Errorf("could not observe: %w", err)
	}
	for _, p := range observed {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("invalid observation: %w", err)
		}
	}
	logger := w.Logger()
	logger.Debug().Int("observed", len(observed)).Msg("observation made")
	return observed, nil
}

func (w *Witness) handleObserve(ctx context.Context, q *boundwitness.QueryWrapper, _ payload.Payload) ([]payload.Payload, error) {
	return w.Observe(ctx, q.SupportingPayloads())
}
