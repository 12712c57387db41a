package witness

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/base"
)

const AdhocConfigSchema = "network.xyo.witness.adhoc.config"

// AdhocConfig is the variant specific config of an adhoc witness.
type AdhocConfig struct {
	// Payload is the template of every observation.
	Payload payload.Payload `json:"payload"`

	// Nonce adds a random nonce field to every observation.
	Nonce bool `json:"nonce,omitempty"`
}

// AdhocObserver observes a fixed template. Each supplied payload is observed as the template
// overridden by the payload's fields.
type AdhocObserver struct {
	template payload.Payload
	nonce    bool
}

func NewAdhocObserver(template payload.Payload, nonce bool) (*AdhocObserver, error) {
	if err := template.Validate(); err != nil {
		return nil, fmt.Errorf("invalid adhoc template: %w", err)
	}
	return &AdhocObserver{template: template.Clone(), nonce: nonce}, nil
}

func (o *AdhocObserver) Observe(_ context.Context, payloads []payload.Payload) ([]payload.Payload, error) {
	if len(payloads) == 0 {
		return []payload.Payload{o.observe(nil)}, nil
	}
	out := make([]payload.Payload, 0, len(payloads))
	for _, fields := range payloads {
		out = append(out, o.observe(fields))
	}
	return out, nil
}

func (o *AdhocObserver) observe(fields payload.Payload) payload.Payload {
	p := o.template.Clone()
	for k, v := range fields {
		p[k] = v
	}
	if o.nonce {
		p["nonce"] = uuid.New().String()
	}
	return p
}

// NewAdhoc creates a witness observing the template found in its config.
func NewAdhoc(log zerolog.Logger, account *crypto.Account, config module.Config, opts ...base.Option) (*Witness, error) {
	if config.Schema == "" {
		config.Schema = AdhocConfigSchema
	}
	var c AdhocConfig
	err := config.DecodeExtra(&c)
	if err != nil {
		return nil, module.NewInvalidConfigErrorf("payload", "could not decode adhoc config: %v", err)
	}
	if c.Payload == nil {
		return nil, module.NewInvalidConfigErrorf("payload", "missing adhoc payload")
	}
	observer, err := NewAdhocObserver(c.Payload, c.Nonce)
	if err != nil {
		return nil, module.NewInvalidConfigErrorf("payload", "%v", err)
	}
	return New(log, account, config, observer, opts...)
}
