package query

import (
	"fmt"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/payload"
)

// BindOption customizes the binding of a query.
type BindOption func(*boundwitness.Builder)

// WithSigners signs the query with the given accounts, in order.
func WithSigners(accounts ...*crypto.Account) BindOption {
	return func(b *boundwitness.Builder) {
		b.Signers(accounts...)
	}
}

// WithPayloads attaches supporting payloads to the query.
func WithPayloads(payloads ...payload.Payload) BindOption {
	return func(b *boundwitness.Builder) {
		b.Payloads(payloads...)
	}
}

// Bind wraps a query payload into a query bound witness referencing it.
func Bind(query payload.Payload, opts ...BindOption) (*boundwitness.BoundWitness, []payload.Payload, error) {
	b := boundwitness.NewBuilder().Query(query)
	for _, apply := range opts {
		apply(b)
	}
	bw, payloads, err := b.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("could not bind %s query: %w", query.Schema(), err)
	}
	return bw, payloads, nil
}

// New creates a query payload of the given schema.
func New(schema string, fields map[string]interface{}) payload.Payload {
	return payload.New(schema, fields)
}
