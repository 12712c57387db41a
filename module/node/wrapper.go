package node

import (
	"context"
	"fmt"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/query"
)

// Wrapper drives a node, local or remote, through queries.
type Wrapper struct {
	*query.Wrapper
}

// NewWrapper wraps m, which must support the node queries. Queries are signed by account.
func NewWrapper(m module.Module, account *crypto.Account) (*Wrapper, error) {
	err := module.RequireQueries(m, AttachQuerySchema, AttachedQuerySchema, DetachQuerySchema, RegisteredQuerySchema)
	if err != nil {
		return nil, err
	}
	return &Wrapper{Wrapper: query.NewWrapper(m, account)}, nil
}

func (w *Wrapper) Attach(ctx context.Context, ref string, external bool) (crypto.Address, error) {
	q := payload.MustFrom(AttachQuery{Schema: AttachQuerySchema, Module: ref, External: external})
	return w.single(ctx, q)
}

func (w *Wrapper) Detach(ctx context.Context, ref string) (crypto.Address, error) {
	q := payload.MustFrom(DetachQuery{Schema: DetachQuerySchema, Module: ref})
	return w.single(ctx, q)
}

func (w *Wrapper) Attached(ctx context.Context) ([]crypto.Address, error) {
	return w.addresses(ctx, query.New(AttachedQuerySchema, nil))
}

func (w *Wrapper) Registered(ctx context.Context) ([]crypto.Address, error) {
	return w.addresses(ctx, query.New(RegisteredQuerySchema, nil))
}

func (w *Wrapper) single(ctx context.Context, q payload.Payload) (crypto.Address, error) {
	addrs, err := w.addresses(ctx, q)
	if err != nil {
		return crypto.Address{}, err
	}
	if len(addrs) != 1 {
		return crypto.Address{}, query.InvalidResponseError{Err: fmt.Errorf("expected one address, got %d", len(addrs))}
	}
	return addrs[0], nil
}

func (w *Wrapper) addresses(ctx context.Context, q payload.Payload) ([]crypto.Address, error) {
	_, results, err := w.Send(ctx, q)
	if err != nil {
		return nil, err
	}
	var out []crypto.Address
	for _, p := range payload.FilterBySchema(results, payload.AddressSchema) {
		var addr payload.Address
		if err := p.Decode(&addr); err != nil {
			return nil, query.InvalidResponseError{Err: err}
		}
		out = append(out, addr.Address)
	}
	return out, nil
}
