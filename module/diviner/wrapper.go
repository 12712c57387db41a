package diviner

import (
	"context"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/query"
)

// Wrapper drives a diviner, local or remote, through queries.
type Wrapper struct {
	*query.Wrapper
}

func NewWrapper(m module.Module, account *crypto.Account) (*Wrapper, error) {
	err := module.RequireQueries(m, DivineQuerySchema)
	if err != nil {
		return nil, err
	}
	return &Wrapper{Wrapper: query.NewWrapper(m, account)}, nil
}

// Divine sends a divine query carrying payloads.
func (w *Wrapper) Divine(ctx context.Context, payloads ...payload.Payload) ([]payload.Payload, error) {
	_, results, err := w.Send(ctx, query.New(DivineQuerySchema, nil), payloads...)
	if err != nil {
		return nil, err
	}
	return results, nil
}
