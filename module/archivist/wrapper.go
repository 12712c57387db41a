package archivist

import (
	"context"
	"fmt"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/query"
)

// Wrapper drives an archivist, local or remote, through queries.
type Wrapper struct {
	*query.Wrapper
}

// NewWrapper wraps m, which must support the archivist queries. Queries are signed by account.
func NewWrapper(m module.Module, account *crypto.Account) (*Wrapper, error) {
	err := module.RequireQueries(m, Queries...)
	if err != nil {
		return nil, err
	}
	return &Wrapper{Wrapper: query.NewWrapper(m, account)}, nil
}

// Insert stores payloads and returns the bound witnesses attesting to it.
func (w *Wrapper) Insert(ctx context.Context, payloads []payload.Payload) ([]*boundwitness.BoundWitness, error) {
	hashes, err := payload.Hashes(payloads)
	if err != nil {
		return nil, err
	}
	q := payload.MustFrom(InsertQuery{Schema: InsertQuerySchema, Payloads: hashes})
	_, results, err := w.Send(ctx, q, payloads...)
	if err != nil {
		return nil, err
	}
	return boundWitnesses(results)
}

// Get returns the payloads found for the hashes. Without hashes it returns the last inserted
// payload, if any.
func (w *Wrapper) Get(ctx context.Context, hashes ...hash.Hash) ([]payload.Payload, error) {
	q := payload.MustFrom(GetQuery{Schema: GetQuerySchema, Hashes: hashes})
	_, results, err := w.Send(ctx, q)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (w *Wrapper) All(ctx context.Context) ([]payload.Payload, error) {
	_, results, err := w.Send(ctx, query.New(AllQuerySchema, nil))
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Delete removes payloads and reports, per hash, whether one was removed.
func (w *Wrapper) Delete(ctx context.Context, hashes ...hash.Hash) ([]bool, error) {
	q := payload.MustFrom(DeleteQuery{Schema: DeleteQuerySchema, Hashes: hashes})
	_, results, err := w.Send(ctx, q)
	if err != nil {
		return nil, err
	}
	found := payload.FilterBySchema(results, DeleteResultSchema)
	if len(found) != 1 {
		return nil, query.InvalidResponseError{Err: fmt.Errorf("expected one delete result, got %d", len(found))}
	}
	var result DeleteResult
	if err := found[0].Decode(&result); err != nil {
		return nil, query.InvalidResponseError{Err: err}
	}
	return result.Deleted, nil
}

func (w *Wrapper) Clear(ctx context.Context) error {
	_, _, err := w.Send(ctx, query.New(ClearQuerySchema, nil))
	return err
}

// Commit pushes the archivist's payloads to its commit parents.
func (w *Wrapper) Commit(ctx context.Context) ([]*boundwitness.BoundWitness, error) {
	_, results, err := w.Send(ctx, query.New(CommitQuerySchema, nil))
	if err != nil {
		return nil, err
	}
	return boundWitnesses(results)
}

func boundWitnesses(results []payload.Payload) ([]*boundwitness.BoundWitness, error) {
	var out []*boundwitness.BoundWitness
	for _, p := range payload.FilterBySchema(results, boundwitness.Schema) {
		bw, err := boundwitness.FromPayload(p)
		if err != nil {
			return nil, query.InvalidResponseError{Err: err}
		}
		out = append(out, bw)
	}
	return out, nil
}
