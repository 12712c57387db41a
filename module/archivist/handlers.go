package archivist

import (
	"context"
	"fmt"

	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/payload"
)

func (a *Archivist) handleInsert(ctx context.Context, w *boundwitness.QueryWrapper, q payload.Payload) ([]payload.Payload, error) {
	var query InsertQuery
	if err := q.Decode(&query); err != nil {
		return nil, err
	}

	payloads := w.SupportingPayloads()
	if len(query.Payloads) > 0 {
		payloads = make([]payload.Payload, 0, len(query.Payloads))
		for _, h := range query.Payloads {
			p, ok := w.PayloadByHash(h)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingPayload, h)
			}
			payloads = append(payloads, p)
		}
	}

	bws, err := a.Insert(ctx, payloads)
	if err != nil {
		return nil, err
	}
	return boundWitnessPayloads(bws)
}

func (a *Archivist) handleGet(ctx context.Context, _ *boundwitness.QueryWrapper, q payload.Payload) ([]payload.Payload, error) {
	var query GetQuery
	if err := q.Decode(&query); err != nil {
		return nil, err
	}
	return a.Get(ctx, query.Hashes)
}

func (a *Archivist) handleAll(ctx context.Context, _ *boundwitness.QueryWrapper, _ payload.Payload) ([]payload.Payload, error) {
	return a.All(ctx)
}

func (a *Archivist) handleDelete(ctx context.Context, _ *boundwitness.QueryWrapper, q payload.Payload) ([]payload.Payload, error) {
	var query DeleteQuery
	if err := q.Decode(&query); err != nil {
		return nil, err
	}
	deleted, err := a.Delete(ctx, query.Hashes)
	if err != nil {
		return nil, err
	}
	result, err := payload.From(DeleteResult{Schema: DeleteResultSchema, Hashes: query.Hashes, Deleted: deleted})
	if err != nil {
		return nil, err
	}
	return []payload.Payload{result}, nil
}

func (a *Archivist) handleClear(ctx context.Context, _ *boundwitness.QueryWrapper, _ payload.Payload) ([]payload.Payload, error) {
	return nil, a.Clear(ctx)
}

func (a *Archivist) handleCommit(ctx context.Context, _ *boundwitness.QueryWrapper, _ payload.Payload) ([]payload.Payload, error) {
	bws, err := a.Commit(ctx)
	if err != nil {
		return nil, err
	}
	return boundWitnessPayloads(bws)
}

func boundWitnessPayloads(bws []*boundwitness.BoundWitness) ([]payload.Payload, error) {
	out := make([]payload.Payload, 0, len(bws))
	for _, bw := range bws {
		p, err := bw.Payload()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
