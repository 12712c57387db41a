package archivist

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/base"
)

// Archivist is a module storing payloads by content hash. It may read through, write through
// and commit to parent archivists found through its resolvers.
type Archivist struct {
	*base.Base

	store   Store
	config  Config
	metrics module.ArchivistMetrics

	mu   sync.RWMutex
	head *hash.Hash
}

// New creates an archivist over store. A nil account is replaced by a random one.
func New(log zerolog.Logger, metrics module.ArchivistMetrics, account *crypto.Account, config module.Config, store Store, opts ...base.Option) (*Archivist, error) {
	if config.Schema == "" {
		config.Schema = ConfigSchema
	}
	c, err := ParseConfig(config)
	if err != nil {
		return nil, err
	}

	a := &Archivist{
		store:   store,
		config:  c,
		metrics: metrics,
	}
	handlers := base.Handlers{
		AllQuerySchema:    a.handleAll,
		ClearQuerySchema:  a.handleClear,
		CommitQuerySchema: a.handleCommit,
		DeleteQuerySchema: a.handleDelete,
		GetQuerySchema:    a.handleGet,
		InsertQuerySchema: a.handleInsert,
	}

	b, err := base.New(log, account, config, handlers, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create archivist: %w", err)
	}
	a.Base = b
	a.SetModule(a)

	return a, nil
}

// NewMemory creates an archivist keeping at most the configured max size of payloads in memory.
func NewMemory(log zerolog.Logger, metrics module.ArchivistMetrics, account *crypto.Account, config module.Config, opts ...base.Option) (*Archivist, error) {
	c, err := ParseConfig(config)
	if err != nil {
		return nil, err
	}
	store, err := NewMemoryStore(c.MaxSize)
	if err != nil {
		return nil, err
	}
	return New(log, metrics, account, config, store, opts...)
}

// Insert stores the payloads and returns a bound witness over them signed by the archivist,
// followed by the bound witnesses of the write parents. The archivist's bound witness is
// written to the parents along with the payloads. Failing parents are logged, not returned.
func (a *Archivist) Insert(ctx context.Context, payloads []payload.Payload) ([]*boundwitness.BoundWitness, error) {
	for _, p := range payloads {
		err := p.Validate()
		if err != nil {
			return nil, fmt.Errorf("could not insert payload: %w", err)
		}
		h, err := p.Hash()
		if err != nil {
			return nil, err
		}
		err = a.store.Put(h, p)
		if err != nil {
			return nil, fmt.Errorf("could not store payload %s: %w", h, err)
		}
		a.setHead(h)
	}
	a.metrics.PayloadsInserted(a.Config().Name, len(payloads))

	bw, _, err := boundwitness.NewBuilder().Payloads(payloads...).Signers(a.Account()).Build()
	if err != nil {
		return nil, fmt.Errorf("could not bind inserted payloads: %w", err)
	}
	logger := a.Logger()
	logger.Debug().Int("payloads", len(payloads)).Msg("payloads inserted")

	out := []*boundwitness.BoundWitness{bw}
	if len(a.config.Parents.Write) == 0 {
		return out, nil
	}

	bwPayload, err := bw.Payload()
	if err != nil {
		return nil, err
	}
	parents, err := a.resolveParents(ctx, a.config.Parents.Write)
	if err != nil {
		return nil, err
	}
	forward := append([]payload.Payload{bwPayload}, payloads...)
	parentResults, err := a.insertIntoParents(ctx, parents, forward)
	if err != nil {
		logger := a.Logger()
		logger.Warn().Err(err).Msg("could not write through to every parent")
	}
	return append(out, parentResults...), nil
}

// Get returns the payloads found for the hashes, in request order. Hashes missing locally are
// looked up in the read parents. Without hashes it returns the last inserted payload.
func (a *Archivist) Get(ctx context.Context, hashes []hash.Hash) ([]payload.Payload, error) {
	if len(hashes) == 0 {
		return a.lastInserted()
	}

	var (
		out     []payload.Payload
		parents []module.Module
		loaded  bool
	)
	for _, h := range hashes {
		p, ok, err := a.store.Get(h)
		if err != nil {
			return nil, fmt.Errorf("could not get payload %s: %w", h, err)
		}
		if ok {
			out = append(out, p)
			continue
		}
		if len(a.config.Parents.Read) == 0 {
			continue
		}

		if !loaded {
			parents, err = a.resolveParents(ctx, a.config.Parents.Read)
			if err != nil {
				return nil, err
			}
			loaded = true
		}
		p, ok = a.getFromParents(ctx, parents, h)
		if !ok {
			a.metrics.ParentReadMiss(a.Config().Name)
			continue
		}
		if a.config.StoreParentReads {
			err = a.store.Put(h, p)
			if err != nil {
				return nil, fmt.Errorf("could not store parent payload %s: %w", h, err)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (a *Archivist) All(_ context.Context) ([]payload.Payload, error) {
	return a.store.All()
}

// Delete removes the payloads and reports, per hash, whether one was removed.
func (a *Archivist) Delete(_ context.Context, hashes []hash.Hash) ([]bool, error) {
	deleted := make([]bool, 0, len(hashes))
	removed := 0
	for _, h := range hashes {
		ok, err := a.store.Delete(h)
		if err != nil {
			return nil, fmt.Errorf("could not delete payload %s: %w", h, err)
		}
		if ok {
			removed++
		}
		deleted = append(deleted, ok)
	}
	a.metrics.PayloadsRemoved(a.Config().Name, removed)
	return deleted, nil
}

func (a *Archivist) Clear(_ context.Context) error {
	err := a.store.Clear()
	if err != nil {
		return fmt.Errorf("could not clear archivist: %w", err)
	}
	a.mu.Lock()
	a.head = nil
	a.mu.Unlock()
	logger := a.Logger()
	logger.Info().Msg("archivist cleared")
	return nil
}

// Commit inserts every local payload into the commit parents and clears the archivist once all
// of them accepted the payloads. It returns the parents' bound witnesses.
func (a *Archivist) Commit(ctx context.Context) ([]*boundwitness.BoundWitness, error) {
	if len(a.config.Parents.Commit) == 0 {
		return nil, ErrNoCommitParents
	}
	payloads, err := a.store.All()
	if err != nil {
		return nil, fmt.Errorf("could not read payloads to commit: %w", err)
	}
	if len(payloads) == 0 {
		return nil, ErrNothingToCommit
	}

	parents, err := a.resolveParents(ctx, a.config.Parents.Commit)
	if err != nil {
		return nil, err
	}
	if len(parents) == 0 {
		return nil, fmt.Errorf("could not commit: %w", ErrParentNotFound)
	}
	out, err := a.insertIntoParents(ctx, parents, payloads)
	if err != nil {
		return nil, fmt.Errorf("could not commit: %w", err)
	}

	err = a.Clear(ctx)
	if err != nil {
		return nil, err
	}
	logger := a.Logger()
	logger.Info().Int("payloads", len(payloads)).Int("parents", len(parents)).Msg("payloads committed")
	return out, nil
}

func (a *Archivist) setHead(h hash.Hash) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.head = &h
}

// lastInserted returns the last inserted payload, if it is still stored.
func (a *Archivist) lastInserted() ([]payload.Payload, error) {
	a.mu.RLock()
	head := a.head
	a.mu.RUnlock()
	if head == nil {
		return nil, nil
	}
	p, ok, err := a.store.Get(*head)
	if err != nil || !ok {
		return nil, err
	}
	return []payload.Payload{p}, nil
}
