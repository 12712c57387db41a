package archivist

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/storage"
)

// Store is the local payload storage of an archivist.
type Store interface {
	// Put stores p under h. Storing a payload twice is a no-op.
	Put(h hash.Hash, p payload.Payload) error

	// Get returns the payload stored under h and whether it was found.
	Get(h hash.Hash) (payload.Payload, bool, error)

	All() ([]payload.Payload, error)

	// Delete removes the payload stored under h and reports whether there was one.
	Delete(h hash.Hash) (bool, error)

	Clear() error
}

// MemoryStore keeps payloads in memory, evicting the least recently used one beyond its size.
type MemoryStore struct {
	cache *lru.Cache[hash.Hash, payload.Payload]
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMaxSize
	}
	cache, err := lru.New[hash.Hash, payload.Payload](size)
	if err != nil {
		return nil, fmt.Errorf("could not create memory store: %w", err)
	}
	return &MemoryStore{cache: cache}, nil
}

func (s *MemoryStore) Put(h hash.Hash, p payload.Payload) error {
	s.cache.Add(h, p.Clone())
	return nil
}

func (s *MemoryStore) Get(h hash.Hash) (payload.Payload, bool, error) {
	p, ok := s.cache.Get(h)
	if !ok {
		return nil, false, nil
	}
	return p.Clone(), true, nil
}

// All returns the stored payloads from least to most recently used.
func (s *MemoryStore) All() ([]payload.Payload, error) {
	values := s.cache.Values()
	out := make([]payload.Payload, 0, len(values))
	for _, p := range values {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (s *MemoryStore) Delete(h hash.Hash) (bool, error) {
	return s.cache.Remove(h), nil
}

func (s *MemoryStore) Clear() error {
	s.cache.Purge()
	return nil
}

// PersistentStore keeps payloads in a payload storage.
type PersistentStore struct {
	payloads storage.Payloads
}

var _ Store = (*PersistentStore)(nil)

func NewPersistentStore(payloads storage.Payloads) *PersistentStore {
	return &PersistentStore{payloads: payloads}
}

func (s *PersistentStore) Put(h hash.Hash, p payload.Payload) error {
	return s.payloads.Store(h, p)
}

func (s *PersistentStore) Get(h hash.Hash) (payload.Payload, bool, error) {
	p, err := s.payloads.ByHash(h)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (s *PersistentStore) All() ([]payload.Payload, error) {
	return s.payloads.All()
}

func (s *PersistentStore) Delete(h hash.Hash) (bool, error) {
	err := s.payloads.Remove(h)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PersistentStore) Clear() error {
	return s.payloads.Clear()
}
