package resolver

import (
	"context"
	"sync"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/module"
)

// Simple resolves over a fixed set of modules.
type Simple struct {
	mu      sync.RWMutex
	modules map[crypto.Address]module.Module
	// insertion order, for stable results
	order []crypto.Address
}

var _ module.Resolver = (*Simple)(nil)

func NewSimple(modules ...module.Module) *Simple {
	s := &Simple{modules: make(map[crypto.Address]module.Module)}
	s.Add(modules...)
	return s
}

// Add adds modules. A module whose address is already present replaces the previous one.
func (s *Simple) Add(modules ...module.Module) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range modules {
		if _, ok := s.modules[m.Address()]; !ok {
			s.order = append(s.order, m.Address())
		}
		s.modules[m.Address()] = m
	}
}

// Remove removes the modules with the given addresses and reports whether any was present.
func (s *Simple) Remove(addrs ...crypto.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := false
	for _, addr := range addrs {
		if _, ok := s.modules[addr]; !ok {
			continue
		}
		delete(s.modules, addr)
		removed = true
		for i, a := range s.order {
			if a == addr {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return removed
}

func (s *Simple) Has(addr crypto.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.modules[addr]
	return ok
}

func (s *Simple) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.modules)
}

// Resolve returns the modules matching filter.
func (s *Simple) Resolve(ctx context.Context, filter module.Filter) ([]module.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	all := make([]module.Module, 0, len(s.order))
	for _, addr := range s.order {
		all = append(all, s.modules[addr])
	}
	s.mu.RUnlock()
	return filter.Apply(all), nil
}
