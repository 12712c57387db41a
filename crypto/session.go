package crypto

import (
	"fmt"

	"github.com/witnessnet/witnessnet/model/hash"
)

// Session holds the signing locks of a set of accounts. While a session is held no other signer
// can advance any of its accounts, so previous hashes read through the session stay valid until
// the session signs.
//
// Locks are taken in address order, which keeps concurrent sessions over overlapping account
// sets from deadlocking.
type Session struct {
	held map[*Account]struct{}
	// lock order
	order []*Account
}

// Acquire locks the given accounts. Duplicates are locked once. The caller must Release.
func Acquire(accounts ...*Account) *Session {
	s := &Session{held: make(map[*Account]struct{}, len(accounts))}
	byAddress := make(map[Address]*Account, len(accounts))
	addrs := make([]Address, 0, len(accounts))
	for _, a := range accounts {
		if _, ok := s.held[a]; ok {
			continue
		}
		s.held[a] = struct{}{}
		byAddress[a.address] = a
		addrs = append(addrs, a.address)
	}
	SortAddresses(addrs)
	for _, addr := range addrs {
		a := byAddress[addr]
		a.mu.Lock()
		s.order = append(s.order, a)
	}
	return s
}

// Release unlocks every account of the session in reverse order.
func (s *Session) Release() {
	for i := len(s.order) - 1; i >= 0; i-- {
		s.order[i].mu.Unlock()
	}
	s.order = nil
	s.held = nil
}

// PreviousHash returns the previous hash of a held account.
func (s *Session) PreviousHash(a *Account) (*hash.Hash, error) {
	if _, ok := s.held[a]; !ok {
		return nil, fmt.Errorf("account %s is not held by this session", a.address)
	}
	return a.previousHashLocked(), nil
}

// Sign signs h with a held account and advances its previous hash.
func (s *Session) Sign(a *Account, h hash.Hash) (Signature, error) {
	if _, ok := s.held[a]; !ok {
		return nil, fmt.Errorf("account %s is not held by this session", a.address)
	}
	return a.signLocked(h)
}
