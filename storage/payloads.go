package storage

import (
	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
)

// Payloads stores payloads by content hash.
type Payloads interface {
	// Store stores p under h. Storing the same payload twice is a no-op. It returns
	// ErrDataMismatch if p does not hash to h.
	Store(h hash.Hash, p payload.Payload) error

	// ByHash returns the payload stored under h, or ErrNotFound.
	ByHash(h hash.Hash) (payload.Payload, error)

	// All returns every stored payload, ordered by hash.
	All() ([]payload.Payload, error)

	// Remove removes the payload stored under h, or returns ErrNotFound.
	Remove(h hash.Hash) error

	Clear() error
}

// PreviousHashes stores the last hash each address signed.
type PreviousHashes interface {
	Store(addr crypto.Address, h hash.Hash) error

	// ByAddress returns the last hash addr signed, or ErrNotFound.
	ByAddress(addr crypto.Address) (hash.Hash, error)

	Remove(addr crypto.Address) error
}
