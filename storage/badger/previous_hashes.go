package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/storage"
	"github.com/witnessnet/witnessnet/storage/badger/operation"
)

// PreviousHashes persists account chain positions. It also serves as the previous hash store
// of accounts, so a restarted account continues its chain.
type PreviousHashes struct {
	db *badger.DB
}

var _ storage.PreviousHashes = (*PreviousHashes)(nil)
var _ crypto.PreviousHashStore = (*PreviousHashes)(nil)

func NewPreviousHashes(db *badger.DB) *PreviousHashes {
	return &PreviousHashes{db: db}
}

func (p *PreviousHashes) Store(addr crypto.Address, h hash.Hash) error {
	err := operation.RetryOnConflict(p.db.Update, operation.UpsertPreviousHash(addr, h))
	return operation.TerminateOnFullDisk(err)
}

func (p *PreviousHashes) ByAddress(addr crypto.Address) (hash.Hash, error) {
	var h hash.Hash
	err := p.db.View(operation.RetrievePreviousHash(addr, &h))
	if err != nil {
		return hash.Hash{}, fmt.Errorf("could not retrieve previous hash of %s: %w", addr, err)
	}
	return h, nil
}

func (p *PreviousHashes) Remove(addr crypto.Address) error {
	return p.db.Update(operation.RemovePreviousHash(addr))
}

// PreviousHash returns nil for an address without a recorded chain.
func (p *PreviousHashes) PreviousHash(addr crypto.Address) (*hash.Hash, error) {
	h, err := p.ByAddress(addr)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (p *PreviousHashes) SetPreviousHash(addr crypto.Address, h hash.Hash) error {
	return p.Store(addr, h)
}
