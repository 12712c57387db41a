package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/witnessnet/witnessnet/model/encoding"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/storage"
	"github.com/witnessnet/witnessnet/storage/badger/operation"
)

// Payloads implements storage.Payloads on badger.
type Payloads struct {
	db *badger.DB
}

var _ storage.Payloads = (*Payloads)(nil)

func NewPayloads(db *badger.DB) *Payloads {
	return &Payloads{db: db}
}

func (p *Payloads) Store(h hash.Hash, pl payload.Payload) error {
	actual, err := pl.Hash()
	if err != nil {
		return fmt.Errorf("could not hash payload: %w", err)
	}
	if actual != h {
		return fmt.Errorf("payload hashes to %s, not %s: %w", actual, h, storage.ErrDataMismatch)
	}

	// meta fields such as _signatures are kept; only the hash ignores them
	data, err := encoding.DefaultEncoder.Encode(pl)
	if err != nil {
		return fmt.Errorf("could not encode payload: %w", err)
	}
	record := &operation.PayloadRecord{Schema: pl.Schema(), Data: data}

	err = operation.RetryOnConflict(p.db.Update, operation.SkipDuplicates(operation.InsertPayload(h, record)))
	return operation.TerminateOnFullDisk(err)
}

func (p *Payloads) ByHash(h hash.Hash) (payload.Payload, error) {
	var record operation.PayloadRecord
	err := p.db.View(operation.RetrievePayload(h, &record))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve payload %s: %w", h, err)
	}
	return payload.Unmarshal(record.Data)
}

func (p *Payloads) All() ([]payload.Payload, error) {
	var out []payload.Payload
	err := p.db.View(operation.TraversePayloads(func(h hash.Hash, record *operation.PayloadRecord) error {
		pl, err := payload.Unmarshal(record.Data)
		if err != nil {
			return fmt.Errorf("could not decode payload %s: %w", h, err)
		}
		out = append(out, pl)
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("could not traverse payloads: %w", err)
	}
	return out, nil
}

func (p *Payloads) Remove(h hash.Hash) error {
	return p.db.Update(operation.RemovePayload(h))
}

func (p *Payloads) Clear() error {
	return p.db.Update(operation.RemoveAllPayloads())
}
