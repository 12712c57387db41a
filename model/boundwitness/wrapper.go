package boundwitness

import (
	"fmt"
	"sync"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
)

// Wrapper pairs a bound witness with the payloads travelling alongside it. Hashes are computed
// lazily and cached.
type Wrapper struct {
	bw       *BoundWitness
	payloads []payload.Payload

	hashOnce sync.Once
	hash     hash.Hash
	hashErr  error

	indexOnce sync.Once
	index     map[hash.Hash]payload.Payload
}

func Wrap(bw *BoundWitness, payloads []payload.Payload) *Wrapper {
	return &Wrapper{
		bw:       bw,
		payloads: payloads,
	}
}

func (w *Wrapper) BoundWitness() *BoundWitness {
	return w.bw
}

func (w *Wrapper) Payloads() []payload.Payload {
	return w.payloads
}

func (w *Wrapper) Addresses() []crypto.Address {
	return w.bw.Addresses
}

// Hash returns the cached record hash.
func (w *Wrapper) Hash() (hash.Hash, error) {
	w.hashOnce.Do(func() {
		w.hash, w.hashErr = w.bw.Hash()
	})
	return w.hash, w.hashErr
}

// PayloadByHash looks up an attached payload by its content hash.
func (w *Wrapper) PayloadByHash(h hash.Hash) (payload.Payload, bool) {
	w.indexOnce.Do(func() {
		w.index = make(map[hash.Hash]payload.Payload, len(w.payloads))
		for _, p := range w.payloads {
			ph, err := payload.Hash(p)
			if err != nil {
				continue
			}
			w.index[ph] = p
		}
	})
	p, ok := w.index[h]
	return p, ok
}

// PayloadsBySchema returns the attached payloads the record references with the given schema.
func (w *Wrapper) PayloadsBySchema(schema string) []payload.Payload {
	var out []payload.Payload
	for i, h := range w.bw.PayloadHashes {
		if i >= len(w.bw.PayloadSchemas) || w.bw.PayloadSchemas[i] != schema {
			continue
		}
		if p, ok := w.PayloadByHash(h); ok {
			out = append(out, p)
		}
	}
	return out
}

// MissingPayloads returns the referenced hashes that have no attached payload.
func (w *Wrapper) MissingPayloads() []hash.Hash {
	var missing []hash.Hash
	for _, h := range w.bw.PayloadHashes {
		if _, ok := w.PayloadByHash(h); !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// Validate runs the structural and signature checks against the record.
func (w *Wrapper) Validate() []error {
	return Validate(w.bw)
}

// QueryWrapper wraps a bound witness that binds a query payload.
type QueryWrapper struct {
	*Wrapper
}

// WrapQuery wraps a query bound witness. It fails with ErrNotAQuery if the record references no
// query.
func WrapQuery(bw *BoundWitness, payloads []payload.Payload) (*QueryWrapper, error) {
	if bw == nil || !bw.IsQuery() {
		return nil, ErrNotAQuery
	}
	return &QueryWrapper{Wrapper: Wrap(bw, payloads)}, nil
}

// QueryHash returns the hash of the bound query payload.
func (w *QueryWrapper) QueryHash() hash.Hash {
	return *w.bw.Query
}

// Query returns the query payload referenced by the record. It fails with
// ErrMissingReferencedPayload if that payload was not attached.
func (w *QueryWrapper) Query() (payload.Payload, error) {
	p, ok := w.PayloadByHash(w.QueryHash())
	if !ok {
		return nil, fmt.Errorf("%w: query %s", ErrMissingReferencedPayload, w.QueryHash())
	}
	return p, nil
}

// SupportingPayloads returns the attached payloads other than the query.
func (w *QueryWrapper) SupportingPayloads() []payload.Payload {
	var out []payload.Payload
	for _, p := range w.payloads {
		h, err := payload.Hash(p)
		if err == nil && h == w.QueryHash() {
			continue
		}
		out = append(out, p)
	}
	return out
}
