package boundwitness

import (
	"fmt"
	"time"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
)

// Builder assembles, hashes and signs a bound witness.
//
// A builder takes either payloads or precomputed (hash, schema) pairs, never both. Signers sign
// in the order they were added.
type Builder struct {
	payloads  []payload.Payload
	hashes    []hash.Hash
	schemas   []string
	seen      hash.Set
	raw       bool
	external  bool
	signers   []*crypto.Account
	query     *hash.Hash
	timestamp bool
	now       func() time.Time
	err       error
}

func NewBuilder() *Builder {
	return &Builder{
		seen:      hash.NewSet(),
		timestamp: true,
		now:       time.Now,
	}
}

// Payloads adds payloads in order. A payload added twice is bound twice.
func (b *Builder) Payloads(payloads ...payload.Payload) *Builder {
	if b.err != nil {
		return b
	}
	if b.external {
		b.err = ErrMixedPayloadSources
		return b
	}
	b.raw = true
	for _, p := range payloads {
		if err := p.Validate(); err != nil {
			b.err = fmt.Errorf("could not add payload: %w", err)
			return b
		}
		h, err := payload.Hash(p)
		if err != nil {
			b.err = err
			return b
		}
		b.seen[h] = struct{}{}
		b.payloads = append(b.payloads, p)
		b.hashes = append(b.hashes, h)
		b.schemas = append(b.schemas, p.Schema())
	}
	return b
}

// PayloadHash adds a precomputed payload hash and its schema.
func (b *Builder) PayloadHash(h hash.Hash, schema string) *Builder {
	if b.err != nil {
		return b
	}
	if b.raw {
		b.err = ErrMixedPayloadSources
		return b
	}
	b.external = true
	b.seen[h] = struct{}{}
	b.hashes = append(b.hashes, h)
	b.schemas = append(b.schemas, schema)
	return b
}

// Query references the query payload from the record, adding it unless it was added already.
func (b *Builder) Query(query payload.Payload) *Builder {
	if b.err != nil {
		return b
	}
	h, err := payload.Hash(query)
	if err != nil {
		b.err = err
		return b
	}
	if !b.seen.Has(h) {
		b.Payloads(query)
	}
	b.query = &h
	return b
}

// Signers adds signing accounts.
func (b *Builder) Signers(accounts ...*crypto.Account) *Builder {
	b.signers = append(b.signers, accounts...)
	return b
}

// WithoutTimestamp leaves the timestamp field out of the record.
func (b *Builder) WithoutTimestamp() *Builder {
	b.timestamp = false
	return b
}

// WithClock replaces the clock used for the timestamp.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build hashes the record and signs it with every signer. The previous hash of each signer is
// read before anyone signs, and the signing locks are held until everyone signed, so concurrent
// builds never fork an account's chain.
func (b *Builder) Build() (*BoundWitness, []payload.Payload, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	bw := &BoundWitness{
		Schema:         Schema,
		Addresses:      make([]crypto.Address, 0, len(b.signers)),
		PayloadHashes:  append([]hash.Hash{}, b.hashes...),
		PayloadSchemas: append([]string{}, b.schemas...),
		PreviousHashes: make([]*hash.Hash, 0, len(b.signers)),
		Query:          b.query,
		Signatures:     make([]crypto.Signature, 0, len(b.signers)),
	}
	if b.timestamp {
		ts := b.now().UnixMilli()
		bw.Timestamp = &ts
	}

	session := crypto.Acquire(b.signers...)
	defer session.Release()

	for _, signer := range b.signers {
		prev, err := session.PreviousHash(signer)
		if err != nil {
			return nil, nil, err
		}
		bw.Addresses = append(bw.Addresses, signer.Address())
		bw.PreviousHashes = append(bw.PreviousHashes, prev)
	}

	h, err := bw.Hash()
	if err != nil {
		return nil, nil, err
	}

	for _, signer := range b.signers {
		sig, err := session.Sign(signer, h)
		if err != nil {
			return nil, nil, fmt.Errorf("could not sign bound witness: %w", err)
		}
		bw.Signatures = append(bw.Signatures, sig)
	}

	return bw, append([]payload.Payload{}, b.payloads...), nil
}
