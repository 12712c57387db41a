package boundwitness

import (
	"fmt"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
)

// Schema is the schema of every bound witness.
const Schema = "network.xyo.boundwitness"

// BoundWitness is a multi-signed attestation over a set of payload hashes. Each signer also
// attests to the last hash it signed before this record, chaining its records together.
//
// Addresses, PreviousHashes and Signatures are index aligned, as are PayloadHashes and
// PayloadSchemas. Signatures are excluded from the record hash.
type BoundWitness struct {
	Schema         string             `json:"schema"`
	Addresses      []crypto.Address   `json:"addresses"`
	PayloadHashes  []hash.Hash        `json:"payload_hashes"`
	PayloadSchemas []string           `json:"payload_schemas"`
	PreviousHashes []*hash.Hash       `json:"previous_hashes"`
	Query          *hash.Hash         `json:"query,omitempty"`
	Timestamp      *int64             `json:"timestamp,omitempty"`
	Signatures     []crypto.Signature `json:"_signatures"`
}

// Hash computes the record hash. It does not depend on the signatures.
func (bw *BoundWitness) Hash() (hash.Hash, error) {
	h, err := payload.Hash(bw.normalized())
	if err != nil {
		return hash.ZeroHash, fmt.Errorf("could not hash bound witness: %w", err)
	}
	return h, nil
}

// IsQuery reports whether the record binds a query.
func (bw *BoundWitness) IsQuery() bool {
	return bw.Query != nil
}

// PreviousHash returns the previous hash the given signer attested to, and whether the address
// signed this record at all.
func (bw *BoundWitness) PreviousHash(addr crypto.Address) (*hash.Hash, bool) {
	for i, a := range bw.Addresses {
		if a == addr && i < len(bw.PreviousHashes) {
			return bw.PreviousHashes[i], true
		}
	}
	return nil, false
}

// Payload converts the record into its generic payload form.
func (bw *BoundWitness) Payload() (payload.Payload, error) {
	return payload.From(bw.normalized())
}

// FromPayload decodes a bound witness from its generic payload form.
func FromPayload(p payload.Payload) (*BoundWitness, error) {
	if p.Schema() != Schema {
		return nil, fmt.Errorf("%w: got schema %q", ErrNotABoundWitness, p.Schema())
	}
	var bw BoundWitness
	err := p.Decode(&bw)
	if err != nil {
		return nil, err
	}
	return bw.normalized(), nil
}

// IsBoundWitness reports whether a generic payload is a bound witness.
func IsBoundWitness(p payload.Payload) bool {
	return p.Schema() == Schema
}

// normalized returns a copy whose list fields are never nil, so that records decoded from
// empty JSON arrays hash the same as freshly built ones.
func (bw *BoundWitness) normalized() *BoundWitness {
	n := *bw
	if n.Addresses == nil {
		n.Addresses = []crypto.Address{}
	}
	if n.PayloadHashes == nil {
		n.PayloadHashes = []hash.Hash{}
	}
	if n.PayloadSchemas == nil {
		n.PayloadSchemas = []string{}
	}
	if n.PreviousHashes == nil {
		n.PreviousHashes = []*hash.Hash{}
	}
	if n.Signatures == nil {
		n.Signatures = []crypto.Signature{}
	}
	return &n
}
