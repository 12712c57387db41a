package boundwitness

import (
	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/hash"
)

// ValidateOption adds checks to Validate.
type ValidateOption func(*validation)

type validation struct {
	claimed *hash.Hash
}

// WithClaimedHash also checks the record hashes to the hash it was addressed by.
func WithClaimedHash(h hash.Hash) ValidateOption {
	return func(v *validation) {
		v.claimed = &h
	}
}

// Validate checks the structure and the signatures of a bound witness. Every defect found is
// reported; an empty result means the record is valid.
func Validate(bw *BoundWitness, opts ...ValidateOption) []error {
	var v validation
	for _, apply := range opts {
		apply(&v)
	}

	var errs []error
	if bw == nil {
		return append(errs, NewValidationErrorf("record", "bound witness is nil"))
	}

	if bw.Schema != Schema {
		errs = append(errs, NewValidationErrorf("schema", "expected %q, got %q", Schema, bw.Schema))
	}

	if len(bw.Addresses) != len(bw.PreviousHashes) {
		errs = append(errs, NewValidationErrorf("previous_hashes", "length mismatch with addresses [%d, %d]",
			len(bw.Addresses), len(bw.PreviousHashes)))
	}
	if len(bw.Addresses) != len(bw.Signatures) {
		errs = append(errs, NewValidationErrorf("_signatures", "length mismatch with addresses [%d, %d]",
			len(bw.Addresses), len(bw.Signatures)))
	}
	if len(bw.PayloadHashes) != len(bw.PayloadSchemas) {
		errs = append(errs, NewValidationErrorf("payload_schemas", "length mismatch with payload_hashes [%d, %d]",
			len(bw.PayloadHashes), len(bw.PayloadSchemas)))
	}

	for i, h := range bw.PayloadHashes {
		if h.IsZero() {
			errs = append(errs, NewValidationErrorf("payload_hashes", "entry %d is empty", i))
		}
	}
	for i, s := range bw.PayloadSchemas {
		if s == "" {
			errs = append(errs, NewValidationErrorf("payload_schemas", "entry %d is empty", i))
		}
	}
	for i, a := range bw.Addresses {
		if a.IsZero() {
			errs = append(errs, NewValidationErrorf("addresses", "entry %d is empty", i))
		}
	}
	for i, prev := range bw.PreviousHashes {
		if prev != nil && prev.IsZero() {
			errs = append(errs, NewValidationErrorf("previous_hashes", "entry %d is the zero hash", i))
		}
	}
	if bw.Query != nil && !hash.NewSet(bw.PayloadHashes...).Has(*bw.Query) {
		errs = append(errs, NewValidationErrorf("query", "query %s is not among payload_hashes", bw.Query))
	}

	h, err := bw.Hash()
	if err != nil {
		return append(errs, NewValidationErrorf("record", "could not hash: %v", err))
	}
	if v.claimed != nil && *v.claimed != h {
		errs = append(errs, NewValidationErrorf("hash", "record hashes to %s, claimed %s", h, *v.claimed))
	}

	for i, sig := range bw.Signatures {
		if i >= len(bw.Addresses) {
			break
		}
		if !crypto.Verify(h, sig, bw.Addresses[i]) {
			errs = append(errs, NewValidationErrorf("_signatures", "signature %d does not verify for %s", i, bw.Addresses[i]))
		}
	}

	return errs
}

// IsValid reports whether Validate finds no defect.
func IsValid(bw *BoundWitness, opts ...ValidateOption) bool {
	return len(Validate(bw, opts...)) == 0
}
