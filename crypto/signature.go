package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/witnessnet/witnessnet/model/hash"
)

// SignatureLength is the length of an r||s signature. The recovery id is not transmitted.
const SignatureLength = 64

// Signature is a secp256k1 ECDSA signature over a 32-byte hash, encoded as r||s.
type Signature []byte

// SignatureFromHex parses a hex encoded signature.
func SignatureFromHex(s string) (Signature, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("could not decode signature: %w", err)
	}
	if len(b) != SignatureLength {
		return nil, fmt.Errorf("%w (expected %d bytes, got %d)", ErrInvalidSignatureLength, SignatureLength, len(b))
	}
	return b, nil
}

func (s Signature) Hex() string {
	return hex.EncodeToString(s)
}

func (s Signature) String() string {
	return s.Hex()
}

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.Hex()), nil
}

func (s *Signature) UnmarshalText(text []byte) error {
	parsed, err := SignatureFromHex(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Verify reports whether sig is a signature of h by the key behind addr. Every recovery id
// candidate is tried since signatures carry none.
func Verify(h hash.Hash, sig Signature, addr Address) bool {
	if len(sig) != SignatureLength {
		return false
	}
	recoverable := make([]byte, SignatureLength+1)
	copy(recoverable, sig)
	for v := byte(0); v < 4; v++ {
		recoverable[SignatureLength] = v
		pub, err := gethcrypto.SigToPub(h[:], recoverable)
		if err != nil {
			continue
		}
		if Address(gethcrypto.PubkeyToAddress(*pub)) == addr {
			return true
		}
	}
	return false
}
