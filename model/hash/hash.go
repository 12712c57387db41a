package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Size is the length in bytes of a content hash.
const Size = 32

// Hash is the SHA-256 digest identifying a payload or a bound witness.
type Hash [Size]byte

// ZeroHash is the empty hash, never the identity of valid content.
var ZeroHash = Hash{}

// Sum computes the hash of the given bytes.
func Sum(data []byte) Hash {
	return sha256.Sum256(data)
}

// FromBytes converts a byte slice into a hash. The slice must be exactly Size bytes long.
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != Size {
		return h, fmt.Errorf("invalid hash length (expected %d bytes, got %d)", Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// FromHex parses a hex encoded hash, with or without a 0x prefix.
func FromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return ZeroHash, fmt.Errorf("could not decode hash %q: %w", s, err)
	}
	return FromBytes(b)
}

// MustFromHex parses a hex encoded hash and panics on failure.
func MustFromHex(s string) Hash {
	h, err := FromHex(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) Equal(other Hash) bool {
	return bytes.Equal(h[:], other[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := FromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Set is a membership set of hashes.
type Set map[Hash]struct{}

func NewSet(hashes ...Hash) Set {
	s := make(Set, len(hashes))
	for _, h := range hashes {
		s[h] = struct{}{}
	}
	return s
}

func (s Set) Has(h Hash) bool {
	_, ok := s[h]
	return ok
}

// Strings returns the hex form of every hash in order.
func Strings(hashes []Hash) []string {
	ss := make([]string, 0, len(hashes))
	for _, h := range hashes {
		ss = append(ss, h.Hex())
	}
	return ss
}
