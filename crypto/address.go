package crypto

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AddressLength is the length in bytes of an account or module address.
const AddressLength = common.AddressLength

// Address identifies an account, and through it a module. It is the last 20 bytes of the keccak256
// hash of the uncompressed public key.
type Address [AddressLength]byte

// ZeroAddress is the empty address.
var ZeroAddress = Address{}

// HexToAddress parses a hex encoded address, with or without a 0x prefix, in any case.
func HexToAddress(s string) (Address, error) {
	var addr Address
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return addr, fmt.Errorf("could not decode address %q: %w", s, err)
	}
	if len(b) != AddressLength {
		return addr, newInvalidAddressErrorf("invalid address length (expected %d bytes, got %d)", AddressLength, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// MustHexToAddress parses a hex encoded address and panics on failure.
func MustHexToAddress(s string) Address {
	addr, err := HexToAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// IsHexAddress reports whether s parses as an address.
func IsHexAddress(s string) bool {
	_, err := HexToAddress(s)
	return err == nil
}

// Hex returns the lower-case hex form without a 0x prefix.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := HexToAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// SortAddresses sorts addresses in place by their byte value.
func SortAddresses(addrs []Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
}

// AddressSet is a membership set of addresses.
type AddressSet map[Address]struct{}

func NewAddressSet(addrs ...Address) AddressSet {
	s := make(AddressSet, len(addrs))
	for _, a := range addrs {
		s[a] = struct{}{}
	}
	return s
}

func (s AddressSet) Has(a Address) bool {
	_, ok := s[a]
	return ok
}

func (s AddressSet) Add(a Address) {
	s[a] = struct{}{}
}

// Contains reports whether every given address is in the set.
func (s AddressSet) Contains(addrs ...Address) bool {
	for _, a := range addrs {
		if !s.Has(a) {
			return false
		}
	}
	return true
}
