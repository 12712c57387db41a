package crypto

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"sync"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/witnessnet/witnessnet/model/hash"
)

// PrivateKeyLength is the required length of raw private key material.
const PrivateKeyLength = 32

// PreviousHashStore persists the last hash an address signed, so a chain survives restarts.
type PreviousHashStore interface {
	// PreviousHash returns the last signed hash for addr, or nil when none was recorded.
	PreviousHash(addr Address) (*hash.Hash, error)
	SetPreviousHash(addr Address, h hash.Hash) error
}

// Account is a secp256k1 identity. It signs hashes and remembers the last hash it signed, which
// makes the sequence of records it signs a hash chain.
//
// Signing is serialized per account.
type Account struct {
	mu           sync.Mutex
	key          *ecdsa.PrivateKey
	address      Address
	previousHash *hash.Hash
	store        PreviousHashStore
}

// AccountOption configures an account at construction.
type AccountOption func(*Account) error

// WithPreviousHash resumes an account's chain at h.
func WithPreviousHash(h hash.Hash) AccountOption {
	return func(a *Account) error {
		a.previousHash = &h
		return nil
	}
}

// WithPreviousHashStore loads the account's chain position from store and records every new
// signature in it.
func WithPreviousHashStore(store PreviousHashStore) AccountOption {
	return func(a *Account) error {
		prev, err := store.PreviousHash(a.address)
		if err != nil {
			return fmt.Errorf("could not load previous hash for %s: %w", a.address, err)
		}
		if prev != nil {
			a.previousHash = prev
		}
		a.store = store
		return nil
	}
}

// NewRandomAccount creates an account from fresh random entropy.
func NewRandomAccount(opts ...AccountOption) (*Account, error) {
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("could not generate key: %w", err)
	}
	return newAccount(key, opts...)
}

// NewAccountFromPhrase creates an account whose private key is the SHA-256 digest of phrase.
func NewAccountFromPhrase(phrase string, opts ...AccountOption) (*Account, error) {
	digest := sha256.Sum256([]byte(phrase))
	return NewAccountFromPrivateKey(digest[:], opts...)
}

// NewAccountFromPrivateKey creates an account from raw private key bytes.
func NewAccountFromPrivateKey(key []byte, opts ...AccountOption) (*Account, error) {
	if len(key) != PrivateKeyLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeyLength, PrivateKeyLength, len(key))
	}
	priv, err := gethcrypto.ToECDSA(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return newAccount(priv, opts...)
}

// NewAccountFromMnemonic creates an account from a BIP-39 mnemonic and a derivation path.
// An empty path selects DefaultPath.
func NewAccountFromMnemonic(mnemonic string, path string, opts ...AccountOption) (*Account, error) {
	wallet, err := NewHDWalletFromMnemonic(mnemonic, path, opts...)
	if err != nil {
		return nil, err
	}
	return wallet.Account, nil
}

// MustRandomAccount is NewRandomAccount for tests and fixtures.
func MustRandomAccount() *Account {
	a, err := NewRandomAccount()
	if err != nil {
		panic(err)
	}
	return a
}

func newAccount(key *ecdsa.PrivateKey, opts ...AccountOption) (*Account, error) {
	a := &Account{
		key:     key,
		address: Address(gethcrypto.PubkeyToAddress(key.PublicKey)),
	}
	for _, apply := range opts {
		if err := apply(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Account) Address() Address {
	return a.address
}

// PublicKey returns the uncompressed public key, including the 0x04 prefix.
func (a *Account) PublicKey() []byte {
	return gethcrypto.FromECDSAPub(&a.key.PublicKey)
}

// PrivateKey returns the raw 32-byte private key.
func (a *Account) PrivateKey() []byte {
	return gethcrypto.FromECDSA(a.key)
}

// PreviousHash returns the last hash this account signed, or nil if it has signed nothing.
func (a *Account) PreviousHash() *hash.Hash {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.previousHashLocked()
}

// Sign signs h and advances the account's previous hash to h.
func (a *Account) Sign(h hash.Hash) (Signature, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.signLocked(h)
}

func (a *Account) previousHashLocked() *hash.Hash {
	if a.previousHash == nil {
		return nil
	}
	prev := *a.previousHash
	return &prev
}

func (a *Account) signLocked(h hash.Hash) (Signature, error) {
	sig, err := gethcrypto.Sign(h[:], a.key)
	if err != nil {
		return nil, fmt.Errorf("could not sign hash %s: %w", h, err)
	}
	if a.store != nil {
		err = a.store.SetPreviousHash(a.address, h)
		if err != nil {
			return nil, fmt.Errorf("could not persist previous hash for %s: %w", a.address, err)
		}
	}
	a.previousHash = &h
	return Signature(sig[:SignatureLength]), nil
}
