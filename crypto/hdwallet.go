package crypto

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"github.com/tyler-smith/go-bip39"
)

const (
	// DefaultPath is the first Ethereum account path, used when no path is given.
	DefaultPath = "m/44'/60'/0'/0/0"

	// mnemonic entropy in bits
	entropyBits = 256
)

// HDWallet is an account derived from a BIP-39 mnemonic along a BIP-32 path. Child wallets
// derived from it are reproducible from the mnemonic alone, which gives the parts of a composite
// module stable addresses without storing more secrets.
type HDWallet struct {
	*Account
	wallet   *hdwallet.Wallet
	mnemonic string
	path     accounts.DerivationPath
}

// NewMnemonic generates a random 24 word mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("could not generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("could not generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// NewRandomHDWallet creates a wallet from a fresh mnemonic at DefaultPath.
func NewRandomHDWallet(opts ...AccountOption) (*HDWallet, error) {
	mnemonic, err := NewMnemonic()
	if err != nil {
		return nil, err
	}
	return NewHDWalletFromMnemonic(mnemonic, DefaultPath, opts...)
}

// NewHDWalletFromMnemonic creates a wallet for mnemonic at path. An empty path selects DefaultPath.
func NewHDWalletFromMnemonic(mnemonic string, path string, opts ...AccountOption) (*HDWallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	if path == "" {
		path = DefaultPath
	}
	parsed, err := accounts.ParseDerivationPath(path)
	if err != nil {
		return nil, InvalidPathError{Path: path, err: err}
	}
	return newHDWallet(wallet, mnemonic, parsed, opts...)
}

func newHDWallet(wallet *hdwallet.Wallet, mnemonic string, path accounts.DerivationPath, opts ...AccountOption) (*HDWallet, error) {
	derived, err := wallet.Derive(path, false)
	if err != nil {
		return nil, fmt.Errorf("could not derive %s: %w", path, err)
	}
	key, err := wallet.PrivateKeyBytes(derived)
	if err != nil {
		return nil, fmt.Errorf("could not export key for %s: %w", path, err)
	}
	account, err := NewAccountFromPrivateKey(key, opts...)
	if err != nil {
		return nil, err
	}
	return &HDWallet{
		Account:  account,
		wallet:   wallet,
		mnemonic: mnemonic,
		path:     path,
	}, nil
}

// DerivePath derives a child wallet. Paths starting with "m/" are absolute, anything else is
// appended to this wallet's path.
func (w *HDWallet) DerivePath(path string, opts ...AccountOption) (*HDWallet, error) {
	var derived accounts.DerivationPath
	if strings.HasPrefix(path, "m/") {
		parsed, err := accounts.ParseDerivationPath(path)
		if err != nil {
			return nil, InvalidPathError{Path: path, err: err}
		}
		derived = parsed
	} else {
		rel, err := accounts.ParseDerivationPath("m/" + path)
		if err != nil {
			return nil, InvalidPathError{Path: path, err: err}
		}
		derived = make(accounts.DerivationPath, 0, len(w.path)+len(rel))
		derived = append(derived, w.path...)
		derived = append(derived, rel...)
	}
	return newHDWallet(w.wallet, w.mnemonic, derived, opts...)
}

func (w *HDWallet) Mnemonic() string {
	return w.mnemonic
}

// Path returns the derivation path in its textual form.
func (w *HDWallet) Path() string {
	return w.path.String()
}
