package crypto

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKeyLength is returned when private key material is not exactly 32 bytes.
	ErrInvalidKeyLength = errors.New("invalid private key length")

	// ErrInvalidPrivateKey is returned when 32 bytes do not form a valid secp256k1 scalar.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrInvalidSignatureLength is returned when a signature is not 64 bytes.
	ErrInvalidSignatureLength = errors.New("invalid signature length")

	// ErrInvalidMnemonic is returned when a mnemonic fails BIP-39 validation.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
)

type cryptoError struct {
	msg string
}

func (e cryptoError) Error() string {
	return e.msg
}

// InvalidAddressError is returned when text does not decode into an address.
type InvalidAddressError struct {
	cryptoError
}

func newInvalidAddressErrorf(msg string, args ...interface{}) InvalidAddressError {
	return InvalidAddressError{cryptoError{fmt.Sprintf(msg, args...)}}
}

func IsInvalidAddressError(err error) bool {
	var e InvalidAddressError
	return errors.As(err, &e)
}

// InvalidPathError is returned when a derivation path cannot be parsed.
type InvalidPathError struct {
	Path string
	err  error
}

func (e InvalidPathError) Error() string {
	return fmt.Sprintf("invalid derivation path %q: %v", e.Path, e.err)
}

func (e InvalidPathError) Unwrap() error {
	return e.err
}

func IsInvalidPathError(err error) bool {
	var e InvalidPathError
	return errors.As(err, &e)
}
