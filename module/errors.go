package module

import (
	"errors"
	"fmt"

	"github.com/witnessnet/witnessnet/crypto"
)

var (
	// ErrNotStarted is returned when a module that is not started is queried.
	ErrNotStarted = errors.New("module is not started")

	// ErrMissingQuery is returned when a query bound witness does not carry its query payload.
	ErrMissingQuery = errors.New("query payload is missing")

	// ErrMalformedQuery is returned when a query bound witness fails structural or signature
	// validation.
	ErrMalformedQuery = errors.New("malformed query bound witness")

	// ErrStopped is returned when starting a module that was stopped.
	ErrStopped = errors.New("module was stopped")

	// ErrNotRegistered is returned when a node is asked about a module it never registered.
	ErrNotRegistered = errors.New("module is not registered")

	// ErrNotAttached is returned when detaching a module that is not attached.
	ErrNotAttached = errors.New("module is not attached")
)

// DuplicateAddressError is returned when registering a module whose address is already registered.
type DuplicateAddressError struct {
	Address crypto.Address
}

func NewDuplicateAddressError(addr crypto.Address) DuplicateAddressError {
	return DuplicateAddressError{Address: addr}
}

func (e DuplicateAddressError) Error() string {
	return fmt.Sprintf("module %s is already registered", e.Address)
}

func IsDuplicateAddressError(err error) bool {
	var e DuplicateAddressError
	return errors.As(err, &e)
}

// AlreadyAttachedError is returned when attaching a module that already resolves.
type AlreadyAttachedError struct {
	Address crypto.Address
}

func NewAlreadyAttachedError(addr crypto.Address) AlreadyAttachedError {
	return AlreadyAttachedError{Address: addr}
}

func (e AlreadyAttachedError) Error() string {
	return fmt.Sprintf("module %s is already attached", e.Address)
}

func IsAlreadyAttachedError(err error) bool {
	var e AlreadyAttachedError
	return errors.As(err, &e)
}

// NotQueryableError is returned when a query fails the capability or security checks of a module.
type NotQueryableError struct {
	Err error
}

func NewNotQueryableErrorf(msg string, args ...interface{}) NotQueryableError {
	return NotQueryableError{Err: fmt.Errorf(msg, args...)}
}

func (e NotQueryableError) Error() string {
	return e.Err.Error()
}

func (e NotQueryableError) Unwrap() error {
	return e.Err
}

func IsNotQueryableError(err error) bool {
	var e NotQueryableError
	return errors.As(err, &e)
}

// UnsupportedQueryError is the failure of a query whose schema the module does not handle.
type UnsupportedQueryError struct {
	Schema string
}

func NewUnsupportedQueryError(schema string) UnsupportedQueryError {
	return UnsupportedQueryError{Schema: schema}
}

func (e UnsupportedQueryError) Error() string {
	return fmt.Sprintf("unsupported query %q", e.Schema)
}

func IsUnsupportedQueryError(err error) bool {
	var e UnsupportedQueryError
	return errors.As(err, &e)
}

// InvalidConfigError is returned when a module config holds a value that cannot be used.
type InvalidConfigError struct {
	Path string
	Err  error
}

func NewInvalidConfigErrorf(path string, msg string, args ...interface{}) InvalidConfigError {
	return InvalidConfigError{Path: path, Err: fmt.Errorf(msg, args...)}
}

func (e InvalidConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid config: %v", e.Err)
	}
	return fmt.Sprintf("invalid config at %s: %v", e.Path, e.Err)
}

func (e InvalidConfigError) Unwrap() error {
	return e.Err
}

func IsInvalidConfigError(err error) bool {
	var e InvalidConfigError
	return errors.As(err, &e)
}

// IncompatibleModuleError is returned when a typed wrapper is created over a module that does not
// support the queries the wrapper sends.
type IncompatibleModuleError struct {
	Address crypto.Address
	Missing []string
}

func NewIncompatibleModuleError(addr crypto.Address, missing []string) IncompatibleModuleError {
	return IncompatibleModuleError{Address: addr, Missing: missing}
}

func (e IncompatibleModuleError) Error() string {
	return fmt.Sprintf("module %s does not support %v", e.Address, e.Missing)
}

func IsIncompatibleModuleError(err error) bool {
	var e IncompatibleModuleError
	return errors.As(err, &e)
}

// RequireQueries returns an IncompatibleModuleError unless m supports every schema.
func RequireQueries(m Module, schemas ...string) error {
	var missing []string
	for _, s := range schemas {
		if !Supports(m, s) {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return NewIncompatibleModuleError(m.Address(), missing)
	}
	return nil
}
