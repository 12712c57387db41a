package storage

import (
	"errors"
)

var (
	// ErrNotFound is returned for a missing key. Implementations translate the not found
	// errors of their database to it.
	ErrNotFound = errors.New("key not found")

	ErrAlreadyExists = errors.New("key already exists")

	// ErrDataMismatch is returned when storing a value under a key that holds a different one.
	ErrDataMismatch = errors.New("data for key is different")
)
