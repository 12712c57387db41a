package boundwitness

import (
	"errors"
	"fmt"
)

var (
	// ErrMixedPayloadSources is returned when a builder is given both payloads and precomputed
	// payload hashes.
	ErrMixedPayloadSources = errors.New("payloads and precomputed payload hashes are mutually exclusive")

	// ErrMissingReferencedPayload is returned when a payload referenced by a bound witness is not
	// in the attached payload set.
	ErrMissingReferencedPayload = errors.New("referenced payload is missing")

	ErrNotABoundWitness = errors.New("payload is not a bound witness")
	ErrNotAQuery        = errors.New("bound witness does not bind a query")
)

// ValidationError is one structural or cryptographic defect of a bound witness.
type ValidationError struct {
	Field string
	msg   string
}

func NewValidationErrorf(field string, msg string, args ...interface{}) ValidationError {
	return ValidationError{Field: field, msg: fmt.Sprintf(msg, args...)}
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.msg)
}

func IsValidationError(err error) bool {
	var e ValidationError
	return errors.As(err, &e)
}
