package bridge

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/encoding"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
)

// Error kinds carried by error responses, so clients can restore the error the module returned.
const (
	kindNotStarted     = "not_started"
	kindNotQueryable   = "not_queryable"
	kindMissingQuery   = "missing_query"
	kindMalformedQuery = "malformed_query"
	kindNotFound       = "not_found"
	kindBadRequest     = "bad_request"
	kindInternal       = "internal"
)

// ErrModuleNotFound is returned when the bridged node does not expose the target address.
var ErrModuleNotFound = errors.New("module not found")

// ErrUntrustedResponse is returned for a query response that is invalid or not signed by the
// module queried.
var ErrUntrustedResponse = errors.New("untrusted response")

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RemoteError is an error response of a bridged node.
type RemoteError struct {
	Status  int
	Kind    string
	Message string
}

func (e RemoteError) Error() string {
	return fmt.Sprintf("remote error %d (%s): %s", e.Status, e.Kind, e.Message)
}

// Unwrap restores the module error behind the response, when the kind names one.
func (e RemoteError) Unwrap() error {
	switch e.Kind {
	case kindNotStarted:
		return module.ErrNotStarted
	case kindMissingQuery:
		return module.ErrMissingQuery
	case kindMalformedQuery:
		return module.ErrMalformedQuery
	case kindNotQueryable:
		return module.NotQueryableError{Err: errors.New(e.Message)}
	case kindNotFound:
		return ErrModuleNotFound
	}
	return nil
}

func IsRemoteError(err error) bool {
	var e RemoteError
	return errors.As(err, &e)
}

// encodeEnvelope encodes a bound witness and its payloads as the two element array exchanged
// on the wire.
func encodeEnvelope(bw *boundwitness.BoundWitness, payloads []payload.Payload) ([]byte, error) {
	p, err := bw.Payload()
	if err != nil {
		return nil, err
	}
	if payloads == nil {
		payloads = []payload.Payload{}
	}
	return encoding.DefaultEncoder.Encode([]interface{}{p, payloads})
}

func decodeEnvelope(data []byte) (*boundwitness.BoundWitness, []payload.Payload, error) {
	var parts []jsoniter.RawMessage
	err := encoding.DefaultEncoder.Decode(data, &parts)
	if err != nil {
		return nil, nil, fmt.Errorf("could not decode envelope: %w", err)
	}
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("envelope has %d elements, expected 2", len(parts))
	}

	p, err := payload.Unmarshal(parts[0])
	if err != nil {
		return nil, nil, err
	}
	bw, err := boundwitness.FromPayload(p)
	if err != nil {
		return nil, nil, err
	}

	var payloads []payload.Payload
	err = encoding.DefaultEncoder.Decode(parts[1], &payloads)
	if err != nil {
		return nil, nil, fmt.Errorf("could not decode envelope payloads: %w", err)
	}
	return bw, payloads, nil
}
