package encoding

import (
	"github.com/witnessnet/witnessnet/model/encoding/json"
)

// Encoder converts values to and from their serialized form.
type Encoder interface {
	// Encode returns an error for values the encoder cannot represent.
	Encode(interface{}) ([]byte, error)

	Decode([]byte, interface{}) error
}

// DefaultEncoder is the JSON encoder used for payload hashing, storage and the bridge wire format.
var DefaultEncoder Encoder = json.NewEncoder()
