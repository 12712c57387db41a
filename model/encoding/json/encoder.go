package json

import (
	jsoniter "github.com/json-iterator/go"
)

// numbers decode as json.Number so payload fields keep their exact representation
var api = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

// Encoder is a JSON encoder with sorted map keys and exact numbers.
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Encode(val interface{}) ([]byte, error) {
	return api.Marshal(val)
}

func (e *Encoder) Decode(b []byte, val interface{}) error {
	return api.Unmarshal(b, val)
}
