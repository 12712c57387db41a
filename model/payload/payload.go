package payload

import (
	"errors"
	"fmt"
	"strings"

	"github.com/witnessnet/witnessnet/model/encoding"
	"github.com/witnessnet/witnessnet/model/hash"
)

// SchemaField is the mandatory type discriminator of every payload.
const SchemaField = "schema"

// MetaPrefix marks fields that carry metadata. They are excluded from the content hash.
const MetaPrefix = "_"

var (
	ErrMissingSchema = errors.New("payload has no schema")
	ErrNotAnObject   = errors.New("payload is not a JSON object")
)

// Payload is an open, schema tagged record. Its identity is the hash of its canonical form.
type Payload map[string]interface{}

// New creates a payload of the given schema holding a copy of fields.
func New(schema string, fields map[string]interface{}) Payload {
	p := make(Payload, len(fields)+1)
	for k, v := range fields {
		p[k] = v
	}
	p[SchemaField] = schema
	return p
}

// From converts a typed value into a payload through its JSON form.
func From(v interface{}) (Payload, error) {
	if p, ok := v.(Payload); ok {
		return p, nil
	}
	data, err := encoding.DefaultEncoder.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("could not encode payload: %w", err)
	}
	return Unmarshal(data)
}

// MustFrom is From for values known to encode.
func MustFrom(v interface{}) Payload {
	p, err := From(v)
	if err != nil {
		panic(err)
	}
	return p
}

// Unmarshal decodes a JSON object into a payload. Numbers keep their exact representation.
func Unmarshal(data []byte) (Payload, error) {
	var p Payload
	err := encoding.DefaultEncoder.Decode(data, &p)
	if err != nil {
		return nil, fmt.Errorf("could not decode payload: %w", err)
	}
	if p == nil {
		return nil, ErrNotAnObject
	}
	return p, nil
}

// Schema returns the schema of the payload, or an empty string if it has none.
func (p Payload) Schema() string {
	s, _ := p[SchemaField].(string)
	return s
}

// Validate checks the payload carries a schema.
func (p Payload) Validate() error {
	if p.Schema() == "" {
		return ErrMissingSchema
	}
	return nil
}

// Hash returns the content hash of the payload.
func (p Payload) Hash() (hash.Hash, error) {
	return Hash(p)
}

// Decode decodes the payload into a typed value.
func (p Payload) Decode(out interface{}) error {
	data, err := encoding.DefaultEncoder.Encode(p)
	if err != nil {
		return fmt.Errorf("could not encode payload: %w", err)
	}
	err = encoding.DefaultEncoder.Decode(data, out)
	if err != nil {
		return fmt.Errorf("could not decode %s payload: %w", p.Schema(), err)
	}
	return nil
}

// Clone returns a shallow copy of the payload.
func (p Payload) Clone() Payload {
	c := make(Payload, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// WithoutMeta returns a copy without metadata fields.
func (p Payload) WithoutMeta() Payload {
	c := make(Payload, len(p))
	for k, v := range p {
		if strings.HasPrefix(k, MetaPrefix) {
			continue
		}
		c[k] = v
	}
	return c
}

// Schemas returns the schema of each payload in order.
func Schemas(payloads []Payload) []string {
	schemas := make([]string, 0, len(payloads))
	for _, p := range payloads {
		schemas = append(schemas, p.Schema())
	}
	return schemas
}

// Hashes returns the content hash of each payload in order.
func Hashes(payloads []Payload) ([]hash.Hash, error) {
	hashes := make([]hash.Hash, 0, len(payloads))
	for i, p := range payloads {
		h, err := Hash(p)
		if err != nil {
			return nil, fmt.Errorf("could not hash payload %d: %w", i, err)
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// FindByHash returns the payload among payloads whose hash is h.
func FindByHash(payloads []Payload, h hash.Hash) (Payload, bool) {
	for _, p := range payloads {
		ph, err := Hash(p)
		if err != nil {
			continue
		}
		if ph == h {
			return p, true
		}
	}
	return nil, false
}

// FilterBySchema returns the payloads of the given schema.
func FilterBySchema(payloads []Payload, schema string) []Payload {
	var out []Payload
	for _, p := range payloads {
		if p.Schema() == schema {
			out = append(out, p)
		}
	}
	return out
}
