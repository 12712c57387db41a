package payload

import (
	"fmt"
	"strings"

	"github.com/witnessnet/witnessnet/model/encoding"
	"github.com/witnessnet/witnessnet/model/hash"
)

// Canonical returns the canonical JSON form of v, the input of its content hash.
//
// Object keys are sorted at every depth and HTML characters are not escaped. For objects, top
// level metadata fields (prefixed with "_") and null fields are removed.
func Canonical(v interface{}) ([]byte, error) {
	data, err := encoding.DefaultEncoder.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("could not encode: %w", err)
	}

	var generic interface{}
	err = encoding.DefaultEncoder.Decode(data, &generic)
	if err != nil {
		return nil, fmt.Errorf("could not decode: %w", err)
	}

	if obj, ok := generic.(map[string]interface{}); ok {
		for k, val := range obj {
			if strings.HasPrefix(k, MetaPrefix) || val == nil {
				delete(obj, k)
			}
		}
	}

	canonical, err := encoding.DefaultEncoder.Encode(generic)
	if err != nil {
		return nil, fmt.Errorf("could not encode canonical form: %w", err)
	}
	return canonical, nil
}

// Hash computes the SHA-256 content hash of the canonical form of v.
func Hash(v interface{}) (hash.Hash, error) {
	data, err := Canonical(v)
	if err != nil {
		return hash.ZeroHash, err
	}
	return hash.Sum(data), nil
}

// MustHash is Hash for values known to encode.
func MustHash(v interface{}) hash.Hash {
	h, err := Hash(v)
	if err != nil {
		panic(err)
	}
	return h
}
