package operation

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack"

	"github.com/witnessnet/witnessnet/module/irrecoverable"
)

// Stored values are msgpack documents compressed with snappy. Records are small JSON blobs with a
// schema, which compress well.

func marshalValue(v interface{}) ([]byte, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, irrecoverable.NewExceptionf("could not marshal %T: %w", v, err)
	}
	return snappy.Encode(nil, raw), nil
}

// unmarshalValue fails with an exception on anything this package did not write.
func unmarshalValue(data []byte, v interface{}) error {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return irrecoverable.NewExceptionf("corrupted value of %d bytes: %w", len(data), err)
	}
	if err := msgpack.Unmarshal(raw, v); err != nil {
		return irrecoverable.NewExceptionf("could not unmarshal %T: %w", v, err)
	}
	return nil
}

// equalValue reports whether data holds the encoding of v.
func equalValue(data []byte, v interface{}) (bool, error) {
	encoded, err := marshalValue(v)
	if err != nil {
		return false, err
	}
	return string(encoded) == string(data), nil
}

func describeKey(key []byte) string {
	if len(key) == 0 {
		return "<empty>"
	}
	return fmt.Sprintf("%d/%x", key[0], key[1:])
}
