package operation

import (
	"github.com/witnessnet/witnessnet/model/hash"
)

// PayloadRecord is the stored form of a payload: its schema and its JSON encoding.
type PayloadRecord struct {
	Schema string
	Data   []byte
}

func InsertPayload(h hash.Hash, record *PayloadRecord) Op {
	return insert(makePrefix(codePayload, h), record)
}

func RetrievePayload(h hash.Hash, record *PayloadRecord) Op {
	return retrieve(makePrefix(codePayload, h), record)
}

func PayloadExists(h hash.Hash, found *bool) Op {
	return exists(makePrefix(codePayload, h), found)
}

func RemovePayload(h hash.Hash) Op {
	return remove(makePrefix(codePayload, h))
}

func RemoveAllPayloads() Op {
	return removeByPrefix(makePrefix(codePayload))
}

// TraversePayloads calls handle for every stored payload, in hash order.
func TraversePayloads(handle func(h hash.Hash, record *PayloadRecord) error) Op {
	return traverse(makePrefix(codePayload), func(suffix []byte, decode func(interface{}) error) error {
		h, err := hash.FromBytes(suffix)
		if err != nil {
			return err
		}
		var record PayloadRecord
		if err := decode(&record); err != nil {
			return err
		}
		return handle(h, &record)
	})
}
