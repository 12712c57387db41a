package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/hash"
)

func UpsertPreviousHash(addr crypto.Address, h hash.Hash) Op {
	return upsert(makePrefix(codePreviousHash, addr), h[:])
}

func RetrievePreviousHash(addr crypto.Address, h *hash.Hash) Op {
	return func(tx *badger.Txn) error {
		var raw []byte
		err := retrieve(makePrefix(codePreviousHash, addr), &raw)(tx)
		if err != nil {
			return err
		}
		decoded, err := hash.FromBytes(raw)
		if err != nil {
			return err
		}
		*h = decoded
		return nil
	}
}

func RemovePreviousHash(addr crypto.Address) Op {
	return remove(makePrefix(codePreviousHash, addr))
}
