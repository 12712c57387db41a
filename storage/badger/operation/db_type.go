package operation

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/witnessnet/witnessnet/storage"
)

// InsertDBType marks the database with the kind of data it holds.
func InsertDBType(dbType string) Op {
	return insert(makePrefix(codeDBType), dbType)
}

// EnsureDBType marks an empty database with dbType, or checks an existing mark matches it.
func EnsureDBType(dbType string) Op {
	return func(tx *badger.Txn) error {
		var stored string
		err := retrieve(makePrefix(codeDBType), &stored)(tx)
		if err == nil {
			if stored != dbType {
				return fmt.Errorf("database holds %q data, expected %q", stored, dbType)
			}
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("could not read database type: %w", err)
		}
		return InsertDBType(dbType)(tx)
	}
}
