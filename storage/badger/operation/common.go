package operation

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/witnessnet/witnessnet/storage"
)

// get loads the raw value under key, translating a missing key to storage.ErrNotFound.
func get(tx *badger.Txn, key []byte) (*badger.Item, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read key %s: %w", describeKey(key), err)
	}
	return item, nil
}

// insert stores v under a free key. Storing the same value twice is a no-op; a different value
// fails with storage.ErrAlreadyExists.
func insert(key []byte, v interface{}) Op {
	return func(tx *badger.Txn) error {
		item, err := get(tx, key)
		switch {
		case err == nil:
			var same bool
			err = item.Value(func(existing []byte) error {
				same, err = equalValue(existing, v)
				return err
			})
			if err != nil {
				return err
			}
			if !same {
				return fmt.Errorf("key %s: %w", describeKey(key), storage.ErrAlreadyExists)
			}
			return nil
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}
		return upsert(key, v)(tx)
	}
}

// upsert stores v under key whether or not it is taken.
func upsert(key []byte, v interface{}) Op {
	return func(tx *badger.Txn) error {
		data, err := marshalValue(v)
		if err != nil {
			return err
		}
		if err := tx.Set(key, data); err != nil {
			return fmt.Errorf("could not write key %s: %w", describeKey(key), err)
		}
		return nil
	}
}

func exists(key []byte, found *bool) Op {
	return func(tx *badger.Txn) error {
		_, err := get(tx, key)
		if errors.Is(err, storage.ErrNotFound) {
			*found = false
			return nil
		}
		*found = err == nil
		return err
	}
}

// retrieve decodes the value under key into v, which must be a pointer.
func retrieve(key []byte, v interface{}) Op {
	return func(tx *badger.Txn) error {
		item, err := get(tx, key)
		if err != nil {
			return err
		}
		return item.Value(func(data []byte) error {
			return unmarshalValue(data, v)
		})
	}
}

// remove deletes key, failing with storage.ErrNotFound when it is absent.
func remove(key []byte) Op {
	return func(tx *badger.Txn) error {
		if _, err := get(tx, key); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return fmt.Errorf("could not delete key %s: %w", describeKey(key), err)
		}
		return nil
	}
}

// removeByPrefix deletes every key under prefix. Keys are collected first since badger
// iterators must not observe their own deletes.
func removeByPrefix(prefix []byte) Op {
	return func(tx *badger.Txn) error {
		var keys [][]byte
		err := iterate(tx, prefix, false, func(item *badger.Item) error {
			keys = append(keys, item.KeyCopy(nil))
			return nil
		})
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return fmt.Errorf("could not delete key %s: %w", describeKey(key), err)
			}
		}
		return nil
	}
}

// visitFunc receives the key suffix after the prefix and a decoder for the value.
type visitFunc func(suffix []byte, decode func(v interface{}) error) error

// traverse calls visit for each key under prefix, in key order. The suffix slice is only valid
// during the call.
func traverse(prefix []byte, visit visitFunc) Op {
	return func(tx *badger.Txn) error {
		if len(prefix) == 0 {
			return fmt.Errorf("traversal needs a prefix")
		}
		return iterate(tx, prefix, true, func(item *badger.Item) error {
			decode := func(v interface{}) error {
				return item.Value(func(data []byte) error {
					return unmarshalValue(data, v)
				})
			}
			if err := visit(item.Key()[len(prefix):], decode); err != nil {
				return fmt.Errorf("could not visit key %s: %w", describeKey(item.Key()), err)
			}
			return nil
		})
	}
}

func iterate(tx *badger.Txn, prefix []byte, values bool, fn func(*badger.Item) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = values

	it := tx.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := fn(it.Item()); err != nil {
			return err
		}
	}
	return nil
}
