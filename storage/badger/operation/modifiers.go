package operation

import (
	"errors"
	"syscall"

	"github.com/dgraph-io/badger/v2"

	"github.com/witnessnet/witnessnet/storage"
)

// Op is a unit of work run inside a badger transaction.
type Op = func(*badger.Txn) error

// ignoring runs op and swallows errors matching target.
func ignoring(target error, op Op) Op {
	return func(tx *badger.Txn) error {
		if err := op(tx); !errors.Is(err, target) {
			return err
		}
		return nil
	}
}

// SkipDuplicates treats a key already holding a different value as a success.
func SkipDuplicates(op Op) Op {
	return ignoring(storage.ErrAlreadyExists, op)
}

// SkipNonExist treats a missing key as a success.
func SkipNonExist(op Op) Op {
	return ignoring(storage.ErrNotFound, op)
}

// RetryOnConflict reruns op through run, usually db.Update, until it commits without a
// transaction conflict.
func RetryOnConflict(run func(Op) error, op Op) error {
	err := run(op)
	for errors.Is(err, badger.ErrConflict) {
		err = run(op)
	}
	return err
}

// TerminateOnFullDisk panics when err reports a full disk; deferred cleanup still runs.
func TerminateOnFullDisk(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		panic("no space left on device, stopping witness node")
	}
	return err
}
