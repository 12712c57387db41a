package badger_test

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/storage"
	bstorage "github.com/witnessnet/witnessnet/storage/badger"
	"github.com/witnessnet/witnessnet/utils/unittest"
)

func TestPayloadsStoreRetrieve(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store := bstorage.NewPayloads(db)

		p := unittest.PayloadFixture(unittest.WithField("count", 3), unittest.WithField("_client", "test"))
		h := payload.MustHash(p)

		require.NoError(t, store.Store(h, p))
		require.NoError(t, store.Store(h, p))

		actual, err := store.ByHash(h)
		require.NoError(t, err)
		assert.Equal(t, h, payload.MustHash(actual))
		assert.Equal(t, "test", actual["_client"])

		err = store.Store(unittest.HashFixture(), p)
		assert.ErrorIs(t, err, storage.ErrDataMismatch)

		_, err = store.ByHash(unittest.HashFixture())
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestPayloadsKeepSignatures(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store := bstorage.NewPayloads(db)

		bw := unittest.BoundWitnessFixture(t, unittest.AccountsFixture(t, 2), unittest.PayloadsFixture(2))
		require.Empty(t, boundwitness.Validate(bw))
		p, err := bw.Payload()
		require.NoError(t, err)
		h := payload.MustHash(p)

		require.NoError(t, store.Store(h, p))
		stored, err := store.ByHash(h)
		require.NoError(t, err)

		restored, err := boundwitness.FromPayload(stored)
		require.NoError(t, err)
		assert.Len(t, restored.Signatures, 2)
		assert.Empty(t, boundwitness.Validate(restored))
		assert.Equal(t, h, payload.MustHash(stored))
	})
}

func TestPayloadsAllRemoveClear(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store := bstorage.NewPayloads(db)

		payloads := unittest.PayloadsFixture(5)
		for _, p := range payloads {
			require.NoError(t, store.Store(payload.MustHash(p), p))
		}

		all, err := store.All()
		require.NoError(t, err)
		assert.ElementsMatch(t, hashes(t, payloads), hashes(t, all))

		require.NoError(t, store.Remove(payload.MustHash(payloads[0])))
		assert.ErrorIs(t, store.Remove(payload.MustHash(payloads[0])), storage.ErrNotFound)

		all, err = store.All()
		require.NoError(t, err)
		assert.Len(t, all, 4)

		require.NoError(t, store.Clear())
		all, err = store.All()
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func hashes(t *testing.T, payloads []payload.Payload) []string {
	out := make([]string, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, payload.MustHash(p).Hex())
	}
	return out
}

func TestPreviousHashesResumeChain(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store := bstorage.NewPreviousHashes(db)
		seed := unittest.AccountFixture(t).PrivateKey()

		account, err := crypto.NewAccountFromPrivateKey(seed, crypto.WithPreviousHashStore(store))
		require.NoError(t, err)
		assert.Nil(t, account.PreviousHash())

		bw := unittest.BoundWitnessFixture(t, []*crypto.Account{account}, unittest.PayloadsFixture(1))
		h, err := bw.Hash()
		require.NoError(t, err)

		stored, err := store.ByAddress(account.Address())
		require.NoError(t, err)
		assert.Equal(t, h, stored)

		restored, err := crypto.NewAccountFromPrivateKey(seed, crypto.WithPreviousHashStore(store))
		require.NoError(t, err)
		require.NotNil(t, restored.PreviousHash())
		assert.Equal(t, h, *restored.PreviousHash())

		next := unittest.BoundWitnessFixture(t, []*crypto.Account{restored}, unittest.PayloadsFixture(1))
		require.NotNil(t, next.PreviousHashes[0])
		assert.Equal(t, h, *next.PreviousHashes[0])

		require.NoError(t, store.Remove(account.Address()))
		prev, err := store.PreviousHash(account.Address())
		require.NoError(t, err)
		assert.Nil(t, prev)
	})
}

func TestInitDB(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		db, err := bstorage.InitDB(unittest.Logger(), dir, "archivist")
		require.NoError(t, err)
		require.NoError(t, db.Close())

		db, err = bstorage.InitDB(unittest.Logger(), dir, "archivist")
		require.NoError(t, err)
		require.NoError(t, db.Close())

		_, err = bstorage.InitDB(unittest.Logger(), dir, "other")
		assert.Error(t, err)
	})
}
