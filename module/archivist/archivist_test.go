package archivist_test

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/archivist"
	"github.com/witnessnet/witnessnet/module/base"
	"github.com/witnessnet/witnessnet/module/metrics"
	"github.com/witnessnet/witnessnet/module/node"
	"github.com/witnessnet/witnessnet/module/query"
	bstorage "github.com/witnessnet/witnessnet/storage/badger"
	"github.com/witnessnet/witnessnet/utils/unittest"
)

func newArchivist(t *testing.T, name string, c archivist.Config) *archivist.Archivist {
	a, err := archivist.NewMemory(unittest.Logger(), metrics.NewNoopCollector(), nil, archivist.NewConfig(name, c))
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	return a
}

func wrap(t *testing.T, m module.Module) *archivist.Wrapper {
	w, err := archivist.NewWrapper(m, unittest.AccountFixture(t))
	require.NoError(t, err)
	return w
}

func hashes(t *testing.T, payloads []payload.Payload) []hash.Hash {
	out, err := payload.Hashes(payloads)
	require.NoError(t, err)
	return out
}

// attachAll registers and privately attaches the modules to a fresh node, so they resolve each
// other by name.
func attachAll(t *testing.T, modules ...module.Module) *node.Node {
	ctx := context.Background()
	n, err := node.New(unittest.Logger(), nil, module.Config{Name: "root"})
	require.NoError(t, err)
	require.NoError(t, n.Start(ctx))
	for _, m := range modules {
		require.NoError(t, n.Register(m))
		_, err := n.Attach(ctx, m.Address().Hex(), false)
		require.NoError(t, err)
	}
	return n
}

func TestInsertGet(t *testing.T) {
	ctx := context.Background()
	a := newArchivist(t, "archivist", archivist.Config{})
	w := wrap(t, a)
	payloads := unittest.PayloadsFixture(3)

	bws, err := w.Insert(ctx, payloads)
	require.NoError(t, err)
	require.Len(t, bws, 1)
	assert.Equal(t, hashes(t, payloads), bws[0].PayloadHashes)
	assert.Equal(t, []crypto.Address{a.Address()}, bws[0].Addresses)
	assert.Empty(t, boundwitness.Validate(bws[0]))

	t.Run("by hash", func(t *testing.T) {
		found, err := w.Get(ctx, hashes(t, payloads)...)
		require.NoError(t, err)
		assert.Equal(t, payloads, found)
	})

	t.Run("unknown hashes are skipped", func(t *testing.T) {
		h := hashes(t, payloads[1:2])[0]
		found, err := w.Get(ctx, unittest.HashFixture(), h)
		require.NoError(t, err)
		assert.Equal(t, payloads[1:2], found)
	})

	t.Run("last inserted", func(t *testing.T) {
		found, err := w.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, payloads[2:], found)
	})

	t.Run("idempotent", func(t *testing.T) {
		_, err := w.Insert(ctx, payloads[:1])
		require.NoError(t, err)
		all, err := w.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestStoredPayloadsAreCopies(t *testing.T) {
	ctx := context.Background()
	a := newArchivist(t, "archivist", archivist.Config{})
	p := unittest.PayloadFixture()
	_, err := a.Insert(ctx, []payload.Payload{p})
	require.NoError(t, err)

	p["nonce"] = "changed"
	found, err := a.All(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.NotEqual(t, "changed", found[0]["nonce"])
}

func TestInsertMissingReference(t *testing.T) {
	a := newArchivist(t, "archivist", archivist.Config{})
	q := payload.MustFrom(archivist.InsertQuery{
		Schema:   archivist.InsertQuerySchema,
		Payloads: []hash.Hash{unittest.HashFixture()},
	})

	_, _, err := query.NewWrapper(a, unittest.AccountFixture(t)).Send(context.Background(), q)
	require.True(t, query.IsModuleErrorResult(err))
	assert.Contains(t, err.Error(), "referenced payload is not attached")

	all, err := a.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeleteClear(t *testing.T) {
	ctx := context.Background()
	a := newArchivist(t, "archivist", archivist.Config{})
	w := wrap(t, a)
	payloads := unittest.PayloadsFixture(3)
	_, err := w.Insert(ctx, payloads)
	require.NoError(t, err)

	deleted, err := w.Delete(ctx, hashes(t, payloads[:1])[0], unittest.HashFixture())
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, deleted)

	all, err := w.All(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, payloads[1:], all)

	require.NoError(t, w.Clear(ctx))
	all, err = w.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// the last inserted payload is gone with the rest
	head, err := w.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, head)
}

func TestMaxSize(t *testing.T) {
	ctx := context.Background()
	a := newArchivist(t, "archivist", archivist.Config{MaxSize: 2})
	payloads := unittest.PayloadsFixture(3)
	_, err := a.Insert(ctx, payloads)
	require.NoError(t, err)

	all, err := a.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, payloads[1:], all)
}

func TestInvalidConfig(t *testing.T) {
	config := archivist.NewConfig("archivist", archivist.Config{})
	config.Extra["maxSize"] = -1
	_, err := archivist.NewMemory(unittest.Logger(), metrics.NewNoopCollector(), nil, config)
	assert.True(t, module.IsInvalidConfigError(err))
}

func TestWriteThrough(t *testing.T) {
	ctx := context.Background()
	parent := newArchivist(t, "parent", archivist.Config{})
	child := newArchivist(t, "child", archivist.Config{Parents: archivist.Parents{Write: []string{"parent"}}})
	attachAll(t, parent, child)

	payloads := unittest.PayloadsFixture(2)
	bws, err := wrap(t, child).Insert(ctx, payloads)
	require.NoError(t, err)
	require.Len(t, bws, 2)
	assert.Equal(t, []crypto.Address{child.Address()}, bws[0].Addresses)
	assert.Equal(t, []crypto.Address{parent.Address()}, bws[1].Addresses)

	// the parent stores the child's bound witness along with the payloads
	childBW, err := bws[0].Payload()
	require.NoError(t, err)
	stored, err := parent.All(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, hashes(t, append([]payload.Payload{childBW}, payloads...)), hashes(t, stored))
}

func TestWriteThroughFailure(t *testing.T) {
	ctx := context.Background()
	parent := newArchivist(t, "parent", archivist.Config{})
	child := newArchivist(t, "child", archivist.Config{Parents: archivist.Parents{Write: []string{"parent"}}})
	attachAll(t, parent, child)
	require.NoError(t, parent.Stop(ctx))

	// a failing parent does not fail the local insert
	bws, err := child.Insert(ctx, unittest.PayloadsFixture(1))
	require.NoError(t, err)
	assert.Len(t, bws, 1)
}

func TestRequireAllParents(t *testing.T) {
	ctx := context.Background()

	t.Run("required", func(t *testing.T) {
		child := newArchivist(t, "child", archivist.Config{Parents: archivist.Parents{Write: []string{"missing"}}})
		_, err := child.Insert(ctx, unittest.PayloadsFixture(1))
		assert.ErrorIs(t, err, archivist.ErrParentNotFound)
	})

	t.Run("optional", func(t *testing.T) {
		optional := false
		child := newArchivist(t, "child", archivist.Config{
			Parents:           archivist.Parents{Write: []string{"missing"}},
			RequireAllParents: &optional,
		})
		bws, err := child.Insert(ctx, unittest.PayloadsFixture(1))
		require.NoError(t, err)
		assert.Len(t, bws, 1)
	})
}

func TestReadThrough(t *testing.T) {
	ctx := context.Background()
	payloads := unittest.PayloadsFixture(2)

	for _, store := range []bool{false, true} {
		parent := newArchivist(t, "parent", archivist.Config{})
		child := newArchivist(t, "child", archivist.Config{
			Parents:          archivist.Parents{Read: []string{"parent"}},
			StoreParentReads: store,
		})
		attachAll(t, parent, child)

		_, err := parent.Insert(ctx, payloads)
		require.NoError(t, err)

		found, err := child.Get(ctx, hashes(t, payloads))
		require.NoError(t, err)
		assert.Equal(t, payloads, found)

		cached, err := child.All(ctx)
		require.NoError(t, err)
		if store {
			assert.Len(t, cached, 2)
		} else {
			assert.Empty(t, cached)
		}
	}
}

// newForgingArchivist answers every get with an unrelated payload.
func newForgingArchivist(t *testing.T, name string) module.Module {
	noop := func(context.Context, *boundwitness.QueryWrapper, payload.Payload) ([]payload.Payload, error) {
		return nil, nil
	}
	handlers := base.Handlers{}
	for _, schema := range archivist.Queries {
		handlers[schema] = noop
	}
	handlers[archivist.GetQuerySchema] = func(context.Context, *boundwitness.QueryWrapper, payload.Payload) ([]payload.Payload, error) {
		return []payload.Payload{unittest.PayloadFixture()}, nil
	}
	b, err := base.New(unittest.Logger(), nil, module.Config{Name: name}, handlers)
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	return b
}

func TestReadThroughHashMismatch(t *testing.T) {
	ctx := context.Background()
	forger := newForgingArchivist(t, "forger")
	honest := newArchivist(t, "honest", archivist.Config{})
	child := newArchivist(t, "child", archivist.Config{
		Parents:          archivist.Parents{Read: []string{"forger", "honest"}},
		StoreParentReads: true,
	})
	attachAll(t, forger, honest, child)

	p := unittest.PayloadFixture()
	h := hashes(t, []payload.Payload{p})[0]

	t.Run("no honest copy", func(t *testing.T) {
		found, err := child.Get(ctx, []hash.Hash{h})
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("falls through to the next parent", func(t *testing.T) {
		_, err := honest.Insert(ctx, []payload.Payload{p})
		require.NoError(t, err)

		found, err := child.Get(ctx, []hash.Hash{h})
		require.NoError(t, err)
		assert.Equal(t, []payload.Payload{p}, found)
	})
}

func TestCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("no commit parents", func(t *testing.T) {
		a := newArchivist(t, "child", archivist.Config{})
		_, err := wrap(t, a).Commit(ctx)
		require.True(t, query.IsModuleErrorResult(err))
		assert.Contains(t, err.Error(), archivist.ErrNoCommitParents.Error())
	})

	parent := newArchivist(t, "parent", archivist.Config{})
	child := newArchivist(t, "child", archivist.Config{Parents: archivist.Parents{Commit: []string{"parent"}}})
	attachAll(t, parent, child)

	_, err := child.Commit(ctx)
	assert.ErrorIs(t, err, archivist.ErrNothingToCommit)

	payloads := unittest.PayloadsFixture(3)
	_, err = child.Insert(ctx, payloads)
	require.NoError(t, err)

	bws, err := wrap(t, child).Commit(ctx)
	require.NoError(t, err)
	require.Len(t, bws, 1)
	assert.Equal(t, []crypto.Address{parent.Address()}, bws[0].Addresses)
	assert.ElementsMatch(t, hashes(t, payloads), bws[0].PayloadHashes)

	local, err := child.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, local)

	committed, err := parent.All(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, payloads, committed)
}

func TestCommitFailureKeepsPayloads(t *testing.T) {
	ctx := context.Background()
	parent := newArchivist(t, "parent", archivist.Config{})
	child := newArchivist(t, "child", archivist.Config{Parents: archivist.Parents{Commit: []string{"parent"}}})
	attachAll(t, parent, child)
	require.NoError(t, parent.Stop(ctx))

	_, err := child.Insert(ctx, unittest.PayloadsFixture(2))
	require.NoError(t, err)
	_, err = child.Commit(ctx)
	require.Error(t, err)

	local, err := child.All(ctx)
	require.NoError(t, err)
	assert.Len(t, local, 2)
}

func TestPersistentStore(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		ctx := context.Background()
		store := archivist.NewPersistentStore(bstorage.NewPayloads(db))
		a, err := archivist.New(unittest.Logger(), metrics.NewNoopCollector(), nil, archivist.NewConfig("archivist", archivist.Config{}), store)
		require.NoError(t, err)
		require.NoError(t, a.Start(ctx))
		w := wrap(t, a)

		payloads := unittest.PayloadsFixture(2)
		_, err = w.Insert(ctx, payloads)
		require.NoError(t, err)

		found, err := w.Get(ctx, hashes(t, payloads)...)
		require.NoError(t, err)
		assert.Equal(t, payloads, found)

		deleted, err := w.Delete(ctx, hashes(t, payloads)[0], hashes(t, payloads)[0])
		require.NoError(t, err)
		assert.Equal(t, []bool{true, false}, deleted)

		// a second archivist over the same database sees the remaining payload
		reopened := archivist.NewPersistentStore(bstorage.NewPayloads(db))
		all, err := reopened.All()
		require.NoError(t, err)
		assert.Equal(t, hashes(t, payloads[1:]), hashes(t, all))
	})
}

func TestPersistentStoreKeepsSignatures(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store := archivist.NewPersistentStore(bstorage.NewPayloads(db))

		bw := unittest.BoundWitnessFixture(t, unittest.AccountsFixture(t, 1), unittest.PayloadsFixture(1))
		p, err := bw.Payload()
		require.NoError(t, err)
		h := payload.MustHash(p)
		require.NoError(t, store.Put(h, p))

		stored, found, err := store.Get(h)
		require.NoError(t, err)
		require.True(t, found)
		restored, err := boundwitness.FromPayload(stored)
		require.NoError(t, err)
		assert.Equal(t, bw.Signatures, restored.Signatures)
		assert.Empty(t, boundwitness.Validate(restored))
	})
}

func TestWrapperRequiresArchivist(t *testing.T) {
	n, err := node.New(unittest.Logger(), nil, module.Config{Name: "root"})
	require.NoError(t, err)

	_, err = archivist.NewWrapper(n, nil)
	assert.True(t, module.IsIncompatibleModuleError(err))
}
