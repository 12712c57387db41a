package diviner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/archivist"
	"github.com/witnessnet/witnessnet/module/diviner"
	"github.com/witnessnet/witnessnet/module/metrics"
	"github.com/witnessnet/witnessnet/module/node"
	"github.com/witnessnet/witnessnet/module/query"
	"github.com/witnessnet/witnessnet/utils/unittest"
)

const debugSchema = "network.xyo.debug"

type fixture struct {
	node    *node.Node
	archive *archivist.Archivist
}

// setup attaches an archivist named archive and the modules to one node.
func setup(t *testing.T, modules ...module.Module) fixture {
	ctx := context.Background()
	log := unittest.Logger()

	n, err := node.New(log, nil, module.Config{Name: "root"})
	require.NoError(t, err)
	archive, err := archivist.NewMemory(log, metrics.NewNoopCollector(), nil, archivist.NewConfig("archive", archivist.Config{}))
	require.NoError(t, err)

	require.NoError(t, n.Start(ctx))
	for _, m := range append([]module.Module{archive}, modules...) {
		if lc, ok := m.(module.Lifecycle); ok {
			require.NoError(t, lc.Start(ctx))
		}
		require.NoError(t, n.Register(m))
		_, err := n.Attach(ctx, m.Address().Hex(), false)
		require.NoError(t, err)
	}
	return fixture{node: n, archive: archive}
}

func (f fixture) insert(t *testing.T, payloads ...payload.Payload) {
	_, err := f.archive.Insert(context.Background(), payloads)
	require.NoError(t, err)
}

func divine(t *testing.T, d *diviner.Diviner, payloads ...payload.Payload) []payload.Payload {
	t.Helper()
	w, err := diviner.NewWrapper(d, unittest.AccountFixture(t))
	require.NoError(t, err)
	results, err := w.Divine(context.Background(), payloads...)
	require.NoError(t, err)
	return results
}

func nextEvent(t *testing.T, sub module.Subscription) module.Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		require.FailNow(t, "missing event")
	}
	return module.Event{}
}

func TestDivine(t *testing.T) {
	echo := diviner.DivinationFunc(func(_ context.Context, payloads []payload.Payload) ([]payload.Payload, error) {
		return payloads, nil
	})
	d, err := diviner.New(unittest.Logger(), nil, module.Config{Name: "echo"}, echo)
	require.NoError(t, err)
	setup(t, d)

	assert.True(t, module.Supports(d, diviner.DivineQuerySchema))

	sub := d.Subscribe(module.ReportStart, module.ReportEnd)
	defer sub.Close()

	in := unittest.PayloadsFixture(2)
	results := divine(t, d, in...)
	assert.Equal(t, in, results)

	start := nextEvent(t, sub)
	assert.Equal(t, module.ReportStart, start.Kind)
	assert.Equal(t, in, start.Payloads)
	end := nextEvent(t, sub)
	assert.Equal(t, module.ReportEnd, end.Kind)
	assert.Equal(t, in, end.Payloads)
	assert.NoError(t, end.Err)
}

func TestDivineFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("divination error", func(t *testing.T) {
		broken := errors.New("broken")
		d, err := diviner.New(unittest.Logger(), nil, module.Config{Name: "broken"}, diviner.DivinationFunc(func(context.Context, []payload.Payload) ([]payload.Payload, error) {
			return nil, broken
		}))
		require.NoError(t, err)
		setup(t, d)

		sub := d.Subscribe(module.ReportEnd)
		defer sub.Close()

		_, err = d.Divine(ctx, nil)
		assert.ErrorIs(t, err, broken)
		assert.ErrorIs(t, nextEvent(t, sub).Err, broken)

		w, err := diviner.NewWrapper(d, unittest.AccountFixture(t))
		require.NoError(t, err)
		_, err = w.Divine(ctx)
		assert.True(t, query.IsModuleErrorResult(err))
	})

	t.Run("result without schema", func(t *testing.T) {
		d, err := diviner.New(unittest.Logger(), nil, module.Config{Name: "schemaless"}, diviner.DivinationFunc(func(context.Context, []payload.Payload) ([]payload.Payload, error) {
			return []payload.Payload{{"value": 1}}, nil
		}))
		require.NoError(t, err)
		setup(t, d)

		_, err = d.Divine(ctx, nil)
		assert.Error(t, err)
	})

	t.Run("not started", func(t *testing.T) {
		called := false
		d, err := diviner.New(unittest.Logger(), nil, module.Config{Name: "idle"}, diviner.DivinationFunc(func(context.Context, []payload.Payload) ([]payload.Payload, error) {
			called = true
			return nil, nil
		}))
		require.NoError(t, err)

		_, err = d.Divine(ctx, nil)
		assert.ErrorIs(t, err, module.ErrNotStarted)
		assert.False(t, called)
	})
}

func TestPayloadDiviner(t *testing.T) {
	d, err := diviner.NewPayload(unittest.Logger(), nil, module.Config{Name: "payloads"})
	require.NoError(t, err)
	f := setup(t, d)

	first := unittest.PayloadFixture(unittest.WithField("url", "https://example.com"))
	second := unittest.PayloadFixture()
	third := unittest.PayloadFixture()
	debug := payload.New(debugSchema, map[string]interface{}{"foo": []string{"bar", "baz"}})
	f.insert(t, first, debug)
	f.insert(t, second)
	f.insert(t, third)

	byQuery := func(q diviner.PayloadQuery) []payload.Payload {
		q.Schema = diviner.PayloadQuerySchema
		return divine(t, d, payload.MustFrom(q))
	}

	t.Run("schema", func(t *testing.T) {
		results := byQuery(diviner.PayloadQuery{Schemas: []string{debugSchema}})
		require.Len(t, results, 1)
		assert.Equal(t, debugSchema, results[0].Schema())
	})

	t.Run("most recent first by default", func(t *testing.T) {
		results := byQuery(diviner.PayloadQuery{Schemas: []string{unittest.TestSchema}})
		assert.Equal(t, []payload.Payload{third, second, first}, results)
	})

	t.Run("ascending with limit and offset", func(t *testing.T) {
		results := byQuery(diviner.PayloadQuery{Schemas: []string{unittest.TestSchema}, Order: diviner.OrderAsc, Limit: 1, Offset: 1})
		assert.Equal(t, []payload.Payload{second}, results)

		results = byQuery(diviner.PayloadQuery{Schemas: []string{unittest.TestSchema}, Limit: 2})
		assert.Equal(t, []payload.Payload{third, second}, results)
	})

	t.Run("hash", func(t *testing.T) {
		h := payload.MustHash(second)
		results := byQuery(diviner.PayloadQuery{Hash: &h})
		assert.Equal(t, []payload.Payload{second}, results)
	})

	t.Run("field values", func(t *testing.T) {
		q := payload.New(diviner.PayloadQuerySchema, map[string]interface{}{
			"foo": []interface{}{"bar", "baz"},
		})
		assert.Equal(t, []payload.Payload{debug}, divine(t, d, q))

		q = payload.New(diviner.PayloadQuerySchema, map[string]interface{}{
			"url": "https://example.com",
		})
		assert.Equal(t, []payload.Payload{first}, divine(t, d, q))

		q = payload.New(diviner.PayloadQuerySchema, map[string]interface{}{
			"url": "https://example.org",
		})
		assert.Empty(t, divine(t, d, q))
	})

	t.Run("without query", func(t *testing.T) {
		assert.Empty(t, divine(t, d))
	})

	t.Run("unknown order", func(t *testing.T) {
		q := payload.MustFrom(diviner.PayloadQuery{Schema: diviner.PayloadQuerySchema, Order: "sideways"})
		_, err := d.Divine(context.Background(), []payload.Payload{q})
		assert.Error(t, err)
	})
}

func TestPayloadDivinerConfiguredArchivists(t *testing.T) {
	log := unittest.Logger()
	other, err := archivist.NewMemory(log, metrics.NewNoopCollector(), nil, archivist.NewConfig("other", archivist.Config{}))
	require.NoError(t, err)
	d, err := diviner.NewPayload(log, nil, module.Config{
		Name:  "payloads",
		Extra: map[string]interface{}{"archivists": []interface{}{"other"}, "limit": 1},
	})
	require.NoError(t, err)
	f := setup(t, other, d)

	f.insert(t, unittest.PayloadFixture())
	kept := unittest.PayloadsFixture(2)
	_, err = other.Insert(context.Background(), kept)
	require.NoError(t, err)

	q := payload.MustFrom(diviner.PayloadQuery{Schema: diviner.PayloadQuerySchema})
	assert.Equal(t, []payload.Payload{kept[1]}, divine(t, d, q))
}

func TestPayloadDivinerInvalidConfig(t *testing.T) {
	_, err := diviner.NewPayload(unittest.Logger(), nil, module.Config{
		Name:  "payloads",
		Extra: map[string]interface{}{"limit": -1},
	})
	assert.True(t, module.IsInvalidConfigError(err))
}

// chain signs n records with account, each over one fresh payload.
func chain(t *testing.T, account *crypto.Account, n int) []*boundwitness.BoundWitness {
	out := make([]*boundwitness.BoundWitness, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, unittest.BoundWitnessFixture(t, []*crypto.Account{account}, unittest.PayloadsFixture(1)))
	}
	return out
}

func recordPayloads(t *testing.T, bws ...*boundwitness.BoundWitness) []payload.Payload {
	out := make([]payload.Payload, 0, len(bws))
	for _, bw := range bws {
		p, err := bw.Payload()
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func recordHashes(t *testing.T, payloads []payload.Payload) []hash.Hash {
	hashes, err := payload.Hashes(payloads)
	require.NoError(t, err)
	return hashes
}

func TestAddressHistoryDiviner(t *testing.T) {
	account := unittest.AccountFixture(t)
	bystander := unittest.AccountFixture(t)

	d, err := diviner.NewAddressHistory(unittest.Logger(), nil, module.Config{
		Name:  "history",
		Extra: map[string]interface{}{"address": account.Address().Hex()},
	})
	require.NoError(t, err)
	f := setup(t, d)

	mine := chain(t, account, 3)
	shared := unittest.BoundWitnessFixture(t, []*crypto.Account{bystander, account}, unittest.PayloadsFixture(1))
	theirs := chain(t, bystander, 1)
	// archive order differs from signing order
	f.insert(t, recordPayloads(t, mine[2], theirs[0], mine[0])...)
	f.insert(t, recordPayloads(t, shared, mine[1])...)

	want := recordHashes(t, recordPayloads(t, shared, mine[2], mine[1], mine[0]))

	t.Run("configured address", func(t *testing.T) {
		results := divine(t, d)
		assert.Equal(t, want, recordHashes(t, results))
		assert.Equal(t, *account.PreviousHash(), want[0])

		for _, p := range results {
			bw, err := boundwitness.FromPayload(p)
			require.NoError(t, err)
			assert.Empty(t, boundwitness.Validate(bw))
			assert.Contains(t, bw.Addresses, account.Address())
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		q := payload.MustFrom(diviner.AddressHistoryQuery{Schema: diviner.AddressHistoryQuerySchema, Limit: 2})
		assert.Equal(t, want[:2], recordHashes(t, divine(t, d, q)))

		q = payload.MustFrom(diviner.AddressHistoryQuery{Schema: diviner.AddressHistoryQuerySchema, Offset: &want[2]})
		assert.Equal(t, want[2:], recordHashes(t, divine(t, d, q)))

		missing := unittest.HashFixture()
		q = payload.MustFrom(diviner.AddressHistoryQuery{Schema: diviner.AddressHistoryQuerySchema, Offset: &missing})
		assert.Empty(t, divine(t, d, q))
	})

	t.Run("queried address", func(t *testing.T) {
		addr := bystander.Address()
		q := payload.MustFrom(diviner.AddressHistoryQuery{Schema: diviner.AddressHistoryQuerySchema, Address: &addr})
		assert.Equal(t, recordHashes(t, recordPayloads(t, shared, theirs[0])), recordHashes(t, divine(t, d, q)))

		unknown := unittest.AddressFixture()
		q = payload.MustFrom(diviner.AddressHistoryQuery{Schema: diviner.AddressHistoryQuerySchema, Address: &unknown})
		assert.Empty(t, divine(t, d, q))
	})
}

func TestAddressHistoryDivinerWithoutAddress(t *testing.T) {
	d, err := diviner.NewAddressHistory(unittest.Logger(), nil, module.Config{Name: "history"})
	require.NoError(t, err)
	setup(t, d)

	_, err = d.Divine(context.Background(), nil)
	assert.Error(t, err)
}
