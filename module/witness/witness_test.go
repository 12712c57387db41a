package witness_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/base"
	"github.com/witnessnet/witnessnet/module/query"
	"github.com/witnessnet/witnessnet/module/witness"
	"github.com/witnessnet/witnessnet/utils/unittest"
)

const weatherSchema = "network.xyo.test.weather"

func start(t *testing.T, w *witness.Witness) *witness.Wrapper {
	require.NoError(t, w.Start(context.Background()))
	wrapper, err := witness.NewWrapper(w, unittest.AccountFixture(t))
	require.NoError(t, err)
	return wrapper
}

func adhocConfig(nonce bool) module.Config {
	return module.Config{
		Name: "adhoc",
		Extra: map[string]interface{}{
			"payload": map[string]interface{}{"schema": weatherSchema, "sky": "clear", "wind": "calm"},
			"nonce":   nonce,
		},
	}
}

func TestAdhoc(t *testing.T) {
	ctx := context.Background()
	w, err := witness.NewAdhoc(unittest.Logger(), nil, adhocConfig(false))
	require.NoError(t, err)
	assert.Equal(t, witness.AdhocConfigSchema, w.Config().Schema)
	wrapper := start(t, w)

	t.Run("template", func(t *testing.T) {
		observed, err := wrapper.Observe(ctx)
		require.NoError(t, err)
		require.Len(t, observed, 1)
		assert.Equal(t, payload.Payload{"schema": weatherSchema, "sky": "clear", "wind": "calm"}, observed[0])
	})

	t.Run("merged with hints", func(t *testing.T) {
		hint := payload.New(weatherSchema, map[string]interface{}{"sky": "overcast"})
		observed, err := wrapper.Observe(ctx, hint)
		require.NoError(t, err)
		require.Len(t, observed, 1)
		assert.Equal(t, "overcast", observed[0]["sky"])
		assert.Equal(t, "calm", observed[0]["wind"])
	})
}

func TestAdhocNonce(t *testing.T) {
	ctx := context.Background()
	w, err := witness.NewAdhoc(unittest.Logger(), nil, adhocConfig(true))
	require.NoError(t, err)
	wrapper := start(t, w)

	first, err := wrapper.Observe(ctx)
	require.NoError(t, err)
	second, err := wrapper.Observe(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Len(t, second, 1)

	h1, err := first[0].Hash()
	require.NoError(t, err)
	h2, err := second[0].Hash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestAdhocInvalidConfig(t *testing.T) {
	_, err := witness.NewAdhoc(unittest.Logger(), nil, module.Config{Name: "adhoc"})
	assert.True(t, module.IsInvalidConfigError(err))

	_, err = witness.NewAdhoc(unittest.Logger(), nil, module.Config{
		Extra: map[string]interface{}{"payload": map[string]interface{}{"sky": "clear"}},
	})
	assert.True(t, module.IsInvalidConfigError(err))
}

func TestTimestamp(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	observer := witness.NewTimestampObserver(func() time.Time { return now })

	w, err := witness.New(unittest.Logger(), nil, module.Config{Name: "clock"}, observer)
	require.NoError(t, err)
	wrapper := start(t, w)

	observed, err := wrapper.Observe(ctx, unittest.PayloadFixture())
	require.NoError(t, err)
	require.Len(t, observed, 2)

	var ts payload.Timestamp
	require.NoError(t, observed[0].Decode(&ts))
	assert.Equal(t, payload.TimestampSchema, ts.Schema)
	assert.Equal(t, now.UnixMilli(), ts.Timestamp)
	assert.EqualValues(t, now.UnixMilli(), observed[1]["timestamp"])
}

func TestInvalidObservation(t *testing.T) {
	observer := witness.ObserverFunc(func(context.Context, []payload.Payload) ([]payload.Payload, error) {
		return []payload.Payload{{"value": 1}}, nil
	})
	w, err := witness.New(unittest.Logger(), nil, module.Config{Name: "broken"}, observer)
	require.NoError(t, err)
	wrapper := start(t, w)

	_, err = wrapper.Observe(context.Background())
	require.True(t, query.IsModuleErrorResult(err))
	assert.Contains(t, err.Error(), "invalid observation")
}

func TestWrapperRequiresWitness(t *testing.T) {
	w, err := witness.NewTimestamp(unittest.Logger(), nil, module.Config{})
	require.NoError(t, err)
	_, err = witness.NewWrapper(w, nil)
	require.NoError(t, err)

	plain, err := base.New(unittest.Logger(), nil, module.Config{}, nil)
	require.NoError(t, err)
	_, err = witness.NewWrapper(plain, nil)
	assert.True(t, module.IsIncompatibleModuleError(err))
}
