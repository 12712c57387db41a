package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witnessnet/witnessnet/model/hash"
)

func TestHashKnownValue(t *testing.T) {
	p := New("x.test", map[string]interface{}{"n": 1})
	h, err := p.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash.Sum([]byte(`{"n":1,"schema":"x.test"}`)), h)
}

func TestHashDeterminism(t *testing.T) {
	a, err := Unmarshal([]byte(`{"schema":"x.test","b":{"y":2,"x":1},"a":[3,2,1],"c":"<tag>&"}`))
	require.NoError(t, err)
	b, err := Unmarshal([]byte(`{"c":"<tag>&","a":[3,2,1],"b":{"x":1,"y":2},"schema":"x.test"}`))
	require.NoError(t, err)

	ha := MustHash(a)
	assert.Equal(t, ha, MustHash(b))
	// hashing twice gives the same answer
	assert.Equal(t, ha, MustHash(a))

	canonical, err := Canonical(a)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[3,2,1],"b":{"x":1,"y":2},"c":"<tag>&","schema":"x.test"}`, string(canonical))

	// array order is significant
	c, err := Unmarshal([]byte(`{"schema":"x.test","b":{"y":2,"x":1},"a":[1,2,3],"c":"<tag>&"}`))
	require.NoError(t, err)
	assert.NotEqual(t, ha, MustHash(c))
}

func TestHashIgnoresMetadata(t *testing.T) {
	p := New("x.test", map[string]interface{}{"n": 1})
	withMeta := p.Clone()
	withMeta["_hash"] = "abc"
	withMeta["_timestamp"] = 1700000000000
	withMeta["_signatures"] = []string{"00"}

	assert.Equal(t, MustHash(p), MustHash(withMeta))
	assert.Equal(t, p, withMeta.WithoutMeta())

	// null fields are dropped
	withNull := p.Clone()
	withNull["missing"] = nil
	assert.Equal(t, MustHash(p), MustHash(withNull))

	// regular fields are not
	changed := p.Clone()
	changed["n"] = 2
	assert.NotEqual(t, MustHash(p), MustHash(changed))
}

func TestExactNumbers(t *testing.T) {
	p, err := Unmarshal([]byte(`{"schema":"x.test","big":12345678901234567890,"f":1.50}`))
	require.NoError(t, err)
	canonical, err := Canonical(p)
	require.NoError(t, err)
	assert.Equal(t, `{"big":12345678901234567890,"f":1.50,"schema":"x.test"}`, string(canonical))
}

func TestTypedHashMatchesMap(t *testing.T) {
	typed := Timestamp{Schema: TimestampSchema, Timestamp: 42}
	assert.Equal(t, MustHash(typed), MustHash(NewTimestamp(42)))
}
