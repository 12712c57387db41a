package hash

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHex(t *testing.T) {
	h := Sum([]byte("hello"))

	t.Run("round trip", func(t *testing.T) {
		parsed, err := FromHex(h.Hex())
		require.NoError(t, err)
		assert.Equal(t, h, parsed)
	})

	t.Run("0x prefix", func(t *testing.T) {
		parsed, err := FromHex("0x" + h.Hex())
		require.NoError(t, err)
		assert.Equal(t, h, parsed)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := FromHex("abcd")
		require.Error(t, err)
	})

	t.Run("not hex", func(t *testing.T) {
		_, err := FromHex("zz")
		require.Error(t, err)
	})
}

func TestJSON(t *testing.T) {
	h := Sum([]byte("payload"))

	data, err := json.Marshal(h)
	require.NoError(t, err)
	assert.Equal(t, `"`+h.Hex()+`"`, string(data))

	var decoded Hash
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, h, decoded)

	// nil pointers encode as null, which is how missing previous hashes are represented
	data, err = json.Marshal([]*Hash{nil, &h})
	require.NoError(t, err)
	assert.Equal(t, `[null,"`+h.Hex()+`"]`, string(data))
}

func TestSet(t *testing.T) {
	a, b := Sum([]byte("a")), Sum([]byte("b"))
	s := NewSet(a)
	assert.True(t, s.Has(a))
	assert.False(t, s.Has(b))
	assert.True(t, ZeroHash.IsZero())
	assert.False(t, a.IsZero())
}
