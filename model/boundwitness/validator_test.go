package boundwitness_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/utils/unittest"
)

func validFixture(t *testing.T) *boundwitness.BoundWitness {
	return unittest.BoundWitnessFixture(t, unittest.AccountsFixture(t, 3), unittest.PayloadsFixture(2))
}

func TestValidateStructure(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.Empty(t, boundwitness.Validate(validFixture(t)))
		assert.True(t, boundwitness.IsValid(validFixture(t)))
	})

	t.Run("fewer previous hashes than addresses", func(t *testing.T) {
		bw := validFixture(t)
		bw.PreviousHashes = bw.PreviousHashes[:2]
		assert.NotEmpty(t, boundwitness.Validate(bw))
	})

	t.Run("fewer signatures than addresses", func(t *testing.T) {
		bw := validFixture(t)
		bw.Signatures = bw.Signatures[:1]
		errs := boundwitness.Validate(bw)
		require.NotEmpty(t, errs)
		for _, err := range errs {
			assert.True(t, boundwitness.IsValidationError(err))
		}
	})

	t.Run("extra address", func(t *testing.T) {
		bw := validFixture(t)
		bw.Addresses = append(bw.Addresses, unittest.AddressFixture())
		assert.NotEmpty(t, boundwitness.Validate(bw))
	})

	t.Run("schema count mismatch", func(t *testing.T) {
		bw := validFixture(t)
		bw.PayloadSchemas = bw.PayloadSchemas[:1]
		assert.NotEmpty(t, boundwitness.Validate(bw))
	})

	t.Run("empty entries", func(t *testing.T) {
		bw := validFixture(t)
		bw.PayloadHashes[0] = hash.ZeroHash
		bw.PayloadSchemas[1] = ""
		assert.GreaterOrEqual(t, len(boundwitness.Validate(bw)), 2)
	})

	t.Run("wrong schema", func(t *testing.T) {
		bw := validFixture(t)
		bw.Schema = "x.other"
		assert.NotEmpty(t, boundwitness.Validate(bw))
	})

	t.Run("query not referenced", func(t *testing.T) {
		bw := validFixture(t)
		h := unittest.HashFixture()
		bw.Query = &h
		assert.NotEmpty(t, boundwitness.Validate(bw))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Len(t, boundwitness.Validate(nil), 1)
	})
}

func TestValidateSignatures(t *testing.T) {
	t.Run("tampered content", func(t *testing.T) {
		bw := validFixture(t)
		bw.PayloadHashes[0] = unittest.HashFixture()
		// every signature now covers a different hash
		assert.Len(t, boundwitness.Validate(bw), 3)
	})

	t.Run("flipped signature bit", func(t *testing.T) {
		bw := validFixture(t)
		bw.Signatures[1][5] ^= 0x01
		errs := boundwitness.Validate(bw)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "signature 1")
	})

	t.Run("swapped signers", func(t *testing.T) {
		bw := validFixture(t)
		bw.Signatures[0], bw.Signatures[1] = bw.Signatures[1], bw.Signatures[0]
		assert.Len(t, boundwitness.Validate(bw), 2)
	})

	t.Run("signatures do not affect the hash", func(t *testing.T) {
		bw := validFixture(t)
		before, err := bw.Hash()
		require.NoError(t, err)
		bw.Signatures = []crypto.Signature{}
		after, err := bw.Hash()
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("claimed hash", func(t *testing.T) {
		bw := validFixture(t)
		h, err := bw.Hash()
		require.NoError(t, err)
		assert.Empty(t, boundwitness.Validate(bw, boundwitness.WithClaimedHash(h)))
		assert.Len(t, boundwitness.Validate(bw, boundwitness.WithClaimedHash(unittest.HashFixture())), 1)
	})
}

func TestValidateBatch(t *testing.T) {
	bws := make([]*boundwitness.BoundWitness, 20)
	for i := range bws {
		bws[i] = validFixture(t)
	}
	bws[7].Signatures = bws[7].Signatures[:1]

	results := boundwitness.ValidateBatch(bws, 4)
	require.Len(t, results, len(bws))
	for i, errs := range results {
		if i == 7 {
			assert.NotEmpty(t, errs)
			continue
		}
		assert.Empty(t, errs, "record %d", i)
	}
	assert.Error(t, boundwitness.BatchError(results))

	results = boundwitness.ValidateBatch(bws[:7], 0)
	assert.NoError(t, boundwitness.BatchError(results))
}
