package crypto_test

import (
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/utils/unittest"
)

func TestAccountFromPrivateKey(t *testing.T) {
	t.Run("known address", func(t *testing.T) {
		key := make([]byte, 32)
		key[31] = 1
		account, err := crypto.NewAccountFromPrivateKey(key)
		require.NoError(t, err)
		assert.Equal(t, "7e5f4552091a69125d5dfcb7b8c2659029395bdf", account.Address().Hex())
		assert.Equal(t, key, account.PrivateKey())
		assert.Len(t, account.PublicKey(), 65)
	})

	t.Run("invalid length", func(t *testing.T) {
		for _, n := range []int{0, 31, 33, 64} {
			_, err := crypto.NewAccountFromPrivateKey(make([]byte, n))
			assert.ErrorIs(t, err, crypto.ErrInvalidKeyLength, "length %d", n)
		}
	})

	t.Run("zero scalar", func(t *testing.T) {
		_, err := crypto.NewAccountFromPrivateKey(make([]byte, 32))
		assert.ErrorIs(t, err, crypto.ErrInvalidPrivateKey)
	})
}

func TestAccountFromPhrase(t *testing.T) {
	a, err := crypto.NewAccountFromPhrase("correct horse battery staple")
	require.NoError(t, err)
	b, err := crypto.NewAccountFromPhrase("correct horse battery staple")
	require.NoError(t, err)
	c, err := crypto.NewAccountFromPhrase("something else")
	require.NoError(t, err)

	assert.Equal(t, a.Address(), b.Address())
	assert.NotEqual(t, a.Address(), c.Address())
}

func TestSignVerify(t *testing.T) {
	account := unittest.AccountFixture(t)
	other := unittest.AccountFixture(t)

	for i := 0; i < 20; i++ {
		h := unittest.HashFixture()
		sig, err := account.Sign(h)
		require.NoError(t, err)
		require.Len(t, sig, crypto.SignatureLength)

		assert.True(t, crypto.Verify(h, sig, account.Address()))
		assert.False(t, crypto.Verify(h, sig, other.Address()))

		// flipping any single bit invalidates the signature
		for _, bit := range []int{0, 100, 255, 256, 400, 511} {
			mutated := make(crypto.Signature, len(sig))
			copy(mutated, sig)
			mutated[bit/8] ^= 1 << (bit % 8)
			assert.False(t, crypto.Verify(h, mutated, account.Address()), "bit %d", bit)
		}

		// a different message does not verify
		assert.False(t, crypto.Verify(unittest.HashFixture(), sig, account.Address()))
	}

	assert.False(t, crypto.Verify(unittest.HashFixture(), crypto.Signature{1, 2, 3}, account.Address()))
}

func TestSignAdvancesPreviousHash(t *testing.T) {
	account := unittest.AccountFixture(t)
	assert.Nil(t, account.PreviousHash())

	first := unittest.HashFixture()
	_, err := account.Sign(first)
	require.NoError(t, err)
	require.NotNil(t, account.PreviousHash())
	assert.Equal(t, first, *account.PreviousHash())

	second := unittest.HashFixture()
	_, err = account.Sign(second)
	require.NoError(t, err)
	assert.Equal(t, second, *account.PreviousHash())
}

func TestConcurrentSigning(t *testing.T) {
	account := unittest.AccountFixture(t)

	hashes := make([]hash.Hash, 50)
	for i := range hashes {
		hashes[i] = unittest.HashFixture()
	}

	var wg sync.WaitGroup
	for _, h := range hashes {
		wg.Add(1)
		go func(h hash.Hash) {
			defer wg.Done()
			sig, err := account.Sign(h)
			assert.NoError(t, err)
			assert.True(t, crypto.Verify(h, sig, account.Address()))
		}(h)
	}
	unittest.RequireReturnsBefore(t, wg.Wait, 10*time.Second, "signers did not finish")

	prev := account.PreviousHash()
	require.NotNil(t, prev)
	assert.True(t, hash.NewSet(hashes...).Has(*prev))
}

func TestSessionOrdering(t *testing.T) {
	a := unittest.AccountFixture(t)
	b := unittest.AccountFixture(t)

	// overlapping sessions acquired in opposite argument order must not deadlock
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s := crypto.Acquire(a, b, a)
			defer s.Release()
			_, err := s.Sign(a, unittest.HashFixture())
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			s := crypto.Acquire(b, a)
			defer s.Release()
			_, err := s.Sign(b, unittest.HashFixture())
			assert.NoError(t, err)
		}()
	}
	unittest.RequireReturnsBefore(t, wg.Wait, 10*time.Second, "sessions deadlocked")

	s := crypto.Acquire(a)
	defer s.Release()
	_, err := s.Sign(b, unittest.HashFixture())
	assert.Error(t, err)
	_, err = s.PreviousHash(b)
	assert.Error(t, err)
}

type mapStore map[crypto.Address]hash.Hash

func (m mapStore) PreviousHash(addr crypto.Address) (*hash.Hash, error) {
	h, ok := m[addr]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (m mapStore) SetPreviousHash(addr crypto.Address, h hash.Hash) error {
	m[addr] = h
	return nil
}

func TestPreviousHashStore(t *testing.T) {
	key, err := hex.DecodeString("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)

	store := mapStore{}
	account, err := crypto.NewAccountFromPrivateKey(key, crypto.WithPreviousHashStore(store))
	require.NoError(t, err)

	h := unittest.HashFixture()
	_, err = account.Sign(h)
	require.NoError(t, err)
	assert.Equal(t, h, store[account.Address()])

	// a restored account resumes the chain
	restored, err := crypto.NewAccountFromPrivateKey(key, crypto.WithPreviousHashStore(store))
	require.NoError(t, err)
	require.NotNil(t, restored.PreviousHash())
	assert.Equal(t, h, *restored.PreviousHash())
}

func TestAddressText(t *testing.T) {
	account := unittest.AccountFixture(t)
	addr := account.Address()

	parsed, err := crypto.HexToAddress("0x" + addr.Hex())
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)

	_, err = crypto.HexToAddress("abcd")
	assert.True(t, crypto.IsInvalidAddressError(err))
	assert.False(t, crypto.IsHexAddress("not an address"))
}
