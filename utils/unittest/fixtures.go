package unittest

import (
	"crypto/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
)

const TestSchema = "network.xyo.test"

func AccountFixture(t testing.TB) *crypto.Account {
	account, err := crypto.NewRandomAccount()
	require.NoError(t, err)
	return account
}

func AccountsFixture(t testing.TB, n int) []*crypto.Account {
	accounts := make([]*crypto.Account, 0, n)
	for i := 0; i < n; i++ {
		accounts = append(accounts, AccountFixture(t))
	}
	return accounts
}

func HashFixture() hash.Hash {
	var h hash.Hash
	_, _ = rand.Read(h[:])
	return h
}

func AddressFixture() crypto.Address {
	var a crypto.Address
	_, _ = rand.Read(a[:])
	return a
}

// PayloadFixture returns a test schema payload with a unique nonce, so every fixture hashes
// differently.
func PayloadFixture(opts ...func(payload.Payload)) payload.Payload {
	p := payload.New(TestSchema, map[string]interface{}{
		"nonce": uuid.New().String(),
	})
	for _, apply := range opts {
		apply(p)
	}
	return p
}

func PayloadsFixture(n int) []payload.Payload {
	payloads := make([]payload.Payload, 0, n)
	for i := 0; i < n; i++ {
		payloads = append(payloads, PayloadFixture())
	}
	return payloads
}

func WithField(key string, value interface{}) func(payload.Payload) {
	return func(p payload.Payload) {
		p[key] = value
	}
}

// BoundWitnessFixture builds a signed bound witness over the payloads.
func BoundWitnessFixture(t testing.TB, signers []*crypto.Account, payloads []payload.Payload) *boundwitness.BoundWitness {
	bw, _, err := boundwitness.NewBuilder().Payloads(payloads...).Signers(signers...).Build()
	require.NoError(t, err)
	return bw
}
