package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/query"
	"github.com/witnessnet/witnessnet/utils/unittest"
)

const testQuery = "network.xyo.query.test"

func signedBy(t *testing.T, signers ...*crypto.Account) (*boundwitness.BoundWitness, payload.Payload) {
	q := query.New(testQuery, nil)
	bw, _, err := query.Bind(q, query.WithSigners(signers...))
	require.NoError(t, err)
	return bw, q
}

func TestBind(t *testing.T) {
	signer := unittest.AccountFixture(t)
	supporting := unittest.PayloadFixture()
	q := query.New(testQuery, map[string]interface{}{"limit": 10})

	bw, payloads, err := query.Bind(q, query.WithSigners(signer), query.WithPayloads(supporting))
	require.NoError(t, err)
	require.Empty(t, boundwitness.Validate(bw))

	queryHash, err := q.Hash()
	require.NoError(t, err)
	require.NotNil(t, bw.Query)
	assert.Equal(t, queryHash, *bw.Query)
	assert.Equal(t, []payload.Payload{q, supporting}, payloads)
	assert.Equal(t, []crypto.Address{signer.Address()}, bw.Addresses)

	_, _, err = query.Bind(payload.Payload{"limit": 1})
	assert.ErrorIs(t, err, payload.ErrMissingSchema)
}

func TestSupportedValidator(t *testing.T) {
	bw, q := signedBy(t)

	v := query.NewSupportedValidator(func() []string { return []string{module.DiscoverQuerySchema, testQuery} })
	assert.NoError(t, v.Validate(bw, q))

	v = query.NewSupportedValidator(func() []string { return []string{module.DiscoverQuerySchema} })
	err := v.Validate(bw, q)
	assert.True(t, module.IsUnsupportedQueryError(err))
}

func TestConfigValidator(t *testing.T) {
	alice := unittest.AccountFixture(t)
	bob := unittest.AccountFixture(t)
	carol := unittest.AccountFixture(t)
	mallory := unittest.AccountFixture(t)

	cases := []struct {
		name     string
		security module.SecurityConfig
		signers  []*crypto.Account
		allowed  bool
	}{
		{
			name:    "no rules admits anyone",
			signers: []*crypto.Account{mallory},
			allowed: true,
		},
		{
			name:     "no rules admits anonymous",
			security: module.SecurityConfig{},
			allowed:  true,
		},
		{
			name: "anonymous rejected when rules exist",
			security: module.SecurityConfig{
				Disallowed: map[string][]crypto.Address{testQuery: {mallory.Address()}},
			},
			allowed: false,
		},
		{
			name: "anonymous admitted when allowed",
			security: module.SecurityConfig{
				AllowAnonymous: true,
				Disallowed:     map[string][]crypto.Address{testQuery: {mallory.Address()}},
			},
			allowed: true,
		},
		{
			name: "disallowed signer",
			security: module.SecurityConfig{
				Disallowed: map[string][]crypto.Address{testQuery: {mallory.Address()}},
			},
			signers: []*crypto.Account{alice, mallory},
			allowed: false,
		},
		{
			name: "disallowed for another schema",
			security: module.SecurityConfig{
				Disallowed: map[string][]crypto.Address{"network.xyo.query.other": {mallory.Address()}},
			},
			signers: []*crypto.Account{mallory},
			allowed: true,
		},
		{
			name: "schema without allow list",
			security: module.SecurityConfig{
				Allowed: map[string][][]crypto.Address{"network.xyo.query.other": {{alice.Address()}}},
			},
			signers: []*crypto.Account{mallory},
			allowed: true,
		},
		{
			name: "cosigner set present",
			security: module.SecurityConfig{
				Allowed: map[string][][]crypto.Address{testQuery: {{alice.Address(), bob.Address()}}},
			},
			signers: []*crypto.Account{bob, carol, alice},
			allowed: true,
		},
		{
			name: "cosigner set incomplete",
			security: module.SecurityConfig{
				Allowed: map[string][][]crypto.Address{testQuery: {{alice.Address(), bob.Address()}}},
			},
			signers: []*crypto.Account{alice},
			allowed: false,
		},
		{
			name: "every signer individually allowed",
			security: module.SecurityConfig{
				Allowed: map[string][][]crypto.Address{testQuery: {{alice.Address()}, {bob.Address()}}},
			},
			signers: []*crypto.Account{alice, bob},
			allowed: true,
		},
		{
			name: "one signer not allowed",
			security: module.SecurityConfig{
				Allowed: map[string][][]crypto.Address{testQuery: {{alice.Address()}, {bob.Address()}}},
			},
			signers: []*crypto.Account{carol},
			allowed: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			bw, q := signedBy(t, c.signers...)
			err := query.NewConfigValidator(c.security).Validate(bw, q)
			if c.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, module.IsNotQueryableError(err))
		})
	}
}

func TestValidateOrder(t *testing.T) {
	bw, q := signedBy(t)
	var calls []string
	first := query.ValidatorFunc(func(*boundwitness.BoundWitness, payload.Payload) error {
		calls = append(calls, "first")
		return module.NewNotQueryableErrorf("nope")
	})
	second := query.ValidatorFunc(func(*boundwitness.BoundWitness, payload.Payload) error {
		calls = append(calls, "second")
		return nil
	})

	err := query.Validate(bw, q, second, first, second)
	assert.True(t, module.IsNotQueryableError(err))
	assert.Equal(t, []string{"second", "first"}, calls)
}
