package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/module"
	mockmodule "github.com/witnessnet/witnessnet/module/mock"
	"github.com/witnessnet/witnessnet/utils/unittest"
)

// stubModule only answers the identity methods a filter needs.
type stubModule struct {
	module.Module
	address crypto.Address
	name    string
	queries []string
}

func (s *stubModule) Address() crypto.Address { return s.address }
func (s *stubModule) Config() module.Config   { return module.Config{Name: s.name} }
func (s *stubModule) Queries() []string       { return s.queries }

func stub(name string, queries ...string) *stubModule {
	return &stubModule{address: unittest.AddressFixture(), name: name, queries: queries}
}

func addresses(modules []module.Module) []crypto.Address {
	out := make([]crypto.Address, 0, len(modules))
	for _, m := range modules {
		out = append(out, m.Address())
	}
	return out
}

func TestSimpleFilter(t *testing.T) {
	a := stub("a", "q.get", "q.insert")
	b := stub("b", "q.get")
	c := stub("", "q.observe")
	s := NewSimple(a, b, c)
	ctx := context.Background()

	all, err := s.Resolve(ctx, module.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []crypto.Address{a.address, b.address, c.address}, addresses(all))

	byAddress, err := s.Resolve(ctx, module.Filter{Address: []crypto.Address{b.address}})
	require.NoError(t, err)
	assert.Equal(t, []crypto.Address{b.address}, addresses(byAddress))

	byName, err := s.Resolve(ctx, module.Filter{Name: []string{"a", "missing"}})
	require.NoError(t, err)
	assert.Equal(t, []crypto.Address{a.address}, addresses(byName))

	// empty names never match unnamed modules
	unnamed, err := s.Resolve(ctx, module.Filter{Name: []string{""}})
	require.NoError(t, err)
	assert.Empty(t, unnamed)

	byQuery, err := s.Resolve(ctx, module.Filter{Query: [][]string{{"q.get", "q.insert"}, {"q.observe"}}})
	require.NoError(t, err)
	assert.Equal(t, []crypto.Address{a.address, c.address}, addresses(byQuery))

	// predicates intersect
	intersect, err := s.Resolve(ctx, module.Filter{
		Address: []crypto.Address{a.address, b.address},
		Query:   [][]string{{"q.get"}},
		Identity: func(m module.Module) bool {
			return m.Address() != a.address
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []crypto.Address{b.address}, addresses(intersect))
}

func TestSimpleAddRemove(t *testing.T) {
	a, b := stub("a"), stub("b")
	s := NewSimple(a)
	s.Add(b, a)
	assert.Equal(t, 2, s.Len())

	assert.True(t, s.Remove(a.address))
	assert.False(t, s.Remove(a.address))
	assert.False(t, s.Has(a.address))
	assert.True(t, s.Has(b.address))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Resolve(ctx, module.Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompositeDedup(t *testing.T) {
	a, b, c := stub("a"), stub("b"), stub("c")
	first := NewSimple(a, b)
	second := NewSimple(b, c)
	composite := NewComposite(unittest.Logger(), first, second, first)

	modules, err := composite.Resolve(context.Background(), module.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []crypto.Address{a.address, b.address, c.address}, addresses(modules))

	composite.Remove(first)
	assert.False(t, composite.Contains(first))
	modules, err = composite.Resolve(context.Background(), module.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []crypto.Address{b.address, c.address}, addresses(modules))

	// nested composites union too
	outer := NewComposite(unittest.Logger(), composite, NewSimple(a))
	modules, err = outer.Resolve(context.Background(), module.Filter{Name: []string{"a", "c"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []crypto.Address{a.address, c.address}, addresses(modules))
}

func TestCompositePartialFailure(t *testing.T) {
	a := stub("a")
	failing := mockmodule.NewResolver(t)
	failing.On("Resolve", mock.Anything, mock.Anything).Return(nil, errors.New("unreachable"))

	composite := NewComposite(unittest.Logger(), failing, NewSimple(a))
	modules, err := composite.Resolve(context.Background(), module.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []crypto.Address{a.address}, addresses(modules))

	results, err := FanOut(context.Background(), []module.Resolver{failing, NewSimple(a)}, module.Filter{})
	require.Error(t, err)
	assert.Nil(t, results[0])
	assert.Len(t, results[1], 1)
}
