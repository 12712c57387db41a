package module

import (
	"context"
	"fmt"

	"github.com/witnessnet/witnessnet/crypto"
)

// Direction selects the resolver slots of a module consulted by a resolve.
type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionPrivate Direction = "private"
	DirectionAll     Direction = "all"
)

// ParseDirection parses a direction name. An empty name is DirectionAll.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case "":
		return DirectionAll, nil
	case DirectionUp, DirectionDown, DirectionPrivate, DirectionAll:
		return d, nil
	default:
		return "", fmt.Errorf("unknown resolve direction %q", s)
	}
}

// Includes reports whether resolving in d consults the slot other.
func (d Direction) Includes(other Direction) bool {
	return d == DirectionAll || d == "" || d == other
}

// Filter selects modules. A module matches when it satisfies every non-empty criterion.
type Filter struct {
	// Address matches modules whose address is in the list.
	Address []crypto.Address

	// Name matches modules whose configured name is in the list.
	Name []string

	// Query matches modules supporting every schema of at least one of the alternatives.
	Query [][]string

	// Identity matches modules for which it returns true.
	Identity func(Module) bool
}

// Match reports whether m satisfies the filter.
func (f Filter) Match(m Module) bool {
	if len(f.Address) > 0 {
		found := false
		for _, a := range f.Address {
			if a == m.Address() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Name) > 0 {
		name := Name(m)
		found := false
		for _, n := range f.Name {
			if n != "" && n == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Query) > 0 {
		found := false
		for _, schemas := range f.Query {
			if Supports(m, schemas...) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Identity != nil && !f.Identity(m) {
		return false
	}

	return true
}

// Apply returns the modules matching the filter, deduplicated by address and in first-seen order.
func (f Filter) Apply(modules []Module) []Module {
	seen := make(map[crypto.Address]struct{}, len(modules))
	out := make([]Module, 0, len(modules))
	for _, m := range modules {
		if m == nil {
			continue
		}
		if _, ok := seen[m.Address()]; ok {
			continue
		}
		seen[m.Address()] = struct{}{}
		if f.Match(m) {
			out = append(out, m)
		}
	}
	return out
}

// ByAddressOrName builds a filter from a textual module reference: an address if it parses as
// one, a name otherwise.
func ByAddressOrName(ref string) Filter {
	if addr, err := crypto.HexToAddress(ref); err == nil {
		return Filter{Address: []crypto.Address{addr}}
	}
	return Filter{Name: []string{ref}}
}

// Resolver finds modules matching a filter.
type Resolver interface {
	Resolve(ctx context.Context, filter Filter) ([]Module, error)
}

// CompositeResolver merges the results of the resolvers added to it.
type CompositeResolver interface {
	Resolver

	// Add adds resolvers. Adding a resolver already present is a no-op.
	Add(resolvers ...Resolver)

	// Remove removes resolvers. Removing an absent resolver is a no-op.
	Remove(resolvers ...Resolver)
}
