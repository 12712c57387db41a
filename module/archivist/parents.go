package archivist

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
)

// resolveParents resolves parent references, by address or name, in configured order. A
// reference that does not resolve fails the call when every parent is required and is
// skipped otherwise.
func (a *Archivist) resolveParents(ctx context.Context, refs []string) ([]module.Module, error) {
	var (
		parents []module.Module
		missing []string
	)
	for _, ref := range refs {
		filter := module.ByAddressOrName(ref)
		filter.Identity = func(m module.Module) bool {
			return m.Address() != a.Address()
		}
		found, err := a.Resolve(ctx, filter, module.DirectionAll)
		if err != nil {
			return nil, fmt.Errorf("could not resolve parent %s: %w", ref, err)
		}
		if len(found) == 0 {
			missing = append(missing, ref)
			continue
		}
		parents = append(parents, found[0])
	}

	if len(missing) > 0 {
		if a.config.requireAllParents() {
			return nil, fmt.Errorf("%w: %s", ErrParentNotFound, strings.Join(missing, ", "))
		}
		logger := a.Logger()
		logger.Warn().Strs("parents", missing).Msg("some parents could not be resolved")
	}
	return module.Filter{}.Apply(parents), nil
}

// getFromParents asks each parent in turn for h. A payload that does not hash to h is rejected
// and the next parent is tried.
func (a *Archivist) getFromParents(ctx context.Context, parents []module.Module, h hash.Hash) (payload.Payload, bool) {
	for _, parent := range parents {
		log := a.Logger().With().Str("parent", parent.Address().Hex()).Str("hash", h.Hex()).Logger()

		w, err := NewWrapper(parent, a.Account())
		if err != nil {
			log.Warn().Err(err).Msg("parent is not an archivist")
			continue
		}
		found, err := w.Get(ctx, h)
		if err != nil {
			log.Warn().Err(err).Msg("could not read from parent")
			continue
		}
		if len(found) == 0 {
			continue
		}

		actual, err := found[0].Hash()
		if err != nil || actual != h {
			log.Error().Err(err).Str("actual", actual.Hex()).Msg("parent returned payload with invalid hash")
			continue
		}
		return found[0], true
	}
	return nil, false
}

// insertIntoParents inserts payloads into every parent and collects their bound witnesses.
// Failures are aggregated.
func (a *Archivist) insertIntoParents(ctx context.Context, parents []module.Module, payloads []payload.Payload) ([]*boundwitness.BoundWitness, error) {
	var (
		out  []*boundwitness.BoundWitness
		merr *multierror.Error
	)
	for _, parent := range parents {
		w, err := NewWrapper(parent, a.Account())
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		bws, err := w.Insert(ctx, payloads)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("could not insert into parent %s: %w", parent.Address(), err))
			continue
		}
		out = append(out, bws...)
	}
	return out, merr.ErrorOrNil()
}
