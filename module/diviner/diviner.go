package diviner

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/archivist"
	"github.com/witnessnet/witnessnet/module/base"
)

const (
	ConfigSchema       = "network.xyo.diviner.config"
	DivineQuerySchema  = "network.xyo.query.diviner.divine"
	defaultResultLimit = 100
)

// Divination answers a divine query. Supplied payloads describe what is asked.
type Divination interface {
	Divine(ctx context.Context, payloads []payload.Payload) ([]payload.Payload, error)
}

// DivinationFunc adapts a function to the Divination interface.
type DivinationFunc func(ctx context.Context, payloads []payload.Payload) ([]payload.Payload, error)

func (f DivinationFunc) Divine(ctx context.Context, payloads []payload.Payload) ([]payload.Payload, error) {
	return f(ctx, payloads)
}

// Config lists the archivists a diviner reads from, by address or name. Without archivists
// every visible archivist is read.
type Config struct {
	Archivists []string `json:"archivists,omitempty"`
}

// Diviner is a module answering divine queries with the output of its divination.
type Diviner struct {
	*base.Base
	divination Divination
	archivists []string
}

// New creates a diviner. A nil account is replaced by a random one.
func New(log zerolog.Logger, account *crypto.Account, config module.Config, divination Divination, opts ...base.Option) (*Diviner, error) {
	if config.Schema == "" {
		config.Schema = ConfigSchema
	}
	var c Config
	err := config.DecodeExtra(&c)
	if err != nil {
		return nil, module.NewInvalidConfigErrorf("", "could not decode diviner config: %v", err)
	}

	d := &Diviner{divination: divination, archivists: c.Archivists}
	handlers := base.Handlers{
		DivineQuerySchema: d.handleDivine,
	}
	b, err := base.New(log, account, config, handlers, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create diviner: %w", err)
	}
	d.Base = b
	d.SetModule(d)
	return d, nil
}

// Divine runs the divination. Every result must carry a schema. A diviner that is not started
// fails with module.ErrNotStarted.
func (d *Diviner) Divine(ctx context.Context, payloads []payload.Payload) ([]payload.Payload, error) {
	if !d.Started() {
		return nil, module.ErrNotStarted
	}
	d.Emit(module.Event{Kind: module.ReportStart, Module: d, Payloads: payloads})

	out, err := d.divination.Divine(ctx, payloads)
	if err == nil {
		for _, p := range out {
			if err = p.Validate(); err != nil {
				err = fmt.Errorf("invalid result: %w", err)
				break
			}
		}
	}
	if err != nil {
		logger := d.Logger()
		logger.Warn().Err(err).Msg("divination failed")
		d.Emit(module.Event{Kind: module.ReportEnd, Module: d, Err: err})
		return nil, fmt.Errorf("could not divine: %w", err)
	}

	logger := d.Logger()
	logger.Debug().Int("results", len(out)).Msg("divination completed")
	d.Emit(module.Event{Kind: module.ReportEnd, Module: d, Payloads: out})
	return out, nil
}

func (d *Diviner) handleDivine(ctx context.Context, q *boundwitness.QueryWrapper, _ payload.Payload) ([]payload.Payload, error) {
	return d.Divine(ctx, q.SupportingPayloads())
}

// archived returns the payloads of every archivist, in archive order, without repeats. An
// archivist that cannot be read is skipped as long as another one answers.
func (d *Diviner) archived(ctx context.Context) ([]payload.Payload, error) {
	archivists, err := d.resolveArchivists(ctx)
	if err != nil {
		return nil, err
	}

	var (
		out  []payload.Payload
		seen = make(hash.Set)
		merr *multierror.Error
	)
	for _, a := range archivists {
		all, err := a.All(ctx)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("could not read %s: %w", a.Address(), err))
			continue
		}
		for _, p := range all {
			h, err := p.Hash()
			if err != nil || seen.Has(h) {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, p)
		}
	}
	if merr != nil && len(merr.Errors) == len(archivists) {
		return nil, merr
	}
	if merr != nil {
		logger := d.Logger()
		logger.Warn().Err(merr).Msg("could not read every archivist")
	}
	return out, nil
}

// resolveArchivists resolves the configured archivists, or every visible archivist when none
// is configured. Unresolved references are logged.
func (d *Diviner) resolveArchivists(ctx context.Context) ([]*archivist.Wrapper, error) {
	notSelf := func(m module.Module) bool { return m.Address() != d.Address() }

	var found []module.Module
	if len(d.archivists) == 0 {
		modules, err := d.Resolve(ctx, module.Filter{Query: [][]string{archivist.Queries}, Identity: notSelf}, module.DirectionAll)
		if err != nil {
			return nil, err
		}
		found = modules
	}
	for _, ref := range d.archivists {
		filter := module.ByAddressOrName(ref)
		filter.Identity = notSelf
		modules, err := d.Resolve(ctx, filter, module.DirectionAll)
		if err != nil {
			return nil, fmt.Errorf("could not resolve %s: %w", ref, err)
		}
		if len(modules) == 0 {
			logger := d.Logger()
			logger.Warn().Str("module", ref).Msg("archivist not found")
			continue
		}
		found = append(found, modules[0])
	}

	out := make([]*archivist.Wrapper, 0, len(found))
	for _, m := range (module.Filter{}).Apply(found) {
		w, err := archivist.NewWrapper(m, d.Account())
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}
