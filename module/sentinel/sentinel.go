package sentinel

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/archivist"
	"github.com/witnessnet/witnessnet/module/base"
	"github.com/witnessnet/witnessnet/module/witness"
)

const (
	ConfigSchema      = "network.xyo.sentinel.config"
	ReportQuerySchema = "network.xyo.query.sentinel.report"
)

// Config lists the witnesses a sentinel observes and the archivists its reports are stored in,
// by address or name.
type Config struct {
	Witnesses  []string `json:"witnesses,omitempty"`
	Archivists []string `json:"archivists,omitempty"`
}

// NewConfig builds the module config of a sentinel.
func NewConfig(name string, c Config) module.Config {
	extra := make(map[string]interface{})
	if len(c.Witnesses) > 0 {
		extra["witnesses"] = stringList(c.Witnesses)
	}
	if len(c.Archivists) > 0 {
		extra["archivists"] = stringList(c.Archivists)
	}
	return module.Config{Schema: ConfigSchema, Name: name, Extra: extra}
}

func stringList(in []string) []interface{} {
	out := make([]interface{}, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}

// Sentinel is a module collecting the observations of witnesses into signed reports.
type Sentinel struct {
	*base.Base
	config  Config
	reports *atomic.Uint64
}

// New creates a sentinel. A nil account is replaced by a random one.
func New(log zerolog.Logger, account *crypto.Account, config module.Config, opts ...base.Option) (*Sentinel, error) {
	if config.Schema == "" {
		config.Schema = ConfigSchema
	}
	var c Config
	err := config.DecodeExtra(&c)
	if err != nil {
		return nil, module.NewInvalidConfigErrorf("", "could not decode sentinel config: %v", err)
	}

	s := &Sentinel{config: c, reports: atomic.NewUint64(0)}
	handlers := base.Handlers{
		ReportQuerySchema: s.handleReport,
	}
	b, err := base.New(log, account, config, handlers, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create sentinel: %w", err)
	}
	s.Base = b
	s.SetModule(s)
	return s, nil
}

// Reports counts the reports completed successfully.
func (s *Sentinel) Reports() uint64 {
	return s.reports.Load()
}

// Report observes every witness concurrently, passing payloads as hints, and binds the
// observations into a bound witness signed by the sentinel. The bound witness and the
// observations are inserted into every archivist. It returns the bound witness followed by
// the observations.
//
// Archivist failures do not fail the report; they are logged and carried by the ReportEnd
// event. A sentinel that is not started fails with module.ErrNotStarted.
func (s *Sentinel) Report(ctx context.Context, payloads []payload.Payload) ([]payload.Payload, error) {
	if !s.Started() {
		return nil, module.ErrNotStarted
	}
	s.Emit(module.Event{Kind: module.ReportStart, Module: s, Payloads: payloads})

	out, err := s.observe(ctx, payloads)
	if err != nil {
		logger := s.Logger()
		logger.Warn().Err(err).Msg("report failed")
		s.Emit(module.Event{Kind: module.ReportEnd, Module: s, Err: err})
		return nil, err
	}
	archiveErr := s.archive(ctx, out)
	if archiveErr != nil {
		logger := s.Logger()
		logger.Warn().Err(archiveErr).Msg("could not archive report everywhere")
	}

	s.reports.Inc()
	logger := s.Logger()
	logger.Debug().Int("payloads", len(out)).Msg("report completed")
	s.Emit(module.Event{Kind: module.ReportEnd, Module: s, Payloads: out, Err: archiveErr})
	return out, nil
}

// observe collects the observations of every witness and binds them.
func (s *Sentinel) observe(ctx context.Context, hints []payload.Payload) ([]payload.Payload, error) {
	witnesses, err := s.witnesses(ctx)
	if err != nil {
		return nil, err
	}

	observations := make([][]payload.Payload, len(witnesses))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, w := range witnesses {
		i, w := i, w
		group.Go(func() error {
			observed, err := w.Observe(groupCtx, hints...)
			if err != nil {
				return fmt.Errorf("could not observe witness %s: %w", w.Address(), err)
			}
			observations[i] = observed
			return nil
		})
	}
	err = group.Wait()
	if err != nil {
		return nil, err
	}

	var observed []payload.Payload
	for _, o := range observations {
		observed = append(observed, o...)
	}

	bw, bound, err := boundwitness.NewBuilder().Payloads(observed...).Signers(s.Account()).Build()
	if err != nil {
		return nil, fmt.Errorf("could not bind observations: %w", err)
	}
	bwPayload, err := bw.Payload()
	if err != nil {
		return nil, err
	}
	return append([]payload.Payload{bwPayload}, bound...), nil
}

// witnesses resolves the configured witnesses, or every visible witness when none is configured.
func (s *Sentinel) witnesses(ctx context.Context) ([]*witness.Wrapper, error) {
	modules, err := s.resolveAll(ctx, s.config.Witnesses, witness.ObserveQuerySchema)
	if err != nil {
		return nil, err
	}
	out := make([]*witness.Wrapper, 0, len(modules))
	for _, m := range modules {
		w, err := witness.NewWrapper(m, s.Account())
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// archive inserts the report into every configured archivist.
func (s *Sentinel) archive(ctx context.Context, report []payload.Payload) error {
	if len(s.config.Archivists) == 0 {
		return nil
	}
	modules, err := s.resolveAll(ctx, s.config.Archivists, archivist.Queries...)
	if err != nil {
		return err
	}

	var merr *multierror.Error
	for _, m := range modules {
		w, err := archivist.NewWrapper(m, s.Account())
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		_, err = w.Insert(ctx, report)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("could not archive into %s: %w", m.Address(), err))
		}
	}
	return merr.ErrorOrNil()
}

// resolveAll resolves each reference through the up and down resolvers, or every module
// supporting the queries when there are no references. Unresolved references are logged.
func (s *Sentinel) resolveAll(ctx context.Context, refs []string, queries ...string) ([]module.Module, error) {
	notSelf := func(m module.Module) bool { return m.Address() != s.Address() }

	if len(refs) == 0 {
		return s.Resolve(ctx, module.Filter{Query: [][]string{queries}, Identity: notSelf}, module.DirectionAll)
	}

	var found []module.Module
	for _, ref := range refs {
		filter := module.ByAddressOrName(ref)
		filter.Identity = notSelf
		modules, err := s.Resolve(ctx, filter, module.DirectionAll)
		if err != nil {
			return nil, fmt.Errorf("could not resolve %s: %w", ref, err)
		}
		if len(modules) == 0 {
			logger := s.Logger()
			logger.Warn().Str("module", ref).Msg("module not found")
			continue
		}
		found = append(found, modules[0])
	}
	return module.Filter{}.Apply(found), nil
}

func (s *Sentinel) handleReport(ctx context.Context, w *boundwitness.QueryWrapper, _ payload.Payload) ([]payload.Payload, error) {
	return s.Report(ctx, w.SupportingPayloads())
}
